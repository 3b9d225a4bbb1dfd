// Package pathtemplate implements the Path Template Engine (§4.B): the
// bidirectional mapping between a user-supplied template over
// {artist}/{album}/{title}/{ext} and a relative filesystem path.
//
// Grounded on original_source/youspotter/utils/path_template.py
// (validate_user_template, to_ytdlp_outtmpl, to_path_regex). The Python
// original builds its reverse regex with Go-incompatible duplicate named
// groups when a variable repeats in the template (e.g. "{artist}/.../{artist}
// - {title}"); this implementation tracks variable occurrences positionally
// and uses unnamed capture groups instead, since regexp (unlike Python's re)
// rejects a pattern with the same group name twice.
package pathtemplate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/audiosync/internal/shared"
)

// Vars are the only placeholders a user template may reference.
const (
	VarArtist = "artist"
	VarAlbum  = "album"
	VarTitle  = "title"
	VarExt    = "ext"
)

var allowedVars = map[string]bool{VarArtist: true, VarAlbum: true, VarTitle: true, VarExt: true}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Fields holds the four variables a template can resolve, for both
// rendering (output side) and extraction (reverse-mapped from disk).
type Fields struct {
	Artist string
	Album  string
	Title  string
	Ext    string
}

func (f Fields) value(name string) string {
	switch name {
	case VarArtist:
		return f.Artist
	case VarAlbum:
		return f.Album
	case VarTitle:
		return f.Title
	case VarExt:
		return f.Ext
	default:
		return ""
	}
}

// Validate enforces §4.B's rules: the template must be relative, must not
// contain a ".." traversal segment, every {var} must be in the allowed set,
// and {ext} must appear at least once.
func Validate(tmpl string) error {
	if tmpl == "" {
		return fmt.Errorf("%w: template must not be empty", shared.ErrInvalidTemplate)
	}
	if strings.HasPrefix(tmpl, "/") {
		return fmt.Errorf("%w: template must be relative, not start with '/'", shared.ErrInvalidTemplate)
	}
	for _, seg := range strings.Split(tmpl, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: template must not contain '..'", shared.ErrInvalidTemplate)
		}
	}

	found := placeholderPattern.FindAllStringSubmatch(tmpl, -1)
	sawExt := false
	for _, m := range found {
		name := m[1]
		if !allowedVars[name] {
			return fmt.Errorf("%w: illegal variable %q in template", shared.ErrInvalidTemplate, name)
		}
		if name == VarExt {
			sawExt = true
		}
	}
	if !sawExt {
		return fmt.Errorf("%w: template must include {ext}", shared.ErrInvalidTemplate)
	}
	return nil
}

// Render substitutes a template's placeholders with the given fields,
// producing a relative filesystem path. Callers are expected to have
// validated the template first.
func Render(tmpl string, f Fields) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := token[1 : len(token)-1]
		return f.value(name)
	})
}

// ToExtractorTemplate converts a validated user template into the
// extractor's own placeholder syntax (e.g. yt-dlp's "%(var)s" output
// template), per §4.B's "output template for the extractor".
func ToExtractorTemplate(tmpl string) (string, error) {
	if err := Validate(tmpl); err != nil {
		return "", err
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := token[1 : len(token)-1]
		return "%(" + name + ")s"
	}), nil
}

// PathRegex is the reverse mapping from a relative disk path back to the
// template's fields: a compiled regex plus the variable each capture group
// (by position, 1-indexed) belongs to.
type PathRegex struct {
	re   *regexp.Regexp
	vars []string // vars[i] is the variable captured by group i+1
}

// Match extracts Fields from a relative path, normalised to POSIX
// separators before matching, per §4.B. ok is false if the path does not
// match the template's shape.
func (p *PathRegex) Match(relPath string) (Fields, bool) {
	relPath = filepathToSlash(relPath)
	m := p.re.FindStringSubmatch(relPath)
	if m == nil {
		return Fields{}, false
	}
	var f Fields
	for i, name := range p.vars {
		val := m[i+1]
		switch name {
		case VarArtist:
			f.Artist = val
		case VarAlbum:
			f.Album = val
		case VarTitle:
			f.Title = val
		case VarExt:
			f.Ext = val
		}
	}
	return f, true
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ToPathRegex compiles a validated user template into a [PathRegex]: literal
// segments are escaped, each {var} becomes a non-greedy capture ({ext}
// captures everything up to the next '/'), and the whole pattern is anchored
// to the full relative path.
func ToPathRegex(tmpl string) (*PathRegex, error) {
	if err := Validate(tmpl); err != nil {
		return nil, err
	}

	var (
		pattern strings.Builder
		vars    []string
		last    int
	)
	pattern.WriteString("^")
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(tmpl, -1) {
		literal := tmpl[last:loc[0]]
		pattern.WriteString(regexp.QuoteMeta(literal))

		name := tmpl[loc[2]:loc[3]]
		if name == VarExt {
			pattern.WriteString(`([^/]+)`)
		} else {
			pattern.WriteString(`(.+?)`)
		}
		vars = append(vars, name)
		last = loc[1]
	}
	pattern.WriteString(regexp.QuoteMeta(tmpl[last:]))
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("%w: compile path regex: %v", shared.ErrInvalidTemplate, err)
	}
	return &PathRegex{re: re, vars: vars}, nil
}
