// Package matcher implements the Identity & Matcher component (§4.A): the
// canonical track fingerprint and the strict/fuzzy candidate matching rules
// the download worker uses to pick a realisation of a target track.
//
// Grounded on original_source/youspotter/utils/matching.py's normalize_text
// and song_match, generalised with a fuzzy mode and a Levenshtein-based
// title/artist similarity the Python original does not need (it only ever
// does strict equality).
package matcher

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/desertthunder/audiosync/internal/models"
)

// Mode selects how a candidate is judged against a target.
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeFuzzy  Mode = "fuzzy"
)

var (
	featPattern     = regexp.MustCompile(`(?i)[\(\[]feat\.[^)\]]*[\)\]]|\bfeat\..*$`)
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize applies the §4.A normalisation pipeline: unicode decompatibility
// decomposition, ASCII-only folding, lowercasing, "feat." suffix removal,
// non-alphanumeric stripping, and whitespace collapse.
func Normalize(s string) string {
	decomposed := norm.NFKD.String(s)

	var ascii strings.Builder
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}

	out := strings.ToLower(ascii.String())
	out = featPattern.ReplaceAllString(out, "")
	out = nonAlnumPattern.ReplaceAllString(out, " ")
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// durationBucket buckets a duration to 5-second resolution (seconds / 5), so
// a track re-fetched with a small drift in reported duration resolves to the
// same identity as long as both durations fall in the same bucket (283 and
// 284 do; 284 and 285 do not).
func durationBucket(seconds int) int {
	return seconds / 5
}

// Identity computes the canonical fingerprint for a track: the primary
// lookup key of the Catalog Store.
func Identity(artist, title string, durationSeconds int) string {
	return Normalize(artist) + "|" + Normalize(title) + "|" + strconv.Itoa(durationBucket(durationSeconds))
}

// IdentityOf is a models.Track-shaped convenience wrapper around Identity,
// for callers (e.g. the catalog store's upsert) that hold a models.Track.
func IdentityOf(t models.Track) string {
	return Identity(t.Artist, t.Title, t.Duration)
}

// durationWithinTolerance reports whether two durations are within
// tolerance seconds of one another.
func durationWithinTolerance(target, candidate, tolerance int) bool {
	d := target - candidate
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// Match judges whether a candidate realises a target track under the given
// mode.
func Match(mode Mode, target models.Track, candidate models.Candidate) bool {
	switch mode {
	case ModeFuzzy:
		titleSim := Similarity(Normalize(target.Title), Normalize(candidate.Title))
		artistSim := Similarity(Normalize(target.Artist), Normalize(candidate.Artist))
		return titleSim >= 0.80 && artistSim >= 0.70 && durationWithinTolerance(target.Duration, candidate.Duration, 10)
	default:
		return Normalize(target.Artist) == Normalize(candidate.Artist) &&
			Normalize(target.Title) == Normalize(candidate.Title) &&
			durationWithinTolerance(target.Duration, candidate.Duration, 5)
	}
}

// FirstMatch iterates candidates in the order returned by the search client
// and returns the first that matches, mirroring the worker's selection
// policy (§4.A: "the worker iterates candidates ... and picks the first
// that matches").
func FirstMatch(mode Mode, target models.Track, candidates []models.Candidate) (models.Candidate, bool) {
	for _, c := range candidates {
		if Match(mode, target, c) {
			return c, true
		}
	}
	return models.Candidate{}, false
}
