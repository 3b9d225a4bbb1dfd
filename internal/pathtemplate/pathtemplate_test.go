package pathtemplate

import "testing"

func TestValidate(t *testing.T) {
	tc := []struct {
		name    string
		tmpl    string
		wantErr bool
	}{
		{"valid", "{artist}/{album}/{title}.{ext}", false},
		{"missing ext", "{artist}/{title}", true},
		{"leading slash", "/{artist}/{title}.{ext}", true},
		{"traversal", "../{artist}/{title}.{ext}", true},
		{"illegal var", "{artist}/{genre}.{ext}", true},
		{"repeated var ok", "{artist}/{artist} - {title}.{ext}", false},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tmpl)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.tmpl, err, tt.wantErr)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tmpl := "{artist}/{album}/{title}.{ext}"
	f := Fields{Artist: "Radiohead", Album: "OK Computer", Title: "Airbag", Ext: "mp3"}

	rendered := Render(tmpl, f)
	want := "Radiohead/OK Computer/Airbag.mp3"
	if rendered != want {
		t.Fatalf("Render = %q, want %q", rendered, want)
	}

	re, err := ToPathRegex(tmpl)
	if err != nil {
		t.Fatalf("ToPathRegex: %v", err)
	}
	got, ok := re.Match(rendered)
	if !ok {
		t.Fatalf("Match(%q) did not match", rendered)
	}
	if got != f {
		t.Errorf("round-tripped fields = %+v, want %+v", got, f)
	}
}

func TestRoundTrip_RepeatedVariable(t *testing.T) {
	tmpl := "{artist}/{artist} - {title}.{ext}"
	f := Fields{Artist: "Daft Punk", Title: "One More Time", Ext: "flac"}

	rendered := Render(tmpl, f)
	re, err := ToPathRegex(tmpl)
	if err != nil {
		t.Fatalf("ToPathRegex: %v", err)
	}
	got, ok := re.Match(rendered)
	if !ok {
		t.Fatalf("Match(%q) did not match", rendered)
	}
	if got.Artist != f.Artist || got.Title != f.Title || got.Ext != f.Ext {
		t.Errorf("round-tripped fields = %+v, want %+v", got, f)
	}
}

func TestToExtractorTemplate(t *testing.T) {
	got, err := ToExtractorTemplate("{artist}/{title}.{ext}")
	if err != nil {
		t.Fatalf("ToExtractorTemplate: %v", err)
	}
	want := "%(artist)s/%(title)s.%(ext)s"
	if got != want {
		t.Errorf("ToExtractorTemplate = %q, want %q", got, want)
	}
}

func TestToPathRegex_NoMatch(t *testing.T) {
	re, err := ToPathRegex("{artist}/{title}.{ext}")
	if err != nil {
		t.Fatalf("ToPathRegex: %v", err)
	}
	if _, ok := re.Match("file.mp3"); ok {
		t.Error("expected mismatch for a path with a missing segment")
	}
}
