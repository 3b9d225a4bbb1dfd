package matcher

import (
	"testing"

	"github.com/desertthunder/audiosync/internal/models"
)

func TestNormalize(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  Radiohead  ", "radiohead"},
		{"accents stripped", "Beyoncé", "beyonce"},
		{"feat suffix parens", "Song Title (feat. Drake)", "song title"},
		{"feat suffix trailing", "Song Title feat. Drake", "song title"},
		{"punctuation to space", "Rock & Roll!", "rock roll"},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIdentity_StableUnderDrift(t *testing.T) {
	a := Identity("Radiohead", "Airbag", 284)
	b := Identity("RADIOHEAD", "airbag", 283)
	if a != b {
		t.Errorf("identity should be stable under case and ±1s duration drift: %q != %q", a, b)
	}

	c := Identity("Radiohead", "Airbag (feat. Thom)", 284)
	if a != c {
		t.Errorf("identity should be stable under a feat. suffix: %q != %q", a, c)
	}
}

func TestMatch_Strict(t *testing.T) {
	target := models.Track{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 230}

	good := models.Candidate{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 233}
	if !Match(ModeStrict, target, good) {
		t.Error("expected strict match within 5s tolerance")
	}

	tooFar := models.Candidate{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 240}
	if Match(ModeStrict, target, tooFar) {
		t.Error("expected strict match to reject 10s drift")
	}

	wrongTitle := models.Candidate{Artist: "Boards of Canada", Title: "Telephasic Workshop", Duration: 230}
	if Match(ModeStrict, target, wrongTitle) {
		t.Error("expected strict match to reject different title")
	}
}

func TestMatch_Fuzzy(t *testing.T) {
	target := models.Track{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 230}

	close := models.Candidate{Artist: "Board of Canada", Title: "Roygbivv", Duration: 238}
	if !Match(ModeFuzzy, target, close) {
		t.Error("expected fuzzy match to tolerate minor spelling/title drift")
	}

	farOff := models.Candidate{Artist: "Completely Different", Title: "Nothing Alike", Duration: 230}
	if Match(ModeFuzzy, target, farOff) {
		t.Error("expected fuzzy match to reject unrelated candidate")
	}
}

func TestFirstMatch(t *testing.T) {
	target := models.Track{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 230}
	candidates := []models.Candidate{
		{ID: "1", Artist: "Wrong Artist", Title: "Roygbiv", Duration: 230},
		{ID: "2", Artist: "Boards of Canada", Title: "Roygbiv", Duration: 231},
		{ID: "3", Artist: "Boards of Canada", Title: "Roygbiv", Duration: 900},
	}

	got, ok := FirstMatch(ModeStrict, target, candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ID != "2" {
		t.Errorf("expected first matching candidate (id 2), got %s", got.ID)
	}
}

func TestSimilarity(t *testing.T) {
	if Similarity("roygbiv", "roygbiv") != 1 {
		t.Error("identical strings should have similarity 1")
	}
	if Similarity("", "") != 1 {
		t.Error("two empty strings should have similarity 1")
	}
	if s := Similarity("roygbiv", "roygviv"); s <= 0.5 || s >= 1 {
		t.Errorf("expected near-1 similarity for a one-letter transposition-ish diff, got %v", s)
	}
}
