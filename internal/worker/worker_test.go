package worker

import (
	"testing"

	"github.com/desertthunder/audiosync/internal/queue"
)

func TestBackoffDelay_Schedule(t *testing.T) {
	tc := []struct {
		attempts int
		want     int // seconds
	}{
		{1, 300},
		{2, 900},
		{3, 2700},
		{4, 8100},
		{5, 21600},
		{6, 21600},
	}
	for _, tt := range tc {
		if got := backoffDelay(tt.attempts); got.Seconds() != float64(tt.want) {
			t.Errorf("backoffDelay(%d) = %v, want %ds", tt.attempts, got, tt.want)
		}
	}
}

func TestDestinationFor_RendersTemplate(t *testing.T) {
	cfg := Config{HostPath: "/music", PathTemplate: "{artist}/{title}.{ext}", Format: "mp3"}
	item := queue.Item{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 230}

	got, err := destinationFor(cfg, item)
	if err != nil {
		t.Fatalf("destinationFor: %v", err)
	}
	want := "/music/Boards of Canada/Roygbiv.mp3"
	if got != want {
		t.Errorf("destinationFor = %q, want %q", got, want)
	}
}

func TestDestinationFor_RejectsInvalidTemplate(t *testing.T) {
	cfg := Config{HostPath: "/music", PathTemplate: "{artist}/{title}", Format: "mp3"}
	item := queue.Item{Artist: "A", Title: "B"}

	if _, err := destinationFor(cfg, item); err == nil {
		t.Error("expected an error for a template missing {ext}")
	}
}
