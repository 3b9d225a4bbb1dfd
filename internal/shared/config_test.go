package shared

import "testing"

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Sync.Bitrate != 256 {
			t.Errorf("expected default bitrate 256, got %d", config.Sync.Bitrate)
		}

		if config.Sync.Format != "mp3" {
			t.Errorf("expected default format mp3, got %s", config.Sync.Format)
		}

		if config.Sync.PathTemplate != "{artist}/{album}/{title}.{ext}" {
			t.Errorf("expected default path template, got %s", config.Sync.PathTemplate)
		}
	})

	t.Run("SyncConfig Validate", func(t *testing.T) {
		valid := SyncConfig{
			HostPath:          "/music",
			Bitrate:           256,
			Format:            "mp3",
			Concurrency:       1,
			PathTemplate:      "{artist}/{title}.{ext}",
			SyncIntervalSec:   900,
			SelectedPlaylists: map[string]PlaylistStrategy{"abc": {Song: true}},
		}
		if err := valid.Validate(); err != nil {
			t.Errorf("expected valid config to pass, got %v", err)
		}

		invalid := valid
		invalid.HostPath = "music"
		if err := invalid.Validate(); err == nil {
			t.Error("expected relative host_path to fail validation")
		}

		invalid = valid
		invalid.Bitrate = 100
		if err := invalid.Validate(); err == nil {
			t.Error("expected invalid bitrate to fail validation")
		}

		invalid = valid
		invalid.SelectedPlaylists = nil
		if err := invalid.Validate(); err == nil {
			t.Error("expected empty selected_playlists to fail validation")
		}

		invalid = valid
		invalid.SelectedPlaylists = map[string]PlaylistStrategy{"abc": {}}
		if err := invalid.Validate(); err == nil {
			t.Error("expected playlist with no strategy flags to fail validation")
		}
	})
}
