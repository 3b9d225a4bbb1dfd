package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// validBitrates and validFormats enumerate the extractor quality knobs the
// orchestrator is willing to persist and hand to the extractor collaborator.
var (
	validBitrates = map[int]bool{128: true, 192: true, 256: true, 320: true}
	validFormats  = map[string]bool{"mp3": true, "flac": true, "m4a": true, "wav": true}
)

// PlaylistStrategy records which expansion strategies are enabled for one
// selected playlist: the song list itself, its contributing artists'
// back-catalogs, and its albums.
type PlaylistStrategy struct {
	Song   bool `toml:"song" json:"song"`
	Artist bool `toml:"artist" json:"artist"`
	Album  bool `toml:"album" json:"album"`
}

// Config represents the orchestrator's persisted configuration. Unlike the
// teacher's credential-only config, this carries every knob the sync &
// download control surface reads and writes (§6).
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	PlaylistSource PlaylistSourceConfig `toml:"playlist_source"`
}

// PlaylistSourceConfig contains OAuth2 client settings for the out-of-scope
// playlist-provider collaborator. Access/refresh tokens are never persisted
// here: they live in the database's settings table (see internal/catalog)
// so they can be redacted independently of the TOML file that ships with a
// backup or support bundle.
type PlaylistSourceConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig holds the §6 configuration table: the knobs that govern the
// download worker, path template engine, and matcher.
type SyncConfig struct {
	HostPath           string                      `toml:"host_path"`
	Bitrate            int                         `toml:"bitrate"`
	Format             string                      `toml:"format"`
	Concurrency        int                         `toml:"concurrency"`
	PathTemplate       string                      `toml:"path_template"`
	UseStrictMatching  bool                        `toml:"use_strict_matching"`
	SyncIntervalSec    int                         `toml:"sync_interval_seconds"`
	SelectedPlaylists  map[string]PlaylistStrategy `toml:"selected_playlists"`
}

// Validate enforces the §6 configuration validation rules. It does not
// require host_path to exist on disk; that check belongs to the watchdog,
// which must be able to report "not yet configured" rather than fail setup.
func (c *SyncConfig) Validate() error {
	if c.HostPath == "" || c.HostPath[0] != '/' {
		return fmt.Errorf("%w: host_path must be an absolute path", ErrInvalidConfig)
	}
	if !validBitrates[c.Bitrate] {
		return fmt.Errorf("%w: bitrate must be one of 128, 192, 256, 320", ErrInvalidConfig)
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("%w: format must be one of mp3, flac, m4a, wav", ErrInvalidConfig)
	}
	if c.Concurrency < 1 || c.Concurrency > 10 {
		return fmt.Errorf("%w: concurrency must be between 1 and 10", ErrInvalidConfig)
	}
	if c.SyncIntervalSec < 60 || c.SyncIntervalSec > 86400 {
		return fmt.Errorf("%w: sync_interval_seconds must be between 60 and 86400", ErrInvalidConfig)
	}
	if len(c.SelectedPlaylists) == 0 {
		return fmt.Errorf("%w: at least one playlist must be selected", ErrInvalidConfig)
	}
	for id, strat := range c.SelectedPlaylists {
		if !strat.Song && !strat.Artist && !strat.Album {
			return fmt.Errorf("%w: playlist %s must enable at least one strategy", ErrInvalidConfig, id)
		}
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Expands ~ in file paths to the user's home directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.Database.Path = ExpandPath(config.Database.Path)
	config.Sync.HostPath = ExpandPath(config.Sync.HostPath)

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes a Config struct to a TOML file at the specified path.
func SaveConfig(path string, config *Config) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
