package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/audiosync/internal/shared"
)

// defaultBaseURL is the control surface the CLI conveniences and the
// monitor talk to when no --addr flag overrides it.
const defaultBaseURL = "http://127.0.0.1:8087"

// Runner holds all dependencies for CLI commands and provides methods for
// each command action, the way the teacher's Runner carries its Spotify and
// API services. The daemon's own collaborators (database, catalog store,
// orchestrator) are wired separately in Serve, since only serve needs them
// and every other command is a thin HTTP client against a running daemon.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerConfig contains configuration options for creating a Runner.
type RunnerConfig struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Runner{
		logger: cfg.Logger,
		output: cfg.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, monitorCommand, authCommand,
		syncNowCommand, statusCommand, configCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error
	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	_, err = r.output.Write([]byte("\n"))
	return err
}

func (r *Runner) writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(r.output, format, args...)
	return err
}

// fileConfigStore implements [server.ConfigStore] over the TOML file on
// disk, so a running daemon's /config handler persists what it accepts.
type fileConfigStore struct {
	mu   sync.Mutex
	path string
	cfg  *shared.Config
}

func newFileConfigStore(path string, cfg *shared.Config) *fileConfigStore {
	return &fileConfigStore{path: path, cfg: cfg}
}

func (f *fileConfigStore) Get() shared.SyncConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.Sync
}

func (f *fileConfigStore) Set(sc shared.SyncConfig) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.Sync = sc
	return shared.SaveConfig(f.path, f.cfg)
}
