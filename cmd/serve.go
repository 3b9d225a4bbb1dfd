package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/audiosync/internal/catalog"
	"github.com/desertthunder/audiosync/internal/matcher"
	"github.com/desertthunder/audiosync/internal/orchestrator"
	"github.com/desertthunder/audiosync/internal/queue"
	"github.com/desertthunder/audiosync/internal/server"
	"github.com/desertthunder/audiosync/internal/services"
	"github.com/desertthunder/audiosync/internal/shared"
	"github.com/desertthunder/audiosync/internal/synclock"
	"github.com/desertthunder/audiosync/internal/watchdog"
	"github.com/desertthunder/audiosync/internal/worker"
)

const tokenSettingKey = "playlist_provider_token"

// shutdownGrace bounds how long Serve waits for in-flight HTTP requests to
// drain on interrupt before forcing the listener closed.
const shutdownGrace = 10 * time.Second

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the sync scheduler, download worker, and HTTP control surface",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

func loadRunnerConfig(cmd *cli.Command) (*shared.Config, string, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		return nil, path, fmt.Errorf("%w: run `setup` first", shared.ErrMissingConfig)
	}
	cfg, err := shared.LoadConfig(path)
	if err != nil {
		return nil, path, fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

func oauthConfigFor(cfg shared.PlaylistSourceConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.spotify.com/authorize",
			TokenURL: "https://accounts.spotify.com/api/token",
		},
		Scopes: []string{"playlist-read-private", "playlist-read-collaborative"},
	}
}

func loadPlaylistToken(store *catalog.Store) *oauth2.Token {
	raw, ok, err := store.GetSetting(tokenSettingKey)
	if err != nil || !ok {
		return nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil
	}
	return &tok
}

// Serve wires every collaborator together (§4's module graph) and runs the
// scheduler, worker, filesystem watchdog, and HTTP control surface until an
// interrupt or terminate signal arrives.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, path, err := loadRunnerConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := catalog.NewStore(db, r.logger)
	configStore := newFileConfigStore(path, cfg)

	trackIdentity := func(i queue.Item) string {
		return matcher.Normalize(i.Artist) + "|" + matcher.Normalize(i.Title)
	}
	q := queue.New(trackIdentity)
	if doc, err := catalog.NewKVSnapshotStore(db).Load(); err == nil && doc != nil {
		q.Restore(doc)
	}

	token := loadPlaylistToken(store)
	oauthCfg := oauthConfigFor(cfg.Credentials.PlaylistSource)
	playlistSvc := services.NewPlaylistProviderService(ctx, cfg.Credentials.PlaylistSource, configStore.Get().SelectedPlaylists, token)

	exists := func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	}

	lock := synclock.New(r.logger)
	snapshot := catalog.NewKVSnapshotStore(db)
	orch := orchestrator.New(store, q, lock, snapshot, playlistSvc, configStore.Get, exists, r.logger)

	searchSvc := services.NewCatalogSearchService("", "")
	extractSvc := services.NewExtractorService("", "", services.ExtractorConfig{
		Bitrate: configStore.Get().Bitrate,
		Format:  configStore.Get().Format,
	})
	workerCfg := func() worker.Config {
		sc := configStore.Get()
		return worker.Config{
			HostPath:     sc.HostPath,
			PathTemplate: sc.PathTemplate,
			Format:       sc.Format,
			MatchMode:    matchModeFor(sc.UseStrictMatching),
		}
	}
	w := worker.New(store, q, searchSvc, extractSvc, workerCfg, r.logger)

	reconcile := func() {
		if _, err := store.ReconcileAgainstDisk(exists); err != nil {
			r.logger.Warn("watchdog reconcile failed", "err", err)
			return
		}
		if err := orch.RebuildQueue(); err != nil {
			r.logger.Warn("watchdog queue rebuild failed", "err", err)
		}
	}
	wd := watchdog.New(configStore.Get().HostPath, reconcile, r.logger)

	oauthHandler := server.NewOAuthHandler(oauthCfg, "")
	oauthHandler.OnResult(func(result server.OAuthResult) {
		if err := result.Error(); err != nil {
			r.logger.Warn("oauth flow failed", "err", err)
			return
		}
		raw, err := json.Marshal(result.Token)
		if err != nil {
			r.logger.Error("marshal oauth token", "err", err)
			return
		}
		if err := store.SetSetting(tokenSettingKey, string(raw)); err != nil {
			r.logger.Error("persist oauth token", "err", err)
			return
		}
		r.logger.Info("playlist provider authorized")
	})

	handler := server.NewAppHandler(store, q, syncerAdapter{orch}, w, configStore, playlistSvc, oauthCfg, oauthHandler, r.logger)
	router := server.NewBasicRouter()
	router.Handler(handler)
	router.Handler(oauthHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go orch.Run(runCtx)
	go w.Run(runCtx)
	go wd.Run(runCtx)
	go func() {
		r.logger.Info("control surface listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", "err", err)
		}
	}()

	<-runCtx.Done()
	r.logger.Info("shutting down")
	orch.Stop()
	w.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
