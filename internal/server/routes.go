// AppHandler implements the §6 HTTP control surface over the orchestrator,
// catalog, queue, worker, and playlist-provider OAuth collaborators. It is
// grounded on the teacher's Handler/Router split (router.go, oauth.go) and
// on original_source/youspotter/web.py and __init__.py for the endpoint
// shapes that were not already present in the teacher (/playlists,
// /auth/status, the paginated /queue projection).
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/audiosync/internal/catalog"
	"github.com/desertthunder/audiosync/internal/matcher"
	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/queue"
	"github.com/desertthunder/audiosync/internal/services"
	"github.com/desertthunder/audiosync/internal/shared"
)

// Syncer is the subset of *orchestrator.Orchestrator the HTTP surface drives.
// Declared here (rather than importing the orchestrator package directly) to
// keep server free of a dependency on the component that already depends on
// it, and to make the handler trivially testable with a fake.
type Syncer interface {
	TriggerNow() error
	RunOnce(reason string) bool
	NextRun() time.Time
	Recent() []Event
}

// Event mirrors orchestrator.Event's shape for the /status response without
// importing the orchestrator package.
type Event struct {
	TimestampUTC string `json:"timestamp_utc"`
	Message      string `json:"message"`
}

// DownloadController is the subset of *worker.Worker the HTTP surface drives.
type DownloadController interface {
	Pause()
	Resume()
	Paused() bool
	Cancel()
}

// PlaylistLister is the playlist-provider capability the /playlists endpoint
// needs beyond the orchestrator's narrower PlaylistSource interface.
type PlaylistLister interface {
	ListPlaylists(ctx context.Context) ([]services.ProviderPlaylist, error)
}

// ConfigStore persists the §6 configuration table, independent of the TOML
// file on disk: reads/writes go through here so a running daemon's /config
// handler and its in-memory SyncConfig stay consistent.
type ConfigStore interface {
	Get() shared.SyncConfig
	Set(shared.SyncConfig) error
}

// AppHandler wires every §6 route to its collaborator. It implements
// [Handler] so a [Router] can mount it directly.
type AppHandler struct {
	store      *catalog.Store
	q          *queue.Queue
	sync       Syncer
	worker     DownloadController
	cfg        ConfigStore
	playlists  PlaylistLister
	oauthCfg   *oauth2.Config
	oauthState interface{ SetState(string) }
	logger     *log.Logger

	mu              sync.Mutex
	playlistCache   []services.ProviderPlaylist
	playlistCacheAt time.Time
}

const playlistCacheTTL = 900 * time.Second

// NewAppHandler builds the control-surface handler. oauthState is the
// [OAuthHandler] mounted alongside this one at /callback; handleAuthLogin
// rearms its expected CSRF state on every /auth/login hit so the two
// routes agree on the in-flight flow. It may be nil if the playlist
// provider was never configured, in which case /auth/login reports
// unavailable.
func NewAppHandler(store *catalog.Store, q *queue.Queue, sync Syncer, worker DownloadController, cfg ConfigStore, playlists PlaylistLister, oauthCfg *oauth2.Config, oauthState interface{ SetState(string) }, logger *log.Logger) *AppHandler {
	return &AppHandler{store: store, q: q, sync: sync, worker: worker, cfg: cfg, playlists: playlists, oauthCfg: oauthCfg, oauthState: oauthState, logger: logger}
}

// Routes returns every path this handler serves.
func (h *AppHandler) Routes() []string {
	return []string{
		"/status", "/queue", "/sync-now", "/pause-downloads", "/resume-downloads",
		"/download-status", "/reset-queue", "/reset-errors", "/config",
		"/catalog/songs", "/catalog/artists", "/catalog/albums",
		"/auth/status", "/auth/login", "/playlists",
	}
}

// ServeHTTP dispatches by exact path; Routes() lists every path registered,
// so this switch never sees an unmounted one.
func (h *AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/status":
		h.handleStatus(w, r)
	case "/queue":
		h.handleQueue(w, r)
	case "/sync-now":
		h.handleSyncNow(w, r)
	case "/pause-downloads":
		h.handlePause(w, r)
	case "/resume-downloads":
		h.handleResume(w, r)
	case "/download-status":
		h.handleDownloadStatus(w, r)
	case "/reset-queue":
		h.handleResetQueue(w, r)
	case "/reset-errors":
		h.handleResetErrors(w, r)
	case "/config":
		h.handleConfig(w, r)
	case "/catalog/songs":
		h.handleCatalog(w, r, "songs")
	case "/catalog/artists":
		h.handleCatalog(w, r, "artists")
	case "/catalog/albums":
		h.handleCatalog(w, r, "albums")
	case "/auth/status":
		h.handleAuthStatus(w, r)
	case "/auth/login":
		h.handleAuthLogin(w, r)
	case "/playlists":
		h.handlePlaylists(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AppHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && h.logger != nil {
		h.logger.Error("encode response failed", "error", err)
	}
}

func (h *AppHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusResponse struct {
	Missing     int     `json:"missing"`
	Downloading int     `json:"downloading"`
	Downloaded  int     `json:"downloaded"`
	Songs       int     `json:"songs"`
	Artists     int     `json:"artists"`
	Albums      int     `json:"albums"`
	Recent      []Event `json:"recent"`
	Queue       queue.Lengths `json:"queue"`
	NextRunUTC  string  `json:"next_run_utc,omitempty"`
}

func (h *AppHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Counts()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	lens := h.q.Len()

	resp := statusResponse{
		Missing:     counts.Missing,
		Downloading: lens.Current,
		Downloaded:  counts.Downloaded,
		Songs:       counts.Songs,
		Artists:     counts.Artists,
		Albums:      counts.Albums,
		Queue:       lens,
	}
	if h.sync != nil {
		resp.Recent = h.sync.Recent()
		if next := h.sync.NextRun(); !next.IsZero() {
			resp.NextRunUTC = next.UTC().Format(time.RFC3339)
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type queueResponse struct {
	Pending       []queue.Item        `json:"pending"`
	Current       []queue.CurrentItem `json:"current"`
	Completed     []queue.CompletedItem `json:"completed"`
	Page          int                 `json:"page"`
	PageSize      int                 `json:"page_size"`
	TotalPending  int                 `json:"total_pending"`
	Downloaded    int                 `json:"downloaded"`
	Missing       int                 `json:"missing"`
}

func (h *AppHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	pending := h.q.Pending()
	total := len(pending)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	completed := h.q.Completed()
	var downloaded, missing int
	for _, c := range completed {
		if c.Status == "downloaded" {
			downloaded++
		} else {
			missing++
		}
	}

	h.writeJSON(w, http.StatusOK, queueResponse{
		Pending:      pending[start:end],
		Current:      h.q.Current(),
		Completed:    completed,
		Page:         page,
		PageSize:     pageSize,
		TotalPending: total,
		Downloaded:   downloaded,
		Missing:      missing,
	})
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 500 {
		pageSize = v
	}
	return page, pageSize
}

func (h *AppHandler) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	err := h.sync.TriggerNow()
	h.writeJSON(w, http.StatusOK, map[string]bool{"started": err == nil})
}

func (h *AppHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.worker.Pause()
	h.worker.Cancel()
	h.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (h *AppHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.worker.Resume()
	h.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (h *AppHandler) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	lens := h.q.Len()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"worker_running":       true,
		"paused":               h.worker.Paused(),
		"has_current_download": lens.Current > 0,
		"match_mode":           matchModeFor(h.cfg.Get().UseStrictMatching),
	})
}

// handleResetQueue performs the §6/§9 "stale recovery" operation: every
// current item is treated as abandoned and moved straight to completed with
// status=missing, without touching retryAfter/downloadAttempts.
func (h *AppHandler) handleResetQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.worker.Cancel()
	for _, c := range h.q.Current() {
		h.q.Complete(c.Item, false)
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// handleResetErrors clears the retry deferral of every missing catalog row
// still inside its backoff window, by rewriting its deadline to the epoch
// through MarkFailure (which also counts one more download attempt),
// mirroring status.py's reset_false_completions. The rows become eligible
// again the next time the pending queue is rebuilt from the catalog; this
// handler does not add them to pending itself.
func (h *AppHandler) handleResetErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rows, err := h.store.ListByKind()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	now := time.Now().Unix()
	cleared := 0
	for _, row := range rows {
		if row.Status() != models.StatusMissing || row.RetryAfter() == nil || *row.RetryAfter() <= now {
			continue
		}
		if err := h.store.MarkFailure(row.Identity(), row.LastError(), time.Unix(0, 0)); err != nil {
			h.writeError(w, http.StatusInternalServerError, err)
			return
		}
		cleared++
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func (h *AppHandler) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, h.cfg.Get())
	case http.MethodPost:
		var cfg shared.SyncConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := cfg.Validate(); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.cfg.Set(cfg); err != nil {
			h.writeError(w, http.StatusInternalServerError, err)
			return
		}
		h.writeJSON(w, http.StatusOK, cfg)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type artistSummary struct {
	Name       string `json:"name"`
	Songs      int    `json:"songs"`
	Downloaded int    `json:"downloaded"`
}

type albumSummary struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Songs      int    `json:"songs"`
	Downloaded int    `json:"downloaded"`
}

// handleCatalog serves the §6 diagnostics projection, computed on demand
// from [catalog.Store.ListByKind] rather than a separately maintained cache:
// the catalog table itself already is the in-memory-refreshed projection's
// source of truth, and SQLite scans of a few thousand rows are fast enough
// that a dedicated cache layer would only add a staleness bug to debug.
func (h *AppHandler) handleCatalog(w http.ResponseWriter, r *http.Request, kind string) {
	rows, err := h.store.ListByKind()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	switch kind {
	case "songs":
		h.writeJSON(w, http.StatusOK, rows)
	case "artists":
		byArtist := map[string]*artistSummary{}
		var order []string
		for _, t := range rows {
			a, ok := byArtist[t.Artist()]
			if !ok {
				a = &artistSummary{Name: t.Artist()}
				byArtist[t.Artist()] = a
				order = append(order, t.Artist())
			}
			a.Songs++
			if t.Status() == models.StatusDownloaded {
				a.Downloaded++
			}
		}
		out := make([]*artistSummary, 0, len(order))
		for _, name := range order {
			out = append(out, byArtist[name])
		}
		h.writeJSON(w, http.StatusOK, out)
	case "albums":
		type key struct{ artist, album string }
		byAlbum := map[key]*albumSummary{}
		var order []key
		for _, t := range rows {
			if t.Album() == "" {
				continue
			}
			k := key{t.Artist(), t.Album()}
			a, ok := byAlbum[k]
			if !ok {
				a = &albumSummary{Name: t.Album(), Artist: t.Artist()}
				byAlbum[k] = a
				order = append(order, k)
			}
			a.Songs++
			if t.Status() == models.StatusDownloaded {
				a.Downloaded++
			}
		}
		out := make([]*albumSummary, 0, len(order))
		for _, k := range order {
			out = append(out, byAlbum[k])
		}
		h.writeJSON(w, http.StatusOK, out)
	}
}

func (h *AppHandler) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	_, ok, err := h.store.GetSetting("playlist_provider_token")
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"authenticated": ok})
}

// handleAuthLogin redirects to the playlist provider's authorization URL.
// The matching /callback route is served separately by [OAuthHandler],
// mounted alongside this handler by the daemon's setup flow.
func (h *AppHandler) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauthCfg == nil {
		h.writeError(w, http.StatusServiceUnavailable, shared.ErrServiceUnavailable)
		return
	}
	state, err := shared.GenerateState()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h.oauthState != nil {
		h.oauthState.SetState(state)
	}
	http.Redirect(w, r, h.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusFound)
}

// handlePlaylists serves the provider's playlist list with a 900s TTL cache,
// per §9's "supplemented from original_source" note.
func (h *AppHandler) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	if h.playlists == nil {
		h.writeError(w, http.StatusServiceUnavailable, shared.ErrServiceUnavailable)
		return
	}

	h.mu.Lock()
	cached := h.playlistCache
	fresh := time.Since(h.playlistCacheAt) < playlistCacheTTL
	h.mu.Unlock()

	if fresh && cached != nil {
		h.writeJSON(w, http.StatusOK, h.mergeSelection(cached))
		return
	}

	list, err := h.playlists.ListPlaylists(r.Context())
	if err != nil {
		if fresh := cached != nil; fresh {
			// serve stale data rather than fail the whole request on a
			// transient rate-limit/auth hiccup.
			h.writeJSON(w, http.StatusOK, h.mergeSelection(cached))
			return
		}
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	h.mu.Lock()
	h.playlistCache = list
	h.playlistCacheAt = time.Now()
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, h.mergeSelection(list))
}

type playlistWithSelection struct {
	services.ProviderPlaylist
	shared.PlaylistStrategy `json:"selected"`
}

func (h *AppHandler) mergeSelection(list []services.ProviderPlaylist) []playlistWithSelection {
	selected := h.cfg.Get().SelectedPlaylists
	out := make([]playlistWithSelection, 0, len(list))
	for _, p := range list {
		out = append(out, playlistWithSelection{ProviderPlaylist: p, PlaylistStrategy: selected[p.ID]})
	}
	return out
}

// matchModeFor converts the §6 use_strict_matching config flag into a
// [matcher.Mode], reported by /download-status. The cmd package keeps its
// own copy of this conversion for the worker wiring.
func matchModeFor(strict bool) matcher.Mode {
	if strict {
		return matcher.ModeStrict
	}
	return matcher.ModeFuzzy
}
