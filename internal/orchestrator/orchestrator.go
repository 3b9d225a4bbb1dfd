// Package orchestrator wires the matcher, catalog store, queue, and
// single-flight lock together around the sync cycle (§4.E): fetching the
// configured playlists, expanding artists/albums, deduping and upserting
// into the catalog, and reconciling the catalog against disk to rebuild the
// live download queue. It also drives the interval scheduler that invokes
// the cycle unattended.
//
// Grounded on original_source/youspotter/sync_service.py's
// run_sync_cycle/_scheduler_loop for the acquire-run-reschedule shape, and
// on [synclock.Lock] for the single-flight discipline it relies on.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/audiosync/internal/catalog"
	"github.com/desertthunder/audiosync/internal/matcher"
	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/queue"
	"github.com/desertthunder/audiosync/internal/services"
	"github.com/desertthunder/audiosync/internal/shared"
	"github.com/desertthunder/audiosync/internal/synclock"
	"github.com/desertthunder/audiosync/internal/worker"
)

// defaultInterval is the scheduler's fallback period when the live config
// has not yet supplied one.
const defaultInterval = 15 * time.Minute

// tickGranularity bounds how often the scheduler's wait loop re-checks the
// stop/reset signals and the next-run deadline, per §4.E's "≤ 1s
// granularity".
const tickGranularity = time.Second

// maxRecentEvents caps the human-readable activity log exposed to /status.
const maxRecentEvents = 50

// ConfigFunc returns the live sync configuration, read fresh on every cycle
// so a config reload takes effect without restarting the daemon.
type ConfigFunc func() shared.SyncConfig

// Event is one line of the recent-activity log.
type Event struct {
	TimestampUTC string `json:"timestamp_utc"`
	Message      string `json:"message"`
}

// Orchestrator owns the sync cycle and the scheduler loop that drives it.
type Orchestrator struct {
	store    *catalog.Store
	q        *queue.Queue
	lock     *synclock.Lock
	snapshot queue.SnapshotStore
	source   services.PlaylistSource
	cfg      ConfigFunc
	exists   func(path string) bool
	logger   *log.Logger

	mu      sync.Mutex
	nextRun time.Time
	recent  []Event

	stop  chan struct{}
	reset chan struct{}
}

// identityOf adapts [matcher.IdentityOf] to the signature
// [catalog.Store.UpsertTracks] expects.
var identityOf = matcher.IdentityOf

// New creates an Orchestrator. exists reports whether a local file is
// present; production callers pass a thin os.Stat wrapper, tests a fake.
func New(store *catalog.Store, q *queue.Queue, lock *synclock.Lock, snapshot queue.SnapshotStore, source services.PlaylistSource, cfg ConfigFunc, exists func(string) bool, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		q:        q,
		lock:     lock,
		snapshot: snapshot,
		source:   source,
		cfg:      cfg,
		exists:   exists,
		logger:   logger,
		stop:     make(chan struct{}),
		reset:    make(chan struct{}, 1),
	}
}

func (o *Orchestrator) interval() time.Duration {
	if sec := o.cfg().SyncIntervalSec; sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultInterval
}

// NextRun reports the scheduler's next-run timestamp, the zero time while a
// cycle is actually in flight.
func (o *Orchestrator) NextRun() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nextRun
}

func (o *Orchestrator) setNextRun(t time.Time) {
	o.mu.Lock()
	o.nextRun = t
	o.mu.Unlock()
}

// Recent returns the most recent activity-log lines, newest first.
func (o *Orchestrator) Recent() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.recent))
	copy(out, o.recent)
	return out
}

func (o *Orchestrator) logEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.mu.Lock()
	o.recent = append([]Event{{TimestampUTC: time.Now().UTC().Format(time.RFC3339), Message: msg}}, o.recent...)
	if len(o.recent) > maxRecentEvents {
		o.recent = o.recent[:maxRecentEvents]
	}
	o.mu.Unlock()
	if o.logger != nil {
		o.logger.Info(msg)
	}
}

// Stop signals the scheduler loop to exit at its next check.
func (o *Orchestrator) Stop() {
	select {
	case <-o.stop:
	default:
		close(o.stop)
	}
}

// ResetTimer rearms the next scheduled run to now + interval, without
// forcing a run. Used after a manual sync-now so the periodic schedule
// doesn't immediately pile a second run on top of it.
func (o *Orchestrator) ResetTimer() {
	select {
	case o.reset <- struct{}{}:
	default:
	}
}

// Run is the scheduler loop (§4.E): each iteration clears the next-run
// hint, invokes a scheduled sync cycle, then waits until the next deadline,
// watching for a stop or timer-reset signal at tickGranularity.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		default:
		}

		o.setNextRun(time.Time{})
		o.RunOnce("scheduled")

		deadline := time.Now().Add(o.interval())
		o.setNextRun(deadline)

		if o.waitUntil(ctx, deadline) {
			return
		}
	}
}

// waitUntil blocks until deadline, honoring stop/ctx-done (returns true) and
// timer-reset (rearms deadline and keeps waiting).
func (o *Orchestrator) waitUntil(ctx context.Context, deadline time.Time) (stopped bool) {
	ticker := time.NewTicker(tickGranularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return true
		case <-o.stop:
			return true
		case <-o.reset:
			deadline = time.Now().Add(o.interval())
			o.setNextRun(deadline)
		case <-ticker.C:
			if !time.Now().Before(deadline) {
				return false
			}
		}
	}
}

// TriggerNow runs a manual sync cycle outside the schedule, per the
// /sync-now endpoint. It shares the same single-flight lock as the
// scheduler, so a manual trigger while a scheduled run is in flight returns
// [shared.ErrSyncBusy] rather than running concurrently.
func (o *Orchestrator) TriggerNow() error {
	release, ok := o.lock.Try()
	if !ok {
		return shared.ErrSyncBusy
	}
	defer release()
	o.runLocked("manual")
	o.ResetTimer()
	return nil
}

// RunOnce attempts a single sync cycle under the given reason ("scheduled"
// or "manual"), returning false immediately without running anything if the
// lock is already held. The lock is held for the entire cycle body, so two
// concurrent callers never run runLocked at the same time.
func (o *Orchestrator) RunOnce(reason string) bool {
	release, ok := o.lock.Try()
	if !ok {
		o.logEvent("sync skipped (reason=%s): already in progress", reason)
		return false
	}
	defer release()
	return o.runLocked(reason)
}

// runLocked performs the actual cycle body; callers must already hold the
// single-flight lock for its entire duration.
func (o *Orchestrator) runLocked(reason string) bool {
	run, err := o.store.StartSyncRun(reason)
	if err != nil {
		o.logEvent("failed to start sync run: %v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fetched, upserted, syncErr := o.syncFromSource(ctx)

	status := "succeeded"
	errMsg := ""
	if syncErr != nil {
		status = "failed"
		errMsg = syncErr.Error()
	}
	if err := o.store.FinishSyncRun(run.Sequence(), status, fetched, upserted, errMsg); err != nil && o.logger != nil {
		o.logger.Error("failed to record sync run", "err", err)
	}

	flipped, err := o.reconcileCatalog()
	if err != nil && o.logger != nil {
		o.logger.Error("reconcile catalog failed", "err", err)
	}

	o.logEvent("sync %s (reason=%s): fetched=%d upserted=%d reconciled=%d", status, reason, fetched, upserted, flipped)
	return syncErr == nil
}

// syncFromSource fetches the selected playlists, expands artists/albums per
// their enabled strategies (capped at 100 ids each, per §4.E), dedupes by
// identity, and upserts the result into the catalog.
func (o *Orchestrator) syncFromSource(ctx context.Context) (fetched, upserted int, err error) {
	tracks, err := o.source.FetchPlaylistTracks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch playlist tracks: %w", err)
	}

	cfg := o.cfg()
	expanded := o.expandSelected(ctx, tracks, cfg)

	// UpsertTracks records one ExpandedFrom per batch rather than per row, so
	// tracks are deduped by identity (first sighting wins provenance) and
	// grouped into one batch per origin kind before upserting.
	seen := make(map[string]bool, len(tracks)+len(expanded))
	byKind := map[models.ExpandedFrom][]models.Track{}
	addUnseen := func(kind models.ExpandedFrom, ts []models.Track) {
		for _, t := range ts {
			key := identityOf(t)
			if seen[key] {
				continue
			}
			seen[key] = true
			byKind[kind] = append(byKind[kind], t)
		}
	}
	addUnseen(models.ExpandedFromPlaylist, tracks)
	for kind, ts := range expanded {
		addUnseen(kind, ts)
	}

	for kind, ts := range byKind {
		f, u, err := o.store.UpsertTracks(ts, kind, identityOf)
		fetched += f
		upserted += u
		if err != nil {
			return fetched, upserted, fmt.Errorf("upsert %s tracks: %w", kind, err)
		}
	}
	return fetched, upserted, nil
}

// expandSelected runs ExpandArtist/ExpandAlbum for every artist/album ID
// seen in the fetched tracks of a playlist whose strategy enables that
// expansion. A playlist with artist- or album-expansion enabled but
// song-fetching disabled contributes no IDs to expand: expansion only ever
// widens a playlist's own track list, it cannot discover artists/albums
// the orchestrator never saw.
func (o *Orchestrator) expandSelected(ctx context.Context, tracks []models.Track, cfg shared.SyncConfig) map[models.ExpandedFrom][]models.Track {
	artistIDs := map[string]bool{}
	albumIDs := map[string]bool{}
	for _, t := range tracks {
		strat, ok := cfg.SelectedPlaylists[t.PlaylistID]
		if !ok {
			continue
		}
		if strat.Artist && t.ArtistID != "" {
			artistIDs[t.ArtistID] = true
		}
		if strat.Album && t.AlbumID != "" {
			albumIDs[t.AlbumID] = true
		}
	}

	out := map[models.ExpandedFrom][]models.Track{}
	for id := range capIDs(artistIDs) {
		ts, err := o.source.ExpandArtist(ctx, id)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("artist expansion failed", "artist_id", id, "err", err)
			}
			continue
		}
		out[models.ExpandedFromArtist] = append(out[models.ExpandedFromArtist], ts...)
	}
	for id := range capIDs(albumIDs) {
		ts, err := o.source.ExpandAlbum(ctx, id)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("album expansion failed", "album_id", id, "err", err)
			}
			continue
		}
		out[models.ExpandedFromAlbum] = append(out[models.ExpandedFromAlbum], ts...)
	}
	return out
}

// expansionIDCap bounds how many artist or album ids a single cycle will
// expand, per §4.E.
const expansionIDCap = 100

func capIDs(ids map[string]bool) map[string]bool {
	if len(ids) <= expansionIDCap {
		return ids
	}
	out := make(map[string]bool, expansionIDCap)
	n := 0
	for id := range ids {
		if n >= expansionIDCap {
			break
		}
		out[id] = true
		n++
	}
	return out
}

// ReconcileResult summarises one reconcile pass for a log line / API
// response.
type ReconcileResult struct {
	Flipped int
	Counts  catalog.Counts
	Pending int
}

// reconcileCatalog is runOnce's post-upsert step: flip catalog rows to
// match what's actually on disk, rebuild the live pending queue from the
// rows now eligible for download, and persist a fresh queue snapshot.
func (o *Orchestrator) reconcileCatalog() (int, error) {
	flipped, err := o.store.ReconcileAgainstDisk(o.exists)
	if err != nil {
		return 0, fmt.Errorf("reconcile against disk: %w", err)
	}

	if err := o.RebuildQueue(); err != nil {
		return flipped, err
	}
	return flipped, nil
}

// RebuildQueue repopulates the queue's pending section from every catalog
// row currently eligible for download and persists the resulting snapshot.
// Exported so the filesystem watchdog's reconcile callback can trigger the
// same rebuild without running a full sync cycle.
func (o *Orchestrator) RebuildQueue() error {
	rows, err := o.store.SelectForQueue(0)
	if err != nil {
		return fmt.Errorf("select rows for queue: %w", err)
	}

	items := make([]queue.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, worker.ToQueueItem(r))
	}
	o.q.SetPending(items)

	if o.snapshot != nil {
		if err := o.snapshot.Save(o.q.Snapshot()); err != nil {
			return fmt.Errorf("persist queue snapshot: %w", err)
		}
	}
	return nil
}

// Restore loads the persisted queue snapshot (if any) into the live queue
// at process start, performing the §4.D startup-recovery algorithm.
func (o *Orchestrator) Restore() (queue.RestoreStats, error) {
	if o.snapshot == nil {
		return queue.RestoreStats{}, nil
	}
	doc, err := o.snapshot.Load()
	if err != nil {
		return queue.RestoreStats{}, fmt.Errorf("load queue snapshot: %w", err)
	}
	stats := o.q.Restore(doc)
	o.logEvent("restored queue: requeued=%d downloaded=%d missing=%d", stats.RequeuedFromCurrent, stats.Downloaded, stats.Missing)
	return stats, nil
}
