// Package worker implements the Download Worker (§4.F): a single-flight
// loop that pulls one item off the pending queue at a time, resolves it
// against the video-catalog search, downloads the best match, and records
// the result.
//
// Grounded on original_source/youspotter/sync_service.py's
// _download_worker_loop/_process_download_queue for the heartbeat-poll
// loop, pause/resume handling, recently-failed skip list, and exponential
// backoff schedule (delay_n = min(300*3^(n-1), 21600)).
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/desertthunder/audiosync/internal/catalog"
	"github.com/desertthunder/audiosync/internal/matcher"
	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/pathtemplate"
	"github.com/desertthunder/audiosync/internal/queue"
	"github.com/desertthunder/audiosync/internal/services"
	"github.com/desertthunder/audiosync/internal/shared"
)

// DownloadTimeout bounds a single download attempt, per §4.F.
const DownloadTimeout = 300 * time.Second

// pollInterval is how often the worker wakes to check the queue when it
// has nothing in flight.
const pollInterval = time.Second

// recentlyFailedCapacity bounds the in-memory skip set; beyond this many
// distinct failures tracked, the oldest eviction just means an item is
// retried a little sooner than its backoff would otherwise allow.
const recentlyFailedCapacity = 256

// skipThreshold is how many skipped-over pending items, summed over queue
// passes that found nothing eligible, trigger clearing the recently-failed
// set, letting a long-stalled queue retry everything rather than starve
// forever behind cooldowns. The sum is not reset by a pass that picks an item.
const skipThreshold = 50

// Config carries the operator-tunable knobs the worker needs per cycle.
type Config struct {
	HostPath     string
	PathTemplate string
	Format       string
	MatchMode    matcher.Mode
}

// ConfigFunc returns the current configuration, read fresh on each queue
// pass so a live config reload takes effect without restarting the worker.
type ConfigFunc func() Config

// Worker drains the queue's pending section one item at a time.
type Worker struct {
	store     *catalog.Store
	q         *queue.Queue
	search    services.CatalogSearch
	extractor services.Extractor
	cfg       ConfigFunc
	logger    *log.Logger

	paused atomic.Bool

	mu            sync.Mutex
	recentlyFailed *lru.Cache[string, struct{}]
	skipped        int
	cancel         context.CancelFunc
}

// New creates a worker over the given catalog, live queue, and
// collaborators.
func New(store *catalog.Store, q *queue.Queue, search services.CatalogSearch, extractor services.Extractor, cfg ConfigFunc, logger *log.Logger) *Worker {
	cache, _ := lru.New[string, struct{}](recentlyFailedCapacity)
	return &Worker{store: store, q: q, search: search, extractor: extractor, cfg: cfg, logger: logger, recentlyFailed: cache}
}

// Pause stops the worker from starting new downloads; an in-flight
// download is not interrupted.
func (w *Worker) Pause() { w.paused.Store(true) }

// Resume clears a prior Pause.
func (w *Worker) Resume() { w.paused.Store(false) }

// Paused reports the current pause state.
func (w *Worker) Paused() bool { return w.paused.Load() }

// Cancel aborts the in-flight download, if any, returning its item to the
// front of pending without a backoff penalty.
func (w *Worker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run blocks, processing the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.Paused() {
				continue
			}
			w.processOnce(ctx)
		}
	}
}

// ToQueueItem converts a catalog row into the minimal shape the queue
// tracks, for callers (the orchestrator's reconcile step) that rebuild
// pending from [catalog.Store.SelectForQueue].
func ToQueueItem(t *models.CatalogTrack) queue.Item {
	return queue.Item{Artist: t.Artist(), Title: t.Title(), Album: t.Album(), Duration: t.Duration()}
}

// processOnce performs one pass of §4.F's sequential download policy: skip
// entirely if something is already current, otherwise pick the first
// pending item not in cooldown and process it to completion.
func (w *Worker) processOnce(ctx context.Context) {
	if lens := w.q.Len(); lens.Current > 0 {
		return
	}

	pending := w.q.Pending()
	if len(pending) == 0 {
		return
	}

	now := time.Now()
	var item *queue.Item
	skipped := 0
	for i := range pending {
		key := matcher.Identity(pending[i].Artist, pending[i].Title, pending[i].Duration)
		if w.recentlyFailed.Contains(key) {
			skipped++
			continue
		}
		row, err := w.store.Get(key)
		if err == nil && row.RetryAfter() != nil && time.Unix(*row.RetryAfter(), 0).After(now) {
			skipped++
			continue
		}
		item = &pending[i]
		break
	}

	if item == nil {
		w.mu.Lock()
		w.skipped += skipped
		exceeded := w.skipped >= skipThreshold
		if exceeded {
			w.recentlyFailed.Purge()
			w.skipped = 0
		}
		w.mu.Unlock()
		if exceeded && len(pending) > 0 {
			item = &pending[0]
		} else {
			return
		}
	}

	w.downloadOne(ctx, *item)
}

func (w *Worker) downloadOne(ctx context.Context, item queue.Item) {
	if !w.q.MoveToCurrent(item) {
		return
	}

	identity := matcher.Identity(item.Artist, item.Title, item.Duration)
	target := models.Track{Artist: item.Artist, Title: item.Title, Album: item.Album, Duration: item.Duration}
	cfg := w.cfg()

	candidates, err := w.search.SearchCandidates(ctx, target)
	if err != nil {
		w.fail(identity, item, err)
		return
	}

	picked, ok := matcher.FirstMatch(cfg.MatchMode, target, candidates)
	if !ok {
		w.fail(identity, item, shared.ErrNoMatch)
		return
	}

	destPath, err := destinationFor(cfg, item)
	if err != nil {
		w.fail(identity, item, err)
		return
	}

	downloadCtx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	err = w.extractor.Download(downloadCtx, picked, destPath, func(pct int) {
		w.q.UpdateProgress(item, pct)
	})

	cancel()
	w.mu.Lock()
	w.cancel = nil
	w.mu.Unlock()

	if err != nil {
		if err == shared.ErrDownloadCancelled || downloadCtx.Err() == context.Canceled {
			w.q.Complete(item, false)
			w.q.Prepend(item)
			return
		}
		w.fail(identity, item, err)
		return
	}

	if err := w.store.MarkSuccess(identity, destPath); err != nil && w.logger != nil {
		w.logger.Error("mark success failed", "identity", identity, "err", err)
	}
	w.q.Complete(item, true)
}

func destinationFor(cfg Config, item queue.Item) (string, error) {
	if err := pathtemplate.Validate(cfg.PathTemplate); err != nil {
		return "", err
	}
	rel := pathtemplate.Render(cfg.PathTemplate, pathtemplate.Fields{
		Artist: item.Artist,
		Album:  item.Album,
		Title:  item.Title,
		Ext:    cfg.Format,
	})
	return cfg.HostPath + "/" + rel, nil
}

// backoffDelay computes the §4.F exponential retry delay: 5 minutes on
// first failure, tripling thereafter, capped at 6 hours.
func backoffDelay(attempts int) time.Duration {
	if attempts <= 1 {
		return 5 * time.Minute
	}
	delay := 300
	for i := 1; i < attempts; i++ {
		delay *= 3
		if delay >= 21600 {
			return 21600 * time.Second
		}
	}
	return time.Duration(delay) * time.Second
}

func (w *Worker) fail(identity string, item queue.Item, cause error) {
	w.recentlyFailed.Add(identity, struct{}{})

	row, err := w.store.Get(identity)
	attempts := 1
	if err == nil {
		attempts = row.DownloadAttempts() + 1
	}
	retryAfter := time.Now().Add(backoffDelay(attempts))

	if err := w.store.MarkFailure(identity, cause.Error(), retryAfter); err != nil && w.logger != nil {
		w.logger.Error("mark failure failed", "identity", identity, "err", err)
	}
	w.q.Complete(item, false)
}
