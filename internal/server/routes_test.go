package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/audiosync/internal/catalog"
	"github.com/desertthunder/audiosync/internal/queue"
	"github.com/desertthunder/audiosync/internal/services"
	"github.com/desertthunder/audiosync/internal/shared"
)

type fakeSyncer struct{}

func (fakeSyncer) TriggerNow() error          { return nil }
func (fakeSyncer) RunOnce(reason string) bool { return true }
func (fakeSyncer) NextRun() time.Time         { return time.Time{} }
func (fakeSyncer) Recent() []Event            { return nil }

type fakeWorker struct {
	paused    bool
	cancelled bool
}

func (f *fakeWorker) Pause()       { f.paused = true }
func (f *fakeWorker) Resume()      { f.paused = false }
func (f *fakeWorker) Paused() bool { return f.paused }
func (f *fakeWorker) Cancel()      { f.cancelled = true }

type fakeConfigStore struct{ cfg shared.SyncConfig }

func (f *fakeConfigStore) Get() shared.SyncConfig        { return f.cfg }
func (f *fakeConfigStore) Set(c shared.SyncConfig) error { f.cfg = c; return nil }

type fakePlaylistLister struct{}

func (fakePlaylistLister) ListPlaylists(ctx context.Context) ([]services.ProviderPlaylist, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, worker *fakeWorker) *AppHandler {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := catalog.NewStore(db, nil)
	q := queue.New(func(i queue.Item) string { return i.Artist + "|" + i.Title })

	return NewAppHandler(store, q, fakeSyncer{}, worker, &fakeConfigStore{}, fakePlaylistLister{}, nil, nil, nil)
}

// handlePause must stop the worker from picking up new items AND cancel any
// in-flight download, per the §4.F pause semantics — not just one or the
// other.
func TestHandlePause_CancelsInFlightDownload(t *testing.T) {
	worker := &fakeWorker{}
	h := newTestHandler(t, worker)

	req := httptest.NewRequest(http.MethodPost, "/pause-downloads", nil)
	rec := httptest.NewRecorder()
	h.handlePause(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !worker.paused {
		t.Errorf("expected Pause to be called")
	}
	if !worker.cancelled {
		t.Errorf("expected Cancel to be called so an in-flight download is aborted")
	}
}

func TestHandleResume(t *testing.T) {
	worker := &fakeWorker{paused: true}
	h := newTestHandler(t, worker)

	req := httptest.NewRequest(http.MethodPost, "/resume-downloads", nil)
	rec := httptest.NewRecorder()
	h.handleResume(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if worker.paused {
		t.Errorf("expected Resume to clear paused state")
	}
}
