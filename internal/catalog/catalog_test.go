package catalog

import (
	"testing"
	"time"

	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(db, nil)
}

func identityOf(t models.Track) string {
	return t.Artist + "|" + t.Title
}

func TestStore_UpsertTracks(t *testing.T) {
	store := newTestStore(t)

	tracks := []models.Track{
		{Artist: "Radiohead", Title: "Airbag", Album: "OK Computer", Duration: 284, PlaylistID: "p1"},
		{Artist: "Radiohead", Title: "Paranoid Android", Album: "OK Computer", Duration: 383, PlaylistID: "p1"},
	}

	fetched, upserted, err := store.UpsertTracks(tracks, models.ExpandedFromPlaylist, identityOf)
	if err != nil {
		t.Fatalf("UpsertTracks: %v", err)
	}
	if fetched != 2 || upserted != 2 {
		t.Errorf("expected 2 fetched/upserted, got %d/%d", fetched, upserted)
	}

	got, err := store.Get("Radiohead|Airbag")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status() != models.StatusPending {
		t.Errorf("expected new row to be pending, got %s", got.Status())
	}

	// Re-upserting must not disturb status set by a later download.
	if err := store.MarkSuccess("Radiohead|Airbag", "/music/Radiohead/OK Computer/Airbag.mp3"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}

	if _, _, err := store.UpsertTracks(tracks, models.ExpandedFromPlaylist, identityOf); err != nil {
		t.Fatalf("second UpsertTracks: %v", err)
	}

	got, err = store.Get("Radiohead|Airbag")
	if err != nil {
		t.Fatalf("Get after re-upsert: %v", err)
	}
	if got.Status() != models.StatusDownloaded {
		t.Errorf("re-upserting a downloaded track must preserve its status, got %s", got.Status())
	}
}

func TestStore_MarkFailureAndSelectForQueue(t *testing.T) {
	store := newTestStore(t)

	tracks := []models.Track{{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 230}}
	if _, _, err := store.UpsertTracks(tracks, models.ExpandedFromPlaylist, identityOf); err != nil {
		t.Fatalf("UpsertTracks: %v", err)
	}

	identity := identityOf(tracks[0])

	// A freshly upserted row has localPath empty, so reconciling against an
	// empty disk downgrades it to missing, making it queue-eligible.
	if _, err := store.ReconcileAgainstDisk(func(string) bool { return false }); err != nil {
		t.Fatalf("ReconcileAgainstDisk: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := store.MarkFailure(identity, "no candidate matched", future); err != nil {
		t.Fatalf("MarkFailure: %v", err)
	}

	queued, err := store.SelectForQueue(0)
	if err != nil {
		t.Fatalf("SelectForQueue: %v", err)
	}
	if len(queued) != 0 {
		t.Errorf("a track deferred into the future must not be selected, got %d", len(queued))
	}

	if err := store.MarkFailure(identity, "no candidate matched", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("MarkFailure (past): %v", err)
	}

	queued, err = store.SelectForQueue(0)
	if err != nil {
		t.Fatalf("SelectForQueue: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 eligible track, got %d", len(queued))
	}
	if queued[0].DownloadAttempts() != 2 {
		t.Errorf("expected download_attempts to be 2 after two failures, got %d", queued[0].DownloadAttempts())
	}

	if err := store.MarkSuccess(identity, "/music/Boards of Canada/Roygbiv.mp3"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	got, err := store.Get(identity)
	if err != nil {
		t.Fatalf("Get after MarkSuccess: %v", err)
	}
	if got.Status() != models.StatusDownloaded {
		t.Errorf("expected status downloaded after MarkSuccess, got %s", got.Status())
	}
	if got.DownloadAttempts() != 0 {
		t.Errorf("expected download_attempts reset to 0 after MarkSuccess, got %d", got.DownloadAttempts())
	}
}

func TestStore_ReconcileAgainstDisk(t *testing.T) {
	store := newTestStore(t)

	tracks := []models.Track{{Artist: "Aphex Twin", Title: "Windowlicker"}}
	if _, _, err := store.UpsertTracks(tracks, models.ExpandedFromPlaylist, identityOf); err != nil {
		t.Fatalf("UpsertTracks: %v", err)
	}
	identity := identityOf(tracks[0])
	if err := store.MarkSuccess(identity, "/music/Aphex Twin/Windowlicker.mp3"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}

	flipped, err := store.ReconcileAgainstDisk(func(path string) bool { return false })
	if err != nil {
		t.Fatalf("ReconcileAgainstDisk: %v", err)
	}
	if flipped != 1 {
		t.Errorf("expected 1 row flipped to missing, got %d", flipped)
	}

	got, err := store.Get(identity)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status() != models.StatusMissing {
		t.Errorf("expected status missing after reconcile, got %s", got.Status())
	}
}

func TestStore_Counts(t *testing.T) {
	store := newTestStore(t)

	tracks := []models.Track{
		{Artist: "A", Title: "One"},
		{Artist: "A", Title: "Two"},
	}
	if _, _, err := store.UpsertTracks(tracks, models.ExpandedFromPlaylist, identityOf); err != nil {
		t.Fatalf("UpsertTracks: %v", err)
	}
	if err := store.MarkSuccess("A|One", "/music/A/One.mp3"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}

	counts, err := store.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Songs != 2 {
		t.Errorf("expected 2 songs, got %d", counts.Songs)
	}
	if counts.Downloaded != 1 {
		t.Errorf("expected 1 downloaded, got %d", counts.Downloaded)
	}
	if counts.Pending != 1 {
		t.Errorf("expected 1 still pending, got %d", counts.Pending)
	}
}

func TestStore_SyncRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	run, err := store.StartSyncRun("manual")
	if err != nil {
		t.Fatalf("StartSyncRun: %v", err)
	}
	if run.Status() != "running" {
		t.Errorf("expected new run to be running, got %s", run.Status())
	}

	if err := store.FinishSyncRun(run.Sequence(), "succeeded", 10, 8, ""); err != nil {
		t.Fatalf("FinishSyncRun: %v", err)
	}

	runs, err := store.RecentSyncRuns(5)
	if err != nil {
		t.Fatalf("RecentSyncRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status() != "succeeded" || runs[0].TracksUpserted() != 8 {
		t.Errorf("unexpected finished run: status=%s upserted=%d", runs[0].Status(), runs[0].TracksUpserted())
	}
}
