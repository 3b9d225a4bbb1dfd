// Package catalog implements the Catalog Store: the durable table of tracks
// the orchestrator has seen across playlist syncs, their match/download
// status, and the bookkeeping (catalog version token, sync run history)
// needed to drive the rest of the system.
//
// It is grounded on the teacher's repository pattern (internal/repositories)
// but replaces the catch-UNIQUE-constraint-error dedupe idiom with SQLite's
// native ON CONFLICT upsert, matching storage.py's
// "INSERT ... ON CONFLICT(key) DO UPDATE SET value=excluded.value" approach.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/repositories"
	"github.com/desertthunder/audiosync/internal/shared"
)

// Store is the Catalog Store. It wraps the sync & download orchestrator's
// SQLite connection and exposes the operations §4.C names.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore wraps an already-migrated database connection.
func NewStore(db *sql.DB, logger *log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// UpsertTracks inserts newly-seen tracks and refreshes lastSeen/metadata for
// tracks already in the catalog, without disturbing their download state.
// identityOf computes the canonical identity key for a fetched track; it is
// supplied by the caller (the matcher package) rather than imported here, to
// keep this package free of a hard dependency on matching internals.
func (s *Store) UpsertTracks(tracks []models.Track, expandedFrom models.ExpandedFrom, identityOf func(models.Track) string) (fetched, upserted int, err error) {
	now := time.Now()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO tracks (identity, artist, title, album, duration, playlist_id, source_id, expanded_from, status, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)
		ON CONFLICT(identity) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			album = excluded.album,
			duration = excluded.duration,
			playlist_id = excluded.playlist_id,
			source_id = excluded.source_id,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("prepare upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		fetched++
		identity := identityOf(t)
		if _, err := stmt.Exec(identity, t.Artist, t.Title, t.Album, t.Duration, t.PlaylistID, t.SourceID, string(expandedFrom), now.Unix()); err != nil {
			return fetched, upserted, fmt.Errorf("upsert track %q: %w", identity, err)
		}
		upserted++
	}

	if upserted > 0 {
		if _, err := bumpCatalogVersion(tx); err != nil {
			return fetched, upserted, err
		}
	}

	if err := tx.Commit(); err != nil {
		return fetched, upserted, fmt.Errorf("commit upsert transaction: %w", err)
	}
	return fetched, upserted, nil
}

// MarkSuccess transitions a catalog row to downloaded, recording where the
// file landed and resetting its retry/error/attempt state (data model
// invariant: downloadAttempts is always 0 once status=downloaded).
func (s *Store) MarkSuccess(identity, localPath string) error {
	_, err := s.db.Exec(`
		UPDATE tracks SET status = 'downloaded', local_path = ?, last_error = '', retry_after = NULL,
		       download_attempts = 0, last_seen = ?
		WHERE identity = ?
	`, localPath, time.Now().Unix(), identity)
	if err != nil {
		return fmt.Errorf("mark success for %q: %w", identity, err)
	}
	return nil
}

// MarkFailure records a failed download attempt, the backoff deadline for
// the next retry, and increments the attempt counter. The row becomes
// status=missing: the only status selectForQueue considers eligible.
func (s *Store) MarkFailure(identity, reason string, retryAfter time.Time) error {
	_, err := s.db.Exec(`
		UPDATE tracks
		SET status = 'missing', last_error = ?, retry_after = ?, download_attempts = download_attempts + 1
		WHERE identity = ?
	`, reason, retryAfter.Unix(), identity)
	if err != nil {
		return fmt.Errorf("mark failure for %q: %w", identity, err)
	}
	return nil
}

// ReconcileAgainstDisk is the only operation that transitions rows between
// downloaded and missing, forcing status to match file-exists(localPath):
// a file present on disk upgrades a non-downloaded row to downloaded; a file
// absent downgrades a non-missing row to missing. A freshly upserted row
// (empty localPath) is downgraded to missing on its first reconcile pass,
// which is what makes it eligible for selectForQueue.
// exists is supplied by the caller so this package does not need to reach
// into os.Stat directly, keeping it testable without a filesystem.
func (s *Store) ReconcileAgainstDisk(exists func(path string) bool) (flipped int, err error) {
	rows, err := s.db.Query(`SELECT identity, local_path, status FROM tracks`)
	if err != nil {
		return 0, fmt.Errorf("query tracks for reconciliation: %w", err)
	}
	type row struct{ identity, path, status string }
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.identity, &r.path, &r.status); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan track for reconciliation: %w", err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate tracks for reconciliation: %w", err)
	}

	now := time.Now().Unix()
	for _, r := range all {
		present := r.path != "" && exists(r.path)
		switch {
		case present && r.status != string(models.StatusDownloaded):
			_, err = s.db.Exec(`
				UPDATE tracks SET status = 'downloaded', last_error = '', retry_after = NULL, last_seen = ?
				WHERE identity = ?
			`, now, r.identity)
		case !present && r.status != string(models.StatusMissing):
			_, err = s.db.Exec(`UPDATE tracks SET status = 'missing' WHERE identity = ?`, r.identity)
		default:
			continue
		}
		if err != nil {
			return flipped, fmt.Errorf("reconcile %q: %w", r.identity, err)
		}
		flipped++
		if s.logger != nil {
			s.logger.Debug("reconciled catalog row against disk", "identity", r.identity, "present", present)
		}
	}
	return flipped, nil
}

// SelectForQueue returns rows eligible for download right now: status=missing
// and either never deferred or past their backoff deadline, ordered by
// lastSeen ascending. limit <= 0 means no limit.
func (s *Store) SelectForQueue(limit int) ([]*models.CatalogTrack, error) {
	query := `
		SELECT id, identity, artist, title, album, duration, playlist_id, source_id,
		       expanded_from, status, local_path, last_error, retry_after,
		       download_attempts, last_seen
		FROM tracks
		WHERE status = 'missing' AND (retry_after IS NULL OR retry_after <= ?)
		ORDER BY last_seen ASC
	`
	args := []any{time.Now().Unix()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select for queue: %w", err)
	}
	defer rows.Close()

	var out []*models.CatalogTrack
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns a single catalog row by identity.
func (s *Store) Get(identity string) (*models.CatalogTrack, error) {
	row := s.db.QueryRow(`
		SELECT id, identity, artist, title, album, duration, playlist_id, source_id,
		       expanded_from, status, local_path, last_error, retry_after,
		       download_attempts, last_seen
		FROM tracks WHERE identity = ?
	`, identity)
	return scanTrack(row)
}

// Counts aggregates the catalog the way §4.C's counts() operation and the
// /status endpoint need: total songs, distinct artists, distinct non-empty
// albums, and per-status breakdowns.
type Counts struct {
	Songs           int
	Artists         int
	Albums          int
	Downloaded      int
	Missing         int
	Pending         int
}

// Counts returns the aggregate catalog counters.
func (s *Store) Counts() (Counts, error) {
	var c Counts
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&c.Songs); err != nil {
		return c, fmt.Errorf("count songs: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT artist) FROM tracks`).Scan(&c.Artists); err != nil {
		return c, fmt.Errorf("count artists: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT album) FROM tracks WHERE album != ''`).Scan(&c.Albums); err != nil {
		return c, fmt.Errorf("count albums: %w", err)
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tracks GROUP BY status`)
	if err != nil {
		return c, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return c, fmt.Errorf("scan status count: %w", err)
		}
		switch models.Status(status) {
		case models.StatusDownloaded:
			c.Downloaded = n
		case models.StatusMissing:
			c.Missing = n
		case models.StatusPending:
			c.Pending = n
		}
	}
	return c, rows.Err()
}

// ListByKind returns all catalog rows ordered by artist, album, title, used by
// the /catalog/{songs|artists|albums} diagnostics endpoints and the export
// command. It takes no kind argument: grouping into artists or albums is done
// by the caller.
func (s *Store) ListByKind() ([]*models.CatalogTrack, error) {
	rows, err := s.db.Query(`
		SELECT id, identity, artist, title, album, duration, playlist_id, source_id,
		       expanded_from, status, local_path, last_error, retry_after,
		       download_attempts, last_seen
		FROM tracks ORDER BY artist, album, title
	`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var out []*models.CatalogTrack
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (*models.CatalogTrack, error) {
	var (
		id, identity, artist, title, album string
		duration                           int
		playlistID, sourceID               string
		expandedFrom, status               string
		localPath, lastError               string
		retryAfter                         sql.NullInt64
		downloadAttempts                   int
		lastSeen                           int64
	)
	if err := row.Scan(&id, &identity, &artist, &title, &album, &duration, &playlistID, &sourceID,
		&expandedFrom, &status, &localPath, &lastError, &retryAfter, &downloadAttempts, &lastSeen); err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrTrackNotFound
		}
		return nil, fmt.Errorf("scan catalog track: %w", err)
	}

	var retryAfterPtr *int64
	if retryAfter.Valid {
		retryAfterPtr = &retryAfter.Int64
	}

	seenAt := time.Unix(lastSeen, 0)
	return models.HydrateCatalogTrack(
		id, identity, artist, title, album, duration, playlistID, sourceID,
		models.ExpandedFrom(expandedFrom), models.Status(status), localPath, lastError,
		retryAfterPtr, downloadAttempts, lastSeen, seenAt, seenAt,
	), nil
}

// StartSyncRun creates a new "running" sync_runs row and returns it.
func (s *Store) StartSyncRun(reason string) (*models.SyncRun, error) {
	seq, err := repositories.NextSequence(s.db, "sync_runs")
	if err != nil {
		return nil, fmt.Errorf("next sync run sequence: %w", err)
	}

	run := models.NewSyncRun(seq, reason)
	id := shared.GenerateID()
	run.SetID(id)

	_, err = s.db.Exec(`
		INSERT INTO sync_runs (sequence, reason, status, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, seq, reason, run.Status(), run.StartedAt().Unix(), run.CreatedAt().Unix(), run.UpdatedAt().Unix())
	if err != nil {
		return nil, fmt.Errorf("insert sync run: %w", err)
	}

	// sync_runs.id is the autoincrement rowid, not our uuid; callers address
	// a run by sequence number, so stash it there for the public ID too.
	run.SetID(fmt.Sprintf("%d", seq))
	return run, nil
}

// FinishSyncRun marks a sync run terminal with its final counters.
func (s *Store) FinishSyncRun(sequence int, status string, tracksFetched, tracksUpserted int, errMsg string) error {
	now := time.Now()
	_, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = ?, tracks_fetched = ?, tracks_upserted = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE sequence = ?
	`, status, tracksFetched, tracksUpserted, errMsg, now.Unix(), now.Unix(), sequence)
	if err != nil {
		return fmt.Errorf("finish sync run %d: %w", sequence, err)
	}
	return nil
}

// RecentSyncRuns returns the most recent sync runs, newest first, for the
// /status endpoint's history panel.
func (s *Store) RecentSyncRuns(limit int) ([]*models.SyncRun, error) {
	rows, err := s.db.Query(`
		SELECT sequence, reason, status, tracks_fetched, tracks_upserted, error_message,
		       started_at, completed_at, created_at, updated_at
		FROM sync_runs ORDER BY sequence DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncRun
	for rows.Next() {
		var (
			sequence                     int
			reason, status, errorMessage string
			tracksFetched, tracksUpserted int
			startedAt, createdAt, updatedAt int64
			completedAt                  sql.NullInt64
		)
		if err := rows.Scan(&sequence, &reason, &status, &tracksFetched, &tracksUpserted, &errorMessage,
			&startedAt, &completedAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		var completedAtPtr *time.Time
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0)
			completedAtPtr = &t
		}
		out = append(out, models.HydrateSyncRun(
			fmt.Sprintf("%d", sequence), sequence, reason, status, tracksFetched, tracksUpserted, errorMessage,
			time.Unix(startedAt, 0), completedAtPtr, time.Unix(createdAt, 0), time.Unix(updatedAt, 0),
		))
	}
	return out, rows.Err()
}
