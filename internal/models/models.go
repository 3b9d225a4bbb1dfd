// package models defines the data model for the sync & download orchestrator.
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models the orchestrator
// keeps in its SQLite catalog.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track is the capability-interface DTO exchanged with the out-of-scope
// collaborators: the playlist source returns these from FetchPlaylistTracks/
// ExpandArtist/ExpandAlbum, and the video-catalog search client receives one
// as the target to search candidates for.
type Track struct {
	SourceID   string // the playlist-provider's own ID for this track, if any
	Title      string
	Artist     string
	ArtistID   string // the playlist-provider's ID for Artist, used to drive artist expansion
	Album      string
	AlbumID    string // the playlist-provider's ID for Album, used to drive album expansion
	Duration   int    // seconds
	PlaylistID string // which selected playlist this track was fetched for
}

// ExpandedFrom enumerates how a catalog row entered the catalog.
type ExpandedFrom string

const (
	ExpandedFromPlaylist ExpandedFrom = "playlist"
	ExpandedFromArtist   ExpandedFrom = "artist"
	ExpandedFromAlbum    ExpandedFrom = "album"
)

// Status enumerates a catalog row's lifecycle state (§3).
type Status string

const (
	StatusPending    Status = "pending"
	StatusDownloaded Status = "downloaded"
	StatusMissing    Status = "missing"
)

// CatalogTrack is the durable catalog row (§3's "Track (catalog row)"):
// the unit of work the orchestrator upserts, matches, downloads, and
// reconciles against disk.
type CatalogTrack struct {
	id               string
	identity         string
	artist           string
	title            string
	album            string
	duration         int
	playlistID       string
	sourceID         string
	expandedFrom     ExpandedFrom
	status           Status
	localPath        string
	lastError        string
	retryAfter       *int64 // epoch seconds; nil when not deferred
	downloadAttempts int
	lastSeen         int64 // epoch seconds
	createdAt        time.Time
	updatedAt        time.Time
}

func (t *CatalogTrack) ID() string           { return t.id }
func (t *CatalogTrack) CreatedAt() time.Time { return t.createdAt }
func (t *CatalogTrack) UpdatedAt() time.Time { return t.updatedAt }

// Validate enforces the non-emptiness invariants a catalog row must satisfy
// before it can be persisted.
func (t *CatalogTrack) Validate() error {
	if t.identity == "" {
		return fmt.Errorf("%w: identity is required", ErrInvalidModel)
	}
	if t.artist == "" || t.title == "" {
		return fmt.Errorf("%w: artist and title are required", ErrInvalidModel)
	}
	switch t.status {
	case StatusPending, StatusDownloaded, StatusMissing:
	default:
		return fmt.Errorf("%w: invalid status %q", ErrInvalidModel, t.status)
	}
	return nil
}

// NewCatalogTrack builds a fresh pending catalog row from a fetched Track and
// its provenance. Callers still call Validate before persisting.
func NewCatalogTrack(identity string, track Track, expandedFrom ExpandedFrom, now time.Time) *CatalogTrack {
	return &CatalogTrack{
		identity:     identity,
		artist:       track.Artist,
		title:        track.Title,
		album:        track.Album,
		duration:     track.Duration,
		playlistID:   track.PlaylistID,
		sourceID:     track.SourceID,
		expandedFrom: expandedFrom,
		status:       StatusPending,
		lastSeen:     now.Unix(),
		createdAt:    now,
		updatedAt:    now,
	}
}

func (t *CatalogTrack) Identity() string           { return t.identity }
func (t *CatalogTrack) Artist() string             { return t.artist }
func (t *CatalogTrack) Title() string              { return t.title }
func (t *CatalogTrack) Album() string              { return t.album }
func (t *CatalogTrack) Duration() int              { return t.duration }
func (t *CatalogTrack) PlaylistID() string         { return t.playlistID }
func (t *CatalogTrack) SourceID() string           { return t.sourceID }
func (t *CatalogTrack) ExpandedFrom() ExpandedFrom { return t.expandedFrom }
func (t *CatalogTrack) Status() Status             { return t.status }
func (t *CatalogTrack) LocalPath() string          { return t.localPath }
func (t *CatalogTrack) LastError() string          { return t.lastError }
func (t *CatalogTrack) RetryAfter() *int64         { return t.retryAfter }
func (t *CatalogTrack) DownloadAttempts() int      { return t.downloadAttempts }
func (t *CatalogTrack) LastSeen() int64            { return t.lastSeen }

func (t *CatalogTrack) SetID(id string)           { t.id = id }
func (t *CatalogTrack) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }
func (t *CatalogTrack) SetStatus(s Status)        { t.status = s }
func (t *CatalogTrack) SetLocalPath(p string)     { t.localPath = p }
func (t *CatalogTrack) SetLastError(e string)     { t.lastError = e }
func (t *CatalogTrack) SetRetryAfter(r *int64)    { t.retryAfter = r }
func (t *CatalogTrack) SetDownloadAttempts(n int) { t.downloadAttempts = n }
func (t *CatalogTrack) SetLastSeen(ts int64)      { t.lastSeen = ts }

// HydrateCatalogTrack reconstructs a CatalogTrack from persisted column
// values. It exists so the catalog package's row scanners, which live
// outside this package, can rebuild the unexported-field struct without
// going through the pending-row constructor or a public setter per field.
func HydrateCatalogTrack(
	id, identity, artist, title, album string,
	duration int,
	playlistID, sourceID string,
	expandedFrom ExpandedFrom,
	status Status,
	localPath, lastError string,
	retryAfter *int64,
	downloadAttempts int,
	lastSeen int64,
	createdAt, updatedAt time.Time,
) *CatalogTrack {
	return &CatalogTrack{
		id:               id,
		identity:         identity,
		artist:           artist,
		title:            title,
		album:            album,
		duration:         duration,
		playlistID:       playlistID,
		sourceID:         sourceID,
		expandedFrom:     expandedFrom,
		status:           status,
		localPath:        localPath,
		lastError:        lastError,
		retryAfter:       retryAfter,
		downloadAttempts: downloadAttempts,
		lastSeen:         lastSeen,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// Candidate is a search result from the video-catalog backend, proposed as a
// realisation of a target [CatalogTrack].
type Candidate struct {
	ID       string // the video-catalog backend's own ID (e.g. a URL or video ID)
	Title    string
	Artist   string
	Duration int
	Official bool // true if the candidate looks like an official upload
}

// SyncRun is an audit record of one invocation of runOnce, kept so operators
// can see recent sync history without replaying logs. Adapted from the
// teacher's MigrationJob shape (a single tracked async operation with
// progress counters and terminal status).
type SyncRun struct {
	id             string
	sequence       int
	reason         string // "scheduled" | "manual"
	status         string // "running" | "succeeded" | "failed"
	tracksFetched  int
	tracksUpserted int
	errorMessage   string
	startedAt      time.Time
	completedAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func (s *SyncRun) ID() string           { return s.id }
func (s *SyncRun) CreatedAt() time.Time { return s.createdAt }
func (s *SyncRun) UpdatedAt() time.Time { return s.updatedAt }

func (s *SyncRun) Validate() error {
	if s.id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidModel)
	}
	if s.reason != "scheduled" && s.reason != "manual" {
		return fmt.Errorf("%w: invalid reason %q", ErrInvalidModel, s.reason)
	}
	return nil
}

// NewSyncRun starts a new SyncRun record in the "running" state.
func NewSyncRun(sequence int, reason string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:  sequence,
		reason:    reason,
		status:    "running",
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *SyncRun) Reason() string          { return s.reason }
func (s *SyncRun) Status() string          { return s.status }
func (s *SyncRun) TracksFetched() int      { return s.tracksFetched }
func (s *SyncRun) TracksUpserted() int     { return s.tracksUpserted }
func (s *SyncRun) ErrorMessage() string    { return s.errorMessage }
func (s *SyncRun) StartedAt() time.Time    { return s.startedAt }
func (s *SyncRun) CompletedAt() *time.Time { return s.completedAt }
func (s *SyncRun) Sequence() int           { return s.sequence }

func (s *SyncRun) SetID(id string)              { s.id = id }
func (s *SyncRun) SetUpdatedAt(t time.Time)     { s.updatedAt = t }
func (s *SyncRun) SetStatus(status string)      { s.status = status }
func (s *SyncRun) SetTracksFetched(n int)       { s.tracksFetched = n }
func (s *SyncRun) SetTracksUpserted(n int)      { s.tracksUpserted = n }
func (s *SyncRun) SetErrorMessage(msg string)   { s.errorMessage = msg }
func (s *SyncRun) SetCompletedAt(t *time.Time)  { s.completedAt = t }

// HydrateSyncRun reconstructs a SyncRun from persisted column values, for
// the same reason [HydrateCatalogTrack] exists.
func HydrateSyncRun(
	id string,
	sequence int,
	reason, status string,
	tracksFetched, tracksUpserted int,
	errorMessage string,
	startedAt time.Time,
	completedAt *time.Time,
	createdAt, updatedAt time.Time,
) *SyncRun {
	return &SyncRun{
		id:             id,
		sequence:       sequence,
		reason:         reason,
		status:         status,
		tracksFetched:  tracksFetched,
		tracksUpserted: tracksUpserted,
		errorMessage:   errorMessage,
		startedAt:      startedAt,
		completedAt:    completedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ErrInvalidModel is returned when a model fails validation
var ErrInvalidModel = fmt.Errorf("invalid model")
