// Package services defines the three external capabilities the orchestrator
// depends on: a playlist source to sync from, a catalog search to resolve
// candidates against, and an extractor to pull audio for a matched
// candidate. Each is a narrow interface so a concrete implementation (a
// proxied HTTP API) can be swapped for a fake in tests without the
// orchestrator knowing the difference.
package services

import (
	"context"

	"github.com/desertthunder/audiosync/internal/models"
)

// PlaylistSource fetches the tracks to sync and expands artist/album
// entries into their constituent tracks, per §4.E's sync-cycle inputs.
type PlaylistSource interface {
	// FetchPlaylistTracks returns every track across the configured
	// playlists, each tagged with its origin playlist ID.
	FetchPlaylistTracks(ctx context.Context) ([]models.Track, error)
	// ExpandArtist returns every track attributed to an artist entry
	// selected for expansion.
	ExpandArtist(ctx context.Context, artistID string) ([]models.Track, error)
	// ExpandAlbum returns every track on an album entry selected for
	// expansion.
	ExpandAlbum(ctx context.Context, albumID string) ([]models.Track, error)
}

// CatalogSearch resolves a target track into candidate matches on the
// backend that actually hosts downloadable audio, per §4.A.
type CatalogSearch interface {
	SearchCandidates(ctx context.Context, track models.Track) ([]models.Candidate, error)
}

// ProgressFunc reports a download's completion percentage, 0-100.
type ProgressFunc func(percent int)

// Extractor pulls audio for a matched candidate and writes it to
// destPath, per §4.F. It must respect ctx cancellation/timeout and call
// progress as the download advances.
type Extractor interface {
	Download(ctx context.Context, candidate models.Candidate, destPath string, progress ProgressFunc) error
}
