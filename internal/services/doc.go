// Package services implements the three external collaborators the sync &
// download orchestrator depends on, each behind a narrow interface in
// services.go.
//
// # Playlist Provider
//
// [PlaylistProviderService] implements [PlaylistSource] against a
// Spotify-shaped Web API, reusing the teacher's OAuth2-client idiom and
// pagination handling, narrowed to the three read paths the orchestrator
// needs and throttled via [golang.org/x/time/rate] during artist/album
// expansion.
//
// # Catalog Search
//
// [CatalogSearchService] implements [CatalogSearch] against a proxied
// video-catalog backend, returning every song-type candidate and leaving
// scoring to the matcher package rather than trusting the backend's own
// ranking.
//
// # Extractor
//
// [ExtractorService] implements [Extractor] by streaming a
// newline-delimited JSON progress feed from the download proxy, driving a
// [ProgressFunc] as the extraction advances.
//
// # Error Handling
//
// Collaborators surface the sentinel errors from the shared package so the
// orchestrator can branch on failure class without string matching:
//   - [shared.ErrAuthDead] : provider authentication needs operator action
//   - [shared.ErrPartialAccess] : the provider forbade part of a request
//   - [shared.ErrRateLimited] : back off and retry the same cycle later
//   - [shared.ErrExtractorFailed] : the download proxy reported a failure
//   - [shared.ErrDownloadCancelled] : ctx was cancelled mid-download
package services
