package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Sync & download orchestrator errors
	ErrAuthDead         = fmt.Errorf("playlist provider authentication is dead")
	ErrPartialAccess    = fmt.Errorf("playlist access partially forbidden")
	ErrRateLimited      = fmt.Errorf("playlist provider rate limited")
	ErrNoMatch          = fmt.Errorf("no candidate matched")
	ErrExtractorFailed  = fmt.Errorf("audio extractor failed")
	ErrDownloadCancelled = fmt.Errorf("download cancelled")
	ErrSyncBusy         = fmt.Errorf("sync already in progress")
	ErrCorruptSnapshot  = fmt.Errorf("queue snapshot is corrupt")
	ErrInvalidTemplate  = fmt.Errorf("invalid path template")
)
