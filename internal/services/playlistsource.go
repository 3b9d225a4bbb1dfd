// Playlist-provider implementation of [PlaylistSource], adapted from the
// teacher's Spotify Web API client: same OAuth2 client-credentials/auth-code
// exchange and pagination idiom, narrowed to the three read paths the
// orchestrator actually needs (selected-playlist tracks, artist expansion,
// album expansion) and widened with request throttling for expansion
// fan-out, per §4.E's "capped at 100 ids per cycle".
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	playlistProviderAuthURL  = "https://accounts.spotify.com/authorize"
	playlistProviderTokenURL = "https://accounts.spotify.com/api/token"
	playlistProviderBaseURL  = "https://api.spotify.com/v1"
)

// expansionCap bounds how many artist/album IDs a single sync cycle expands,
// per §4.E.
const expansionCap = 100

type providerImage struct {
	URL string `json:"url"`
}

type providerArtist struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Images []providerImage `json:"images"`
}

type providerAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []providerArtist `json:"artists"`
}

type providerTrack struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Artists    []providerArtist `json:"artists"`
	Album      providerAlbum    `json:"album"`
	DurationMS int              `json:"duration_ms"`
}

type providerPlaylistTrackItem struct {
	Track providerTrack `json:"track"`
}

type providerPaginatedPlaylistTracks struct {
	Items []providerPlaylistTrackItem `json:"items"`
	Next  *string                     `json:"next"`
}

type providerPaginatedArtistTracks struct {
	Tracks []providerTrack `json:"tracks"`
}

type providerPaginatedAlbumTracks struct {
	Items []providerTrack `json:"items"`
	Next  *string         `json:"next"`
}

type providerPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type providerPaginatedPlaylists struct {
	Items []providerPlaylist `json:"items"`
	Next  *string            `json:"next"`
}

// ProviderPlaylist is one playlist as reported by the playlist-provider
// collaborator, consumed by the HTTP control surface's /playlists endpoint.
type ProviderPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlaylistProviderService implements [PlaylistSource] against a Spotify-shaped
// Web API. It owns its own OAuth2 token refresh via config.TokenSource, so a
// single long-lived instance can serve an unattended daemon across many
// sync cycles.
type PlaylistProviderService struct {
	config   *oauth2.Config
	client   *http.Client
	selected map[string]shared.PlaylistStrategy
	limiter  *rate.Limiter
}

// NewPlaylistProviderService builds a provider client for the given OAuth2
// client settings and selected-playlist map (§6's sync.selected_playlists).
// token must already be valid; the returned http.Client refreshes it
// automatically via oauth2.Config.Client.
func NewPlaylistProviderService(ctx context.Context, cfg shared.PlaylistSourceConfig, selected map[string]shared.PlaylistStrategy, token *oauth2.Token) *PlaylistProviderService {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  playlistProviderAuthURL,
			TokenURL: playlistProviderTokenURL,
		},
	}
	return &PlaylistProviderService{
		config:   oc,
		client:   oc.Client(ctx, token),
		selected: selected,
		// one request every 200ms keeps a 100-id expansion batch well under
		// the provider's per-minute rate limit.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// GetAuthURL returns the OAuth2 authorization URL used by the setup flow
// (internal/server.OAuthHandler drives the callback half of this exchange).
func (s *PlaylistProviderService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (s *PlaylistProviderService) doRequest(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistProviderBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrAuthDead
	case http.StatusForbidden:
		return shared.ErrPartialAccess
	case http.StatusTooManyRequests:
		return shared.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d from %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func providerTrackToModel(t providerTrack, playlistID string) models.Track {
	artist, artistID := "", ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
		artistID = t.Artists[0].ID
	}
	return models.Track{
		SourceID:   t.ID,
		Title:      t.Name,
		Artist:     artist,
		ArtistID:   artistID,
		Album:      t.Album.Name,
		AlbumID:    t.Album.ID,
		Duration:   t.DurationMS / 1000,
		PlaylistID: playlistID,
	}
}

// FetchPlaylistTracks walks every selected playlist whose strategy enables
// the song list itself and returns the union of their tracks.
func (s *PlaylistProviderService) FetchPlaylistTracks(ctx context.Context) ([]models.Track, error) {
	var out []models.Track
	for playlistID, strat := range s.selected {
		if !strat.Song {
			continue
		}
		endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		for endpoint != "" {
			var page providerPaginatedPlaylistTracks
			if err := s.doRequest(ctx, endpoint, &page); err != nil {
				return nil, fmt.Errorf("fetch playlist %s: %w", playlistID, err)
			}
			for _, item := range page.Items {
				if item.Track.ID == "" {
					continue
				}
				out = append(out, providerTrackToModel(item.Track, playlistID))
			}
			if page.Next == nil {
				break
			}
			endpoint = strings.TrimPrefix(*page.Next, playlistProviderBaseURL)
		}
	}
	return out, nil
}

// ListPlaylists returns every playlist visible to the authenticated user,
// for the /playlists discovery endpoint (§6, §9's supplemented listing).
// Unlike FetchPlaylistTracks it is not restricted to s.selected: an operator
// must be able to see and select a playlist before it appears there.
func (s *PlaylistProviderService) ListPlaylists(ctx context.Context) ([]ProviderPlaylist, error) {
	var out []ProviderPlaylist
	endpoint := "/me/playlists"
	for endpoint != "" {
		var page providerPaginatedPlaylists
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("list playlists: %w", err)
		}
		for _, p := range page.Items {
			out = append(out, ProviderPlaylist{ID: p.ID, Name: p.Name})
		}
		if page.Next == nil {
			break
		}
		endpoint = strings.TrimPrefix(*page.Next, playlistProviderBaseURL)
	}
	return out, nil
}

// ExpandArtist returns an artist's top tracks, per §4.E's artist-expansion
// strategy.
func (s *PlaylistProviderService) ExpandArtist(ctx context.Context, artistID string) ([]models.Track, error) {
	var page providerPaginatedArtistTracks
	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=US", artistID)
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("expand artist %s: %w", artistID, err)
	}

	tracks := page.Tracks
	if len(tracks) > expansionCap {
		tracks = tracks[:expansionCap]
	}
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, providerTrackToModel(t, ""))
	}
	return out, nil
}

// ExpandAlbum returns every track on an album, per §4.E's album-expansion
// strategy.
func (s *PlaylistProviderService) ExpandAlbum(ctx context.Context, albumID string) ([]models.Track, error) {
	var out []models.Track
	endpoint := fmt.Sprintf("/albums/%s/tracks", albumID)
	for endpoint != "" && len(out) < expansionCap {
		var page providerPaginatedAlbumTracks
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("expand album %s: %w", albumID, err)
		}
		for _, t := range page.Items {
			out = append(out, providerTrackToModel(t, ""))
		}
		if page.Next == nil {
			break
		}
		endpoint = strings.TrimPrefix(*page.Next, playlistProviderBaseURL)
	}
	if len(out) > expansionCap {
		out = out[:expansionCap]
	}
	return out, nil
}
