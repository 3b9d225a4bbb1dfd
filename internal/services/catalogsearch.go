// Video-catalog search implementation of [CatalogSearch], adapted from the
// teacher's YouTube Music proxy client: same FastAPI-proxy-plus-X-Auth-File
// request shape, narrowed from "fetch one best guess" to "return every
// candidate" so the matcher (§4.A) can apply strict/fuzzy scoring itself
// instead of trusting the backend's own ranking.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/audiosync/internal/models"
)

const defaultCatalogBaseURL = "http://localhost:8080"

type catalogSearchArtist struct {
	Name string `json:"name"`
}

type catalogSearchAlbum struct {
	Name string `json:"name"`
}

type catalogSearchResult struct {
	VideoID        string               `json:"videoId"`
	Title          string               `json:"title"`
	Artists        []catalogSearchArtist `json:"artists"`
	Album          *catalogSearchAlbum   `json:"album"`
	DurationSecs   int                  `json:"duration_seconds"`
	ResultType     string               `json:"resultType"`
}

// CatalogSearchService implements [CatalogSearch] against a proxied
// video-catalog backend (a ytmusicapi-shaped search endpoint).
type CatalogSearchService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewCatalogSearchService creates a client for the proxy at baseURL. An
// empty baseURL defaults to the local proxy the extractor also talks to.
func NewCatalogSearchService(baseURL, authFile string) *CatalogSearchService {
	if baseURL == "" {
		baseURL = defaultCatalogBaseURL
	}
	return &CatalogSearchService{baseURL: baseURL, authFile: authFile, httpClient: http.DefaultClient}
}

// SearchCandidates queries the backend for every song-type result matching
// the track's title and artist, leaving match scoring to the matcher
// package.
func (c *CatalogSearchService) SearchCandidates(ctx context.Context, track models.Track) ([]models.Candidate, error) {
	query := track.Title + " " + track.Artist
	endpoint := fmt.Sprintf("%s/api/search?q=%s&filter=songs", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.authFile != "" {
		req.Header.Set("X-Auth-File", c.authFile)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Detail != "" {
			return nil, fmt.Errorf("catalog search error (status %d): %s", resp.StatusCode, errResp.Detail)
		}
		return nil, fmt.Errorf("catalog search error: status %d", resp.StatusCode)
	}

	var results []catalogSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		var artist string
		if len(r.Artists) > 0 {
			artist = r.Artists[0].Name
		}
		candidates = append(candidates, models.Candidate{
			ID:       r.VideoID,
			Title:    r.Title,
			Artist:   artist,
			Duration: r.DurationSecs,
			Official: r.ResultType == "song",
		})
	}
	return candidates, nil
}
