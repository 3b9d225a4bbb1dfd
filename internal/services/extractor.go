// Audio-extractor implementation of [Extractor], built on the same
// FastAPI-proxy transport as [APIService] but reading a streaming response
// body instead of buffering it whole, since a download can run for minutes
// and the worker needs live progress.
//
// The proxy is expected to stream newline-delimited JSON progress lines
// while an extraction runs, ending in a single terminal line: either
// {"done": true, "path": "..."} or {"error": "..."}. This mirrors the
// progress_cb(percent) contract of the extraction step in
// original_source/youspotter's downloader, carried over the wire instead of
// called in-process since the extractor here is a subprocess-backed proxy
// and not an in-process library call.
package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/shared"
)

const defaultExtractorBaseURL = "http://localhost:8080"

// downloadProgressLine is one line of the proxy's NDJSON stream.
type downloadProgressLine struct {
	Percent int    `json:"percent"`
	Done    bool   `json:"done"`
	Path    string `json:"path"`
	Error   string `json:"error"`
}

// ExtractorConfig carries the quality knobs §6 lets an operator tune; every
// download request sends these so the proxy's yt-dlp invocation matches the
// configured bitrate/format.
type ExtractorConfig struct {
	Bitrate int
	Format  string
}

// ExtractorService implements [Extractor] against a proxied download
// endpoint.
type ExtractorService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
	config     ExtractorConfig
}

// NewExtractorService creates a client for the proxy at baseURL, applying
// the given quality configuration to every download request.
func NewExtractorService(baseURL, authFile string, config ExtractorConfig) *ExtractorService {
	if baseURL == "" {
		baseURL = defaultExtractorBaseURL
	}
	return &ExtractorService{baseURL: baseURL, authFile: authFile, httpClient: http.DefaultClient, config: config}
}

type downloadRequest struct {
	VideoID  string `json:"video_id"`
	DestPath string `json:"dest_path"`
	Bitrate  int    `json:"bitrate"`
	Format   string `json:"format"`
}

// Download streams a candidate's audio to destPath, reporting progress as
// the proxy's NDJSON response advances. Callers should wrap ctx with a
// timeout (the worker applies the 300s cap from §4.F); cancelling ctx
// aborts the in-flight HTTP request and returns [shared.ErrDownloadCancelled].
func (e *ExtractorService) Download(ctx context.Context, candidate models.Candidate, destPath string, progress ProgressFunc) error {
	body, err := json.Marshal(downloadRequest{
		VideoID:  candidate.ID,
		DestPath: destPath,
		Bitrate:  e.config.Bitrate,
		Format:   e.config.Format,
	})
	if err != nil {
		return fmt.Errorf("marshal download request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/download", strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.authFile != "" {
		req.Header.Set("X-Auth-File", e.authFile)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return shared.ErrDownloadCancelled
		}
		return fmt.Errorf("%w: %v", shared.ErrExtractorFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrExtractorFailed, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg downloadProgressLine
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return fmt.Errorf("%w: %s", shared.ErrExtractorFailed, msg.Error)
		}
		if msg.Done {
			return nil
		}
		if progress != nil {
			progress(msg.Percent)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return shared.ErrDownloadCancelled
		}
		return fmt.Errorf("%w: stream read: %v", shared.ErrExtractorFailed, err)
	}
	return fmt.Errorf("%w: stream ended without a terminal message", shared.ErrExtractorFailed)
}
