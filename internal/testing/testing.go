// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/audiosync/internal/models"
)

// MockPlaylistSource is a test double for [services.PlaylistSource]. Each
// field, when non-nil, is returned verbatim by the matching method; a nil
// field returns an empty slice and no error.
type MockPlaylistSource struct {
	Tracks        []models.Track
	ArtistTracks  []models.Track
	AlbumTracks   []models.Track
	Err           error
}

func (m *MockPlaylistSource) FetchPlaylistTracks(ctx context.Context) ([]models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

func (m *MockPlaylistSource) ExpandArtist(ctx context.Context, artistID string) ([]models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ArtistTracks, nil
}

func (m *MockPlaylistSource) ExpandAlbum(ctx context.Context, albumID string) ([]models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.AlbumTracks, nil
}

// MockCatalogSearch is a test double for [services.CatalogSearch].
type MockCatalogSearch struct {
	Candidates []models.Candidate
	Err        error
}

func (m *MockCatalogSearch) SearchCandidates(ctx context.Context, track models.Track) ([]models.Candidate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Candidates, nil
}

// MockExtractor is a test double for [services.Extractor]. Progress, when
// set, is reported in full before the configured result is returned.
type MockExtractor struct {
	Progress []int
	Err      error
}

func (m *MockExtractor) Download(ctx context.Context, candidate models.Candidate, destPath string, progress func(int)) error {
	for _, p := range m.Progress {
		if progress != nil {
			progress(p)
		}
	}
	return m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
