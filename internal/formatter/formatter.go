// Package formatter renders the catalog to portable export formats: a CSV
// snapshot of every row for spreadsheet inspection, and an M3U playlist
// listing every downloaded track's local path, for players that don't read
// the catalog directly.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/audiosync/internal/models"
	"github.com/desertthunder/audiosync/internal/shared"
)

var csvHeaders = []string{"identity", "artist", "title", "album", "duration", "status", "local_path", "last_error"}

// ExportToCSV renders every catalog row as a CSV snapshot, one row per
// track, for an operator to inspect or archive outside the database.
func ExportToCSV(tracks []*models.CatalogTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("write CSV headers: %w", err)
	}

	for _, t := range tracks {
		record := []string{
			t.Identity(),
			t.Artist(),
			t.Title(),
			t.Album(),
			strconv.Itoa(t.Duration()),
			string(t.Status()),
			t.LocalPath(),
			t.LastError(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write CSV record for %q: %w", t.Identity(), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToM3U renders every downloaded catalog row as an extended M3U
// playlist (#EXTINF duration + display name, followed by the local path),
// skipping rows that have no local file yet.
func ExportToM3U(tracks []*models.CatalogTrack) []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")

	for _, t := range tracks {
		if t.Status() != models.StatusDownloaded || t.LocalPath() == "" {
			continue
		}
		buf.WriteString(fmt.Sprintf("#EXTINF:%d,%s - %s\n", t.Duration(), t.Artist(), t.Title()))
		buf.WriteString(t.LocalPath() + "\n")
	}
	return buf.Bytes()
}

// ExportToJSON renders the catalog as pretty-printed JSON, for tooling that
// wants structured data rather than CSV.
func ExportToJSON(tracks []*models.CatalogTrack) ([]byte, error) {
	type row struct {
		Identity  string `json:"identity"`
		Artist    string `json:"artist"`
		Title     string `json:"title"`
		Album     string `json:"album"`
		Duration  int    `json:"duration"`
		Status    string `json:"status"`
		LocalPath string `json:"local_path"`
		LastError string `json:"last_error"`
	}
	rows := make([]row, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, row{t.Identity(), t.Artist(), t.Title(), t.Album(), t.Duration(), string(t.Status()), t.LocalPath(), t.LastError()})
	}
	return shared.MarshalJSON(rows, true)
}

// WriteCSVExport writes the CSV snapshot to path, defaulting to
// "catalog.csv" in the current directory.
func WriteCSVExport(tracks []*models.CatalogTrack, path string) (string, error) {
	if path == "" {
		path = "catalog.csv"
	}
	data, err := ExportToCSV(tracks)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write CSV export: %w", err)
	}
	return path, nil
}

// WriteM3UExport writes the downloaded-tracks playlist to path, defaulting
// to "library.m3u" in the current directory.
func WriteM3UExport(tracks []*models.CatalogTrack, path string) (string, error) {
	if path == "" {
		path = "library.m3u"
	}
	data := ExportToM3U(tracks)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write M3U export: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the catalog as JSON to path, defaulting to
// "catalog.json" in the current directory.
func WriteJSONExport(tracks []*models.CatalogTrack, path string) (string, error) {
	if path == "" {
		path = "catalog.json"
	}
	data, err := ExportToJSON(tracks)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write JSON export: %w", err)
	}
	return path, nil
}
