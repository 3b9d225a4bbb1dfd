package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/audiosync/internal/models"
)

func sampleTracks() []*models.CatalogTrack {
	now := time.Unix(1700000000, 0)
	downloaded := models.NewCatalogTrack("artist one|song one", models.Track{
		Artist: "Artist One", Title: "Song One", Album: "Album One", Duration: 180,
	}, models.ExpandedFromPlaylist, now)
	downloaded.SetStatus(models.StatusDownloaded)
	downloaded.SetLocalPath("/music/Artist One/Song One.mp3")

	pending := models.NewCatalogTrack("artist two|song two", models.Track{
		Artist: "Artist Two", Title: "Song Two", Album: "Album Two", Duration: 240,
	}, models.ExpandedFromArtist, now)

	missing := models.NewCatalogTrack("artist three|song three", models.Track{
		Artist: "Artist Three", Title: "Song Three", Duration: 200,
	}, models.ExpandedFromAlbum, now)
	missing.SetStatus(models.StatusMissing)
	missing.SetLastError("no match found")

	return []*models.CatalogTrack{downloaded, pending, missing}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(sampleTracks())
	if err != nil {
		t.Fatalf("ExportToCSV failed: %v", err)
	}
	output := string(data)

	if !strings.Contains(output, "identity,artist,title,album,duration,status,local_path,last_error") {
		t.Errorf("CSV missing headers, got: %s", output)
	}
	if !strings.Contains(output, "Song One") {
		t.Errorf("CSV missing downloaded track title")
	}
	if !strings.Contains(output, "downloaded") {
		t.Errorf("CSV missing status column value")
	}
	if !strings.Contains(output, "no match found") {
		t.Errorf("CSV missing last_error column value")
	}
}

func TestExportToM3U(t *testing.T) {
	data := ExportToM3U(sampleTracks())
	output := string(data)

	if !strings.HasPrefix(output, "#EXTM3U\n") {
		t.Fatalf("M3U missing header, got: %s", output)
	}
	if !strings.Contains(output, "/music/Artist One/Song One.mp3") {
		t.Errorf("M3U missing downloaded track path")
	}
	if strings.Contains(output, "Song Two") {
		t.Errorf("M3U should skip pending tracks, got: %s", output)
	}
	if strings.Contains(output, "Song Three") {
		t.Errorf("M3U should skip missing tracks, got: %s", output)
	}
}

func TestExportToJSON(t *testing.T) {
	data, err := ExportToJSON(sampleTracks())
	if err != nil {
		t.Fatalf("ExportToJSON failed: %v", err)
	}
	if !strings.Contains(string(data), "Song One") {
		t.Errorf("JSON missing track title, got: %s", string(data))
	}
}

func TestWriteExports(t *testing.T) {
	dir := t.TempDir()
	tracks := sampleTracks()

	csvPath, err := WriteCSVExport(tracks, dir+"/out.csv")
	if err != nil {
		t.Fatalf("WriteCSVExport failed: %v", err)
	}
	if csvPath != dir+"/out.csv" {
		t.Errorf("unexpected CSV path: %s", csvPath)
	}

	m3uPath, err := WriteM3UExport(tracks, dir+"/out.m3u")
	if err != nil {
		t.Fatalf("WriteM3UExport failed: %v", err)
	}
	if m3uPath != dir+"/out.m3u" {
		t.Errorf("unexpected M3U path: %s", m3uPath)
	}

	jsonPath, err := WriteJSONExport(tracks, dir+"/out.json")
	if err != nil {
		t.Fatalf("WriteJSONExport failed: %v", err)
	}
	if jsonPath != dir+"/out.json" {
		t.Errorf("unexpected JSON path: %s", jsonPath)
	}
}
