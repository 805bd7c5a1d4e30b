package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

func sampleRecords() []holiday.Record {
	return []holiday.Record{
		{
			Name:      "元旦",
			Start:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			End:       time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			Note:      "公历新年",
			Year:      2026,
			DateText:  "1月1日",
			SourceURL: "https://example.com/holidays.html",
		},
		{
			Name:      "国庆节",
			Start:     time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			End:       time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC),
			Year:      2025,
			DateText:  "9月1日–2日",
			SourceURL: "https://example.com/2025/holidays.html",
		},
	}
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("New() did not create %s", dir)
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/vnh-data")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if want := filepath.Join(home, "vnh-data"); s.Dir() != want {
		t.Errorf("Dir() = %q, want %q", s.Dir(), want)
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	snapshot, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(snapshot.Records) != 0 || snapshot.UpdatedAt != "" {
		t.Errorf("LoadSnapshot() = %+v, want empty snapshot", snapshot)
	}
	if snapshot.Records == nil {
		t.Error("empty snapshot should have a non-nil Records slice")
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	updated := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	if err := s.SaveSnapshot(holiday.NewSnapshot(sampleRecords(), updated)); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}

	if loaded.UpdatedAt != "2026-10-19T03:00:00Z" {
		t.Errorf("UpdatedAt = %q", loaded.UpdatedAt)
	}
	if len(loaded.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(loaded.Records))
	}
	if loaded.Records[1].Name != "国庆节" || !loaded.Records[1].End.Equal(time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Records[1] = %+v", loaded.Records[1])
	}
	if len(loaded.Years) != 2 || loaded.Years[0] != 2026 || loaded.Years[1] != 2025 {
		t.Errorf("Years = %v, want [2026 2025]", loaded.Years)
	}
}

func TestLoadSnapshot_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SnapshotFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadSnapshot(); err == nil || !strings.Contains(err.Error(), "parsing snapshot") {
		t.Errorf("LoadSnapshot() error = %v, want parsing error", err)
	}
}

func TestLoadSnapshot_FillsYears(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	data := `{"updated_at":"2026-01-01T00:00:00Z","records":[{"name":"元旦","year":2026}]}`
	if err := os.WriteFile(filepath.Join(dir, SnapshotFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	snapshot, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(snapshot.Years) != 1 || snapshot.Years[0] != 2026 {
		t.Errorf("Years = %v, want [2026]", snapshot.Years)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := s.WriteFile("feed.ics", []byte("first")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := s.WriteFile("feed.ics", []byte("second")); err != nil {
		t.Fatalf("WriteFile() overwrite error: %v", err)
	}

	data, err := s.ReadFile("feed.ics")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only feed.ics", names)
	}

	info, err := os.Stat(filepath.Join(dir, "feed.ics"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWriteFile_Subdirectory(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := s.WriteFile(filepath.Join("site", "index.html"), []byte("<html></html>")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if _, err := os.Stat(s.Path(filepath.Join("site", "index.html"))); err != nil {
		t.Errorf("file not written: %v", err)
	}
}
