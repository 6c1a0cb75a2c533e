package srt

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileFallsBackToWindows1252(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.srt")
	// "Café" with é encoded as a single 0xE9 byte.
	raw := []byte("1\n00:00:01,000 --> 00:00:02,000\nCaf\xe9\n\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Text() != "Café" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie_subtitle_0_fr.srt")
	entries := []Entry{
		{Sequence: "1", Timing: "00:00:01,000 --> 00:00:02,000", Lines: []string{"Bonjour"}},
		{Sequence: "2", Timing: "00:00:03,000 --> 00:00:04,000", Lines: []string{"Ça va ?"}},
	}
	if err := WriteFile(path, entries); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if len(got) != 2 || got[1].Text() != "Ça va ?" {
		t.Fatalf("unexpected round trip: %#v", got)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.srt"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
