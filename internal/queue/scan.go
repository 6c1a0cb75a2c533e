package queue

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FolderPair names the folders a scan reads.
type FolderPair struct {
	InputDir     string
	SubtitlesDir string
}

// Formats lists accepted file extensions (lower-case, with leading dot).
type Formats struct {
	Video    []string
	Subtitle []string
}

// Scan discovers videos and their subtitles and replaces the queue with the
// result. On error the queue is left untouched.
func (q *Queue) Scan(pair FolderPair, formats Formats) ([]WorkItem, error) {
	items, err := Discover(pair, formats)
	if err != nil {
		return nil, err
	}
	q.Replace(items)
	return q.Items(), nil
}

// Discover lists one WorkItem per video in the input folder, sorted by file
// name, each paired with the first subtitle (in lexical order) whose name
// starts with the video stem. A missing subtitles folder means no pairings.
func Discover(pair FolderPair, formats Formats) ([]WorkItem, error) {
	videos, err := listFiles(pair.InputDir, formats.Video)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scan input folder %s: %w", pair.InputDir, ErrNotFound)
		}
		return nil, fmt.Errorf("scan input folder %s: %w", pair.InputDir, err)
	}

	var subtitles []string
	if strings.TrimSpace(pair.SubtitlesDir) != "" {
		subtitles, err = listFiles(pair.SubtitlesDir, formats.Subtitle)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scan subtitles folder %s: %w", pair.SubtitlesDir, err)
		}
	}

	items := make([]WorkItem, 0, len(videos))
	for _, name := range videos {
		items = append(items, WorkItem{
			ID:        name,
			VideoPath: filepath.Join(pair.InputDir, name),
			Subtitle:  MatchSubtitle(stem(name), subtitles),
			Status:    StatusPending,
		})
	}
	return items, nil
}

// MatchSubtitle returns the first name in sorted subtitles that starts with
// videoStem, or "" when none does. Several subtitles sharing a prefix are not
// disambiguated beyond lexical order.
func MatchSubtitle(videoStem string, subtitles []string) string {
	if videoStem == "" {
		return ""
	}
	for _, name := range subtitles {
		if strings.HasPrefix(name, videoStem) {
			return name
		}
	}
	return ""
}

func listFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	accept := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		accept[strings.ToLower(ext)] = struct{}{}
	}
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := accept[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
