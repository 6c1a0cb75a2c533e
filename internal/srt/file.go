package srt

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"subtrans/internal/fileutil"
)

// ReadFile loads and decodes a subtitle file. Content that is not valid UTF-8
// is decoded as Windows-1252, the usual encoding of legacy SubRip files.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle: %w", err)
	}
	text, err := decodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode subtitle %s: %w", path, err)
	}
	return Decode(text), nil
}

// WriteFile encodes entries as UTF-8 and writes them atomically.
func WriteFile(path string, entries []Entry) error {
	if err := fileutil.WriteFileAtomic(path, []byte(Encode(entries)), 0o644); err != nil {
		return fmt.Errorf("write subtitle %s: %w", path, err)
	}
	return nil
}

func decodeBytes(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
