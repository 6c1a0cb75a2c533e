package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ProbeResult is the subset of ffprobe output the encoder uses.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
}

// Stream describes one container stream.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	CodecType     string            `json:"codec_type"`
	Tags          map[string]string `json:"tags"`
}

// Track is a subtitle stream with its position among subtitle streams.
type Track struct {
	Index    int    `json:"index"`
	Ordinal  int    `json:"ordinal"`
	Codec    string `json:"codec"`
	Language string `json:"language"`
	Title    string `json:"title"`
}

// textCodecs can be converted to SRT by ffmpeg.
var textCodecs = map[string]struct{}{
	"subrip":   {},
	"srt":      {},
	"ass":      {},
	"ssa":      {},
	"webvtt":   {},
	"mov_text": {},
	"text":     {},
}

// IsText reports whether ffmpeg can convert the track to SRT. Bitmap formats
// such as PGS and VobSub cannot be.
func (t Track) IsText() bool {
	_, ok := textCodecs[strings.ToLower(t.Codec)]
	return ok
}

// Probe runs ffprobe against video and decodes its stream list.
func (e *Encoder) Probe(ctx context.Context, video string) (ProbeResult, error) {
	video = strings.TrimSpace(video)
	if video == "" {
		return ProbeResult{}, errors.New("ffprobe: empty path")
	}
	args := []string{"-v", "error", "-hide_banner", "-show_streams", "-of", "json", "--", video}
	output, err := e.exec(ctx, e.ffprobe, args)
	if err != nil {
		return ProbeResult{}, &Error{Op: "probe", Path: video, Err: err}
	}
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, &Error{Op: "probe", Path: video, Err: fmt.Errorf("parse output: %w", err)}
	}
	return result, nil
}

// SubtitleTracks lists the subtitle streams of video in container order.
func (e *Encoder) SubtitleTracks(ctx context.Context, video string) ([]Track, error) {
	result, err := e.Probe(ctx, video)
	if err != nil {
		return nil, err
	}
	return result.SubtitleTracks(), nil
}

// SubtitleTracks filters the probe result down to subtitle streams.
func (r ProbeResult) SubtitleTracks() []Track {
	var tracks []Track
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "subtitle") {
			continue
		}
		language := strings.TrimSpace(stream.Tags["language"])
		if language == "" {
			language = "unknown"
		}
		tracks = append(tracks, Track{
			Index:    stream.Index,
			Ordinal:  len(tracks),
			Codec:    stream.CodecName,
			Language: language,
			Title:    strings.TrimSpace(stream.Tags["title"]),
		})
	}
	return tracks
}
