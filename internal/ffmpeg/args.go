package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

func extractArgs(video string, mapping string, output string) []string {
	return ffmpeggo.Input(video).
		Output(output, ffmpeggo.KwArgs{
			"map":    mapping,
			"c:s":    "srt",
			"format": "srt",
		}).
		OverWriteOutput().
		GetArgs()
}

func stripArgs(video, output string) []string {
	return ffmpeggo.Input(video).
		Output(output, ffmpeggo.KwArgs{
			"map":    []string{"0:v", "0:a"},
			"c:v":    "copy",
			"c:a":    "copy",
			"format": "matroska",
		}).
		OverWriteOutput().
		GetArgs()
}

func muxArgs(video, subtitle, iso3, output string) []string {
	in := ffmpeggo.Input(video)
	sub := ffmpeggo.Input(subtitle)
	streams := []*ffmpeggo.Stream{in.Video(), in.Audio(), sub.Get("0")}
	return ffmpeggo.Output(streams, output, ffmpeggo.KwArgs{
		"c":              "copy",
		"metadata:s:s:0": "language=" + iso3,
		"format":         "matroska",
	}).
		OverWriteOutput().
		GetArgs()
}

func burnArgs(video, subtitle string, crf int, preset, output string) []string {
	return ffmpeggo.Input(video).
		Output(output, ffmpeggo.KwArgs{
			"vf":     "subtitles=" + escapeFilterValue(subtitle),
			"c:v":    "libx264",
			"crf":    strconv.Itoa(crf),
			"preset": preset,
			"c:a":    "copy",
			"format": "matroska",
		}).
		OverWriteOutput().
		GetArgs()
}

func streamMapping(track Track) string {
	return fmt.Sprintf("0:%d", track.Index)
}

func relativeMapping(track Track) string {
	return fmt.Sprintf("0:s:%d", track.Ordinal)
}

// escapeFilterValue escapes characters that delimit filtergraph options.
func escapeFilterValue(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`,`, `\,`,
		`[`, `\[`,
		`]`, `\]`,
		`;`, `\;`,
	)
	return replacer.Replace(value)
}
