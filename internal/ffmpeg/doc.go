// Package ffmpeg drives the external ffmpeg and ffprobe binaries for subtitle
// extraction, stripping, muxing and burn-in.
//
// Argument lists are built with ffmpeg-go and executed through an injectable
// command runner so tests never spawn processes. Every writer targets a
// hidden temporary sibling of the final path and renames it into place only
// when ffmpeg exits cleanly and the file is non-empty; a failed run never
// leaves a partial output under the final name.
//
// Extraction addresses a track by its absolute stream index first and, when
// ffmpeg rejects that mapping, retries with the subtitle-relative selector
// 0:s:<n>.
package ffmpeg
