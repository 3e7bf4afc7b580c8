package radio

import (
	"path/filepath"
	"strconv"
)

const (
	// PlaylistName is the live playlist file inside every output directory.
	PlaylistName = "index.m3u8"

	// SegmentSeconds is the target HLS segment duration.
	SegmentSeconds = 6
	// PlaylistWindow is how many segments the live playlist lists; older
	// segments are deleted from disk.
	PlaylistWindow = 6

	audioCodec = "aac"
	mixFilter  = "[0:a][1:a]amix=inputs=2:duration=first:dropout_transition=3,volume=1[a]"
)

// CommandBuilder constructs transcoder arguments. It does no I/O.
type CommandBuilder struct {
	SilenceFile string
}

// Build returns the ffmpeg arguments (without the binary) that loop input
// forever, mix it with the looping silence bed, tag the stream title and
// write rolling HLS output for q into outputDir.
func (b CommandBuilder) Build(input, outputDir string, q Quality, title string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-nostats",
		"-loglevel", "error",
		"-y",
		"-re",
		"-stream_loop", "-1", "-i", input,
		"-stream_loop", "-1", "-i", b.SilenceFile,
		"-filter_complex", mixFilter,
		"-map", "[a]",
		"-metadata", "title=" + title,
		"-acodec", audioCodec,
		"-ar", strconv.Itoa(q.SampleRate),
		"-b:a", FormatBitrate(q.Bitrate),
		"-f", "hls",
		"-hls_time", strconv.Itoa(SegmentSeconds),
		"-hls_list_size", strconv.Itoa(PlaylistWindow),
		"-hls_flags", "delete_segments",
		filepath.Join(outputDir, PlaylistName),
	}
}
