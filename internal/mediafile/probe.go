package mediafile

import (
	"fmt"

	"github.com/floostack/transcoder/ffmpeg"
)

// ProbeResult is the subset of ffprobe output used to confirm a fetched
// file is readable media.
type ProbeResult struct {
	Duration string
	Streams  int
}

// Probe reads the media information of the file at path using the ffprobe
// binary provided.
func Probe(ffprobePath string, path string) (*ProbeResult, error) {
	metadata, err := ffmpeg.New(&ffmpeg.Config{FfprobeBinPath: ffprobePath}).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %w", err)
	}

	streams := metadata.GetStreams()
	if len(streams) == 0 {
		return nil, fmt.Errorf("file %s contains no media streams", path)
	}

	return &ProbeResult{
		Duration: metadata.GetFormat().GetDuration(),
		Streams:  len(streams),
	}, nil
}
