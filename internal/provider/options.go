package provider

import (
	"path/filepath"
	"strings"
)

const (
	AudioFormat = "bestaudio"
	VideoFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

	AudioCodec   = "mp3"
	AudioQuality = "192K"
)

type (
	// PostProcessing asks the provider to convert the fetched media to
	// the given codec and quality after download.
	PostProcessing struct {
		Codec   string
		Quality string
	}

	// Options configures a single Fetch.
	Options struct {
		Format         string
		OutputTemplate string
		PostProcessing *PostProcessing
	}
)

// AudioOptions returns the options used for audio-only acquisition: the
// best audio stream, converted to mp3.
func AudioOptions(outputDir string, filename string) Options {
	return Options{
		Format:         AudioFormat,
		OutputTemplate: outputTemplate(outputDir, filename),
		PostProcessing: &PostProcessing{Codec: AudioCodec, Quality: AudioQuality},
	}
}

// VideoOptions returns the options used for audio-visual acquisition,
// preferring mp4 video with m4a audio.
func VideoOptions(outputDir string, filename string) Options {
	return Options{
		Format:         VideoFormat,
		OutputTemplate: outputTemplate(outputDir, filename),
	}
}

// OptionsFor selects AudioOptions or VideoOptions by mode.
func OptionsFor(audioOnly bool, outputDir string, filename string) Options {
	if audioOnly {
		return AudioOptions(outputDir, filename)
	}

	return VideoOptions(outputDir, filename)
}

// outputTemplate sanitizes the filename and builds the output template.
// The extension is left to the provider, and any literal '%' is escaped
// so it is not read as a template field.
func outputTemplate(outputDir string, filename string) string {
	name := strings.ReplaceAll(SanitizeFilename(filename), "%", "%%")
	return filepath.Join(outputDir, name+".%(ext)s")
}
