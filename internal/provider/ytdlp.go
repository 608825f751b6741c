// Package provider adapts yt-dlp to the extraction and download capability
// used by the acquisition pipeline.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ytarchive/ytarchive/internal/media"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

var log = logger.Get("Provider")

type (
	// Extractor resolves a URL to its metadata document. When collection is
	// true the URL is resolved as a collection (entries populated), otherwise
	// it is resolved as a single item even if it references a collection.
	Extractor interface {
		Extract(ctx context.Context, url string, collection bool) (*media.Document, error)
	}

	// Fetcher materializes the media referenced by a URL, returning the
	// path of the file written.
	Fetcher interface {
		Fetch(ctx context.Context, url string, opts Options) (string, error)
	}

	Provider interface {
		Extractor
		Fetcher
	}

	Config struct {
		BinaryPath     string
		FFmpegLocation string
	}

	// Runner executes the binary with the args given and returns its
	// standard output.
	Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

	// YtDlp is a Provider backed by the yt-dlp executable.
	YtDlp struct {
		config Config
		run    Runner
	}
)

func NewYtDlp(config Config) *YtDlp {
	return NewYtDlpWithRunner(config, execRunner)
}

// NewYtDlpWithRunner returns a YtDlp which executes commands through the
// runner provided instead of spawning processes.
func NewYtDlpWithRunner(config Config, runner Runner) *YtDlp {
	if config.BinaryPath == "" {
		config.BinaryPath = "yt-dlp"
	}

	return &YtDlp{config: config, run: runner}
}

func (y *YtDlp) Extract(ctx context.Context, url string, collection bool) (*media.Document, error) {
	args := []string{"--dump-single-json", "--no-warnings"}
	if collection {
		args = append(args, "--flat-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	args = append(args, "--", url)

	log.Debugf("Extracting metadata for %s (collection=%v)\n", url, collection)
	out, err := y.run(ctx, y.config.BinaryPath, args...)
	if err != nil {
		return nil, err
	}

	return decodeDocument(out)
}

func (y *YtDlp) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	out, err := y.run(ctx, y.config.BinaryPath, y.fetchArgs(url, opts)...)
	if err != nil {
		return "", err
	}

	path := lastLine(out)
	if path == "" {
		return "", errors.New("yt-dlp did not report an output file")
	}

	log.Emit(logger.SUCCESS, "Downloaded %s to %s\n", url, path)
	return path, nil
}

func (y *YtDlp) fetchArgs(url string, opts Options) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"-f", opts.Format,
		"-o", opts.OutputTemplate,
		"--print", "after_move:filepath",
	}

	if y.config.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", y.config.FFmpegLocation)
	}

	if pp := opts.PostProcessing; pp != nil {
		args = append(args, "-x", "--audio-format", pp.Codec)
		if pp.Quality != "" {
			args = append(args, "--audio-quality", pp.Quality)
		}
	}

	return append(args, "--", url)
}

func decodeDocument(out []byte) (*media.Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(out))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	return media.DecodeDocument(raw)
}

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.Bytes()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}

		return nil, err
	}

	return stdout.Bytes(), nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
