package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"github.com/ytarchive/ytarchive/internal/database"
)

const userDirSuffix = "ytarchive"

// ArchiveConfig is the struct used to contain the
// various user config supplied by file, or by the
// environment.
//
// Boolean options carry no env-default as cleanenv cannot tell an
// explicit 'false' from an absent value; their defaults are seeded
// by DefaultConfig instead.
type ArchiveConfig struct {
	OutputPath       string                  `yaml:"output_path" env:"OUTPUT_PATH" env-default:"./data/media"`
	YtDlpPath        string                  `yaml:"ytdlp_path" env:"YTDLP_PATH" env-default:"yt-dlp"`
	FFmpegLocation   string                  `yaml:"ffmpeg_location" env:"FFMPEG_LOCATION"`
	FFprobePath      string                  `yaml:"ffprobe_path" env:"FFPROBE_PATH" env-default:"ffprobe"`
	AudioOnly        bool                    `yaml:"audio_only" env:"AUDIO_ONLY"`
	WriteToDB        bool                    `yaml:"write_to_db" env:"WRITE_TO_DB"`
	TagAudio         bool                    `yaml:"tag_audio" env:"TAG_AUDIO"`
	VerifyDownloads  bool                    `yaml:"verify_downloads" env:"VERIFY_DOWNLOADS"`
	PreflightCheck   bool                    `yaml:"preflight_check" env:"PREFLIGHT_CHECK"`
	Concurrency      int                     `yaml:"concurrency" env:"CONCURRENCY" env-default:"1" validate:"min=1,max=32"`
	CollectionMarker string                  `yaml:"collection_marker" env:"COLLECTION_MARKER" env-default:"list=" validate:"required"`
	LogLevel         string                  `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=verbose debug info warn error"`
	Database         database.DatabaseConfig `yaml:"database"`
}

// DefaultConfig returns the config used before any file or
// environment values are applied.
func DefaultConfig() *ArchiveConfig {
	return &ArchiveConfig{
		AudioOnly: true,
		WriteToDB: true,
		TagAudio:  true,
	}
}

// LoadConfig reads the YAML configuration at configPath (if one is provided)
// and applies environment overrides. The result is validated, and any
// paths beginning with '~' are expanded.
func LoadConfig(configPath string) (*ArchiveConfig, error) {
	config := DefaultConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment - %v", err)
	}

	if err := config.expandPaths(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("configuration is invalid - %w", err)
	}

	return config, nil
}

// LoadFromFile loads a configuration file formatted in YAML in to the config.
func (config *ArchiveConfig) LoadFromFile(configPath string) error {
	path, err := homedir.Expand(configPath)
	if err != nil {
		return err
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s - %v", path, err)
	}

	return nil
}

func (config *ArchiveConfig) expandPaths() error {
	for _, path := range []*string{&config.OutputPath, &config.FFmpegLocation, &config.FFprobePath, &config.YtDlpPath, &config.Database.DataDir} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("failed to expand path %s: %w", *path, err)
		}

		*path = expanded
	}

	return nil
}

// DefaultConfigPath returns the path of the user's config file if one
// exists, otherwise an empty string.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(dir, userDirSuffix, "config.yaml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}

	return path
}
