// Package config holds the media hub runtime configuration: library
// locations, server address, and TTS tuning. Values come from the
// config file through Viper with MEDIAHUB_* environment variables
// layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config contains all media hub configuration options.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Server  ServerConfig  `yaml:"server"`
	TTS     TTSConfig     `yaml:"tts"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig locates the local library and sets playback defaults.
type AudioConfig struct {
	MusicDir       string `yaml:"music_dir" env:"MEDIAHUB_MUSIC_DIR"`
	PlaylistsDir   string `yaml:"playlists_dir" env:"MEDIAHUB_PLAYLISTS_DIR"`
	StreamCacheDir string `yaml:"stream_cache_dir" env:"MEDIAHUB_STREAM_CACHE_DIR"`
	DefaultVolume  int    `yaml:"default_volume" env:"MEDIAHUB_DEFAULT_VOLUME"`
}

// ServerConfig sets the HTTP listen address.
type ServerConfig struct {
	Host    string        `yaml:"host" env:"MEDIAHUB_HOST"`
	Port    int           `yaml:"port" env:"MEDIAHUB_PORT"`
	Timeout time.Duration `yaml:"timeout" env:"MEDIAHUB_TIMEOUT"`
}

// TTSConfig tunes speech synthesis and its artifact cache.
type TTSConfig struct {
	CacheDir      string  `yaml:"cache_dir" env:"MEDIAHUB_TTS_CACHE_DIR"`
	DefaultVoice  string  `yaml:"default_voice" env:"MEDIAHUB_TTS_VOICE"`
	DefaultSpeed  float64 `yaml:"default_speed" env:"MEDIAHUB_TTS_SPEED"`
	DefaultVolume float64 `yaml:"default_volume" env:"MEDIAHUB_TTS_VOLUME"`
	MaxCacheFiles int     `yaml:"max_cache_files" env:"MEDIAHUB_TTS_MAX_CACHE_FILES"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" env:"MEDIAHUB_LOG_LEVEL"`
	File  string `yaml:"file" env:"MEDIAHUB_LOG_FILE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			MusicDir:       "./audio/music",
			PlaylistsDir:   "./audio/playlists",
			StreamCacheDir: "./audio/youtube_cache",
			DefaultVolume:  50,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 60 * time.Second,
		},
		TTS: TTSConfig{
			CacheDir:      "./audio/tts_cache",
			DefaultVoice:  "default",
			DefaultSpeed:  1.0,
			DefaultVolume: 0.8,
			MaxCacheFiles: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the config
// file already read into Viper, then environment variables.
func Load() (Config, error) {
	cfg := loadFromViper()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing environment: %w", err)
	}

	cfg.Audio.MusicDir = ExpandPath(cfg.Audio.MusicDir)
	cfg.Audio.PlaylistsDir = ExpandPath(cfg.Audio.PlaylistsDir)
	cfg.Audio.StreamCacheDir = ExpandPath(cfg.Audio.StreamCacheDir)
	cfg.TTS.CacheDir = ExpandPath(cfg.TTS.CacheDir)
	if cfg.Logging.File != "" {
		cfg.Logging.File = ExpandPath(cfg.Logging.File)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromViper() Config {
	cfg := DefaultConfig()

	if viper.IsSet("audio.music_dir") {
		cfg.Audio.MusicDir = viper.GetString("audio.music_dir")
	}
	if viper.IsSet("audio.playlists_dir") {
		cfg.Audio.PlaylistsDir = viper.GetString("audio.playlists_dir")
	}
	if viper.IsSet("audio.stream_cache_dir") {
		cfg.Audio.StreamCacheDir = viper.GetString("audio.stream_cache_dir")
	}
	if viper.IsSet("audio.default_volume") {
		cfg.Audio.DefaultVolume = viper.GetInt("audio.default_volume")
	}

	if viper.IsSet("server.host") {
		cfg.Server.Host = viper.GetString("server.host")
	}
	if viper.IsSet("server.port") {
		cfg.Server.Port = viper.GetInt("server.port")
	}
	if viper.IsSet("server.timeout") {
		cfg.Server.Timeout = viper.GetDuration("server.timeout")
	}

	if viper.IsSet("tts.cache_dir") {
		cfg.TTS.CacheDir = viper.GetString("tts.cache_dir")
	}
	if viper.IsSet("tts.default_voice") {
		cfg.TTS.DefaultVoice = viper.GetString("tts.default_voice")
	}
	if viper.IsSet("tts.default_speed") {
		cfg.TTS.DefaultSpeed = viper.GetFloat64("tts.default_speed")
	}
	if viper.IsSet("tts.default_volume") {
		cfg.TTS.DefaultVolume = viper.GetFloat64("tts.default_volume")
	}
	if viper.IsSet("tts.max_cache_files") {
		cfg.TTS.MaxCacheFiles = viper.GetInt("tts.max_cache_files")
	}

	if viper.IsSet("logging.level") {
		cfg.Logging.Level = viper.GetString("logging.level")
	}
	if viper.IsSet("logging.file") {
		cfg.Logging.File = viper.GetString("logging.file")
	}

	return cfg
}

// Validate checks the configuration values for consistency.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Audio.DefaultVolume < 0 || c.Audio.DefaultVolume > 100 {
		return fmt.Errorf("default volume must be between 0 and 100, got %d", c.Audio.DefaultVolume)
	}
	if c.TTS.DefaultSpeed < 0.1 || c.TTS.DefaultSpeed > 3.0 {
		return fmt.Errorf("tts speed must be between 0.1 and 3.0, got %.2f", c.TTS.DefaultSpeed)
	}
	if c.TTS.DefaultVolume < 0.0 || c.TTS.DefaultVolume > 2.0 {
		return fmt.Errorf("tts volume must be between 0.0 and 2.0, got %.2f", c.TTS.DefaultVolume)
	}
	if c.TTS.MaxCacheFiles < 1 {
		return fmt.Errorf("tts max_cache_files must be at least 1, got %d", c.TTS.MaxCacheFiles)
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EnsureDirectories creates the library and cache directories.
func (c Config) EnsureDirectories() error {
	dirs := []string{c.Audio.MusicDir, c.Audio.PlaylistsDir, c.Audio.StreamCacheDir, c.TTS.CacheDir}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		expanded, err := homedir.Expand(path)
		if err == nil {
			return expanded
		}
	}
	return path
}
