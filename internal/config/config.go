package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
//
// Values come from three layers, later layers overriding earlier ones:
// built-in defaults, an optional YAML file (KEYTRACE_CONFIG), and
// environment variables.
//
// Environment Variables:
// - LISTEN_ADDR: HTTP listen address (default: :8000)
// - CACHE_DIR: flat artifact cache directory (default: .downloads)
// - CACHE_RETENTION_DAYS: days before artifacts expire, 0 keeps forever (default: 0)
// - CACHE_CLEANUP_CRON: janitor schedule (default: hourly)
// - YTDLP_PATH: yt-dlp executable (default: yt-dlp)
// - AUDIO_FORMAT: normalized audio container (default: mp3)
// - AUDIO_QUALITY: fixed transcode quality (default: 192K)
// - FORMAT_SELECTOR: yt-dlp format selector (default: bestaudio/best)
// - ENGINE_COMMAND: inference command line (default: python3 -m piano_transcription_cli)
// - ENGINE_DEVICE: cuda or cpu (default: cuda)
// - ENGINE_SAMPLE_RATE: model input rate in Hz (default: 16000)
// - LOG_LEVEL: debug/info/warn/error (default: info)
type Config struct {
	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type CacheConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	CleanupCron   string `yaml:"cleanup_cron"`
}

type FetchConfig struct {
	BinPath        string `yaml:"bin_path"`
	AudioFormat    string `yaml:"audio_format"`
	AudioQuality   string `yaml:"audio_quality"`
	FormatSelector string `yaml:"format_selector"`
}

type EngineConfig struct {
	Command    string `yaml:"command"`
	Device     string `yaml:"device"`
	SampleRate int    `yaml:"sample_rate"`
}

// CommandLine splits the configured inference command into executable and
// leading arguments.
func (e EngineConfig) CommandLine() (string, []string) {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// New builds the configuration from defaults, the optional YAML file named
// by KEYTRACE_CONFIG, environment variables, and options, in that order.
func New(opts ...Option) (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("KEYTRACE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	cfg.loadEnv()

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		Cache: CacheConfig{
			Dir:           ".downloads",
			RetentionDays: 0,
			CleanupCron:   "@hourly",
		},
		Fetch: FetchConfig{
			BinPath:        "yt-dlp",
			AudioFormat:    "mp3",
			AudioQuality:   "192K",
			FormatSelector: "bestaudio/best",
		},
		Engine: EngineConfig{
			Command:    "python3 -m piano_transcription_cli",
			Device:     "cuda",
			SampleRate: 16000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	return dec.Decode(c)
}

func (c *Config) loadEnv() {
	c.Server.Addr = getEnvString("LISTEN_ADDR", c.Server.Addr)

	c.Cache.Dir = getEnvString("CACHE_DIR", c.Cache.Dir)
	c.Cache.RetentionDays = getEnvInt("CACHE_RETENTION_DAYS", c.Cache.RetentionDays)
	c.Cache.CleanupCron = getEnvString("CACHE_CLEANUP_CRON", c.Cache.CleanupCron)

	c.Fetch.BinPath = getEnvString("YTDLP_PATH", c.Fetch.BinPath)
	c.Fetch.AudioFormat = getEnvString("AUDIO_FORMAT", c.Fetch.AudioFormat)
	c.Fetch.AudioQuality = getEnvString("AUDIO_QUALITY", c.Fetch.AudioQuality)
	c.Fetch.FormatSelector = getEnvString("FORMAT_SELECTOR", c.Fetch.FormatSelector)

	c.Engine.Command = getEnvString("ENGINE_COMMAND", c.Engine.Command)
	c.Engine.Device = getEnvString("ENGINE_DEVICE", c.Engine.Device)
	c.Engine.SampleRate = getEnvInt("ENGINE_SAMPLE_RATE", c.Engine.SampleRate)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
}

func (c *Config) validate() error {
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required")
	}
	if cmd, _ := c.Engine.CommandLine(); cmd == "" {
		return fmt.Errorf("engine command is required")
	}
	if c.Engine.Device != "cuda" && c.Engine.Device != "cpu" {
		return fmt.Errorf("engine device must be cuda or cpu, got %q", c.Engine.Device)
	}
	if c.Engine.SampleRate <= 0 {
		return fmt.Errorf("engine sample rate must be positive, got %d", c.Engine.SampleRate)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
