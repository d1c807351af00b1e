package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved voicesync configuration.
type Config struct {
	APIURL    string
	Token     string
	DataDir   string
	LogLevel  string
	ExportDir string

	Poll    Poll
	Network Network
	Record  Record
}

// Poll controls the note status poller.
type Poll struct {
	MinDelay      time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Network controls request deadlines and how quickly the API is declared
// unreachable.
type Network struct {
	RequestTimeout       time.Duration
	UploadTimeout        time.Duration
	OfflineAfterFailures int
}

// Record configures the external recorder. Command writes audio to stdout.
type Record struct {
	Command  []string
	Filename string
}

const (
	defaultConfigPath = "~/.config/voicesync/config.toml"
	defaultAPIURL     = "http://localhost:8000/api/v1"
	defaultDataDir    = "~/.local/share/voicesync"
	defaultExportDir  = "~/Documents/voicesync"
	defaultLogLevel   = "info"

	defaultMinDelay       = 3 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultBackoffFactor  = 1.5
	defaultRequestTimeout = 15 * time.Second
	defaultUploadTimeout  = 5 * time.Minute
	defaultOfflineAfter   = 2
	defaultRecordFilename = "recording.webm"

	envAPIURL = "VOICESYNC_API_URL"
	envToken  = "VOICESYNC_TOKEN"
)

var defaultRecordCommand = []string{"ffmpeg", "-loglevel", "error", "-f", "pulse", "-i", "default", "-c:a", "libopus", "-f", "webm", "-"}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:    defaultAPIURL,
		DataDir:   mustExpand(defaultDataDir),
		ExportDir: mustExpand(defaultExportDir),
		LogLevel:  defaultLogLevel,
		Poll: Poll{
			MinDelay:      defaultMinDelay,
			MaxDelay:      defaultMaxDelay,
			BackoffFactor: defaultBackoffFactor,
		},
		Network: Network{
			RequestTimeout:       defaultRequestTimeout,
			UploadTimeout:        defaultUploadTimeout,
			OfflineAfterFailures: defaultOfflineAfter,
		},
		Record: Record{
			Command:  append([]string(nil), defaultRecordCommand...),
			Filename: defaultRecordFilename,
		},
	}
}

type rawConfig struct {
	APIURL    string `toml:"api_url"`
	Token     string `toml:"token"`
	DataDir   string `toml:"data_dir"`
	LogLevel  string `toml:"log_level"`
	ExportDir string `toml:"export_dir"`
	Poll      struct {
		MinDelay      string  `toml:"min_delay"`
		MaxDelay      string  `toml:"max_delay"`
		BackoffFactor float64 `toml:"backoff_factor"`
	} `toml:"poll"`
	Network struct {
		RequestTimeout       string `toml:"request_timeout"`
		UploadTimeout        string `toml:"upload_timeout"`
		OfflineAfterFailures int    `toml:"offline_after_failures"`
	} `toml:"network"`
	Record struct {
		Command  []string `toml:"command"`
		Filename string   `toml:"filename"`
	} `toml:"record"`
}

// Load locates and parses the config file, falling back to defaults when it
// is missing. .env files in the working directory and next to the config file
// are loaded first, then VOICESYNC_API_URL and VOICESYNC_TOKEN override the
// file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	loadDotEnv(filepath.Dir(resolved))

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw rawConfig
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.apply(raw); err != nil {
			return Config{}, err
		}
	}

	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envToken)); v != "" {
		cfg.Token = v
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(raw rawConfig) error {
	setString(&c.APIURL, raw.APIURL)
	setString(&c.Token, raw.Token)
	setString(&c.LogLevel, raw.LogLevel)
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		c.DataDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.ExportDir); v != "" {
		c.ExportDir = mustExpand(v)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"poll.min_delay", raw.Poll.MinDelay, &c.Poll.MinDelay},
		{"poll.max_delay", raw.Poll.MaxDelay, &c.Poll.MaxDelay},
		{"network.request_timeout", raw.Network.RequestTimeout, &c.Network.RequestTimeout},
		{"network.upload_timeout", raw.Network.UploadTimeout, &c.Network.UploadTimeout},
	}
	for _, d := range durations {
		v := strings.TrimSpace(d.raw)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if raw.Poll.BackoffFactor != 0 {
		c.Poll.BackoffFactor = raw.Poll.BackoffFactor
	}
	if raw.Network.OfflineAfterFailures != 0 {
		c.Network.OfflineAfterFailures = raw.Network.OfflineAfterFailures
	}

	var argv []string
	for _, arg := range raw.Record.Command {
		if arg = strings.TrimSpace(arg); arg != "" {
			argv = append(argv, arg)
		}
	}
	if len(argv) > 0 {
		c.Record.Command = argv
	}
	setString(&c.Record.Filename, raw.Record.Filename)
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url is required")
	}
	if c.Poll.MinDelay <= 0 {
		return fmt.Errorf("poll.min_delay must be positive, got %s", c.Poll.MinDelay)
	}
	if c.Poll.MaxDelay < c.Poll.MinDelay {
		return fmt.Errorf("poll.max_delay (%s) must not be below poll.min_delay (%s)", c.Poll.MaxDelay, c.Poll.MinDelay)
	}
	if c.Poll.BackoffFactor <= 1 {
		return fmt.Errorf("poll.backoff_factor must be greater than 1, got %g", c.Poll.BackoffFactor)
	}
	if c.Network.RequestTimeout <= 0 || c.Network.UploadTimeout <= 0 {
		return errors.New("network timeouts must be positive")
	}
	if c.Network.OfflineAfterFailures < 1 {
		return fmt.Errorf("network.offline_after_failures must be at least 1, got %d", c.Network.OfflineAfterFailures)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// PendingDBPath returns the SQLite file holding queued recordings.
func (c Config) PendingDBPath() string {
	return filepath.Join(c.dataDir(), "pending.db")
}

// LogPath returns the path of the voicesync log file.
func (c Config) LogPath() string {
	return filepath.Join(c.dataDir(), "voicesync.log")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

// loadDotEnv loads .env from the working directory and dir without
// overriding variables that are already set.
func loadDotEnv(dir string) {
	for _, candidate := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
		}
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
