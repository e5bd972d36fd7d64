// Package config loads the boxfs-dav configuration from environment variables and flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Supported backends.
const (
	BackendBox    = "box"
	BackendGDrive = "gdrive"
	BackendMemory = "memory"
)

// MaxBoxListLimit is the largest page size the Box API accepts.
const MaxBoxListLimit = 1000

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Adapter
	Backend      string
	PathPrefix   string
	RootFolderID string // empty selects the backend's top-level folder

	// Box
	BoxAccessToken string
	BoxAPIURL      string
	BoxUploadURL   string
	BoxListLimit   int
}

// FromEnv reads configuration from environment variables with defaults. It does not validate.
func FromEnv() Config {
	return Config{
		ListenAddr:     envOr("BOXFS_LISTEN_ADDR", ":8080"),
		MetricsAddr:    envOr("BOXFS_METRICS_ADDR", ":9090"),
		LogLevel:       envOr("BOXFS_LOG_LEVEL", "info"),
		LogFormat:      envOr("BOXFS_LOG_FORMAT", "json"),
		Backend:        envOr("BOXFS_BACKEND", BackendBox),
		PathPrefix:     envOr("BOXFS_PATH_PREFIX", ""),
		RootFolderID:   envOr("BOXFS_ROOT_FOLDER_ID", ""),
		BoxAccessToken: envOr("BOX_ACCESS_TOKEN", ""),
		BoxAPIURL:      envOr("BOX_API_URL", "https://api.box.com/2.0"),
		BoxUploadURL:   envOr("BOX_UPLOAD_URL", "https://upload.box.com/api/2.0"),
		BoxListLimit:   envInt("BOX_LIST_LIMIT", MaxBoxListLimit),
	}
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFlags overrides base with command line flags parsed from args.
func ParseFlags(fs *flag.FlagSet, args []string, base Config) (Config, error) {
	listen := fs.String("listen", base.ListenAddr, "WebDAV listen address")
	metricsAddr := fs.String("metrics", base.MetricsAddr, "Prometheus metrics listen address (empty disables)")
	logLevel := fs.String("log-level", base.LogLevel, "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", base.LogFormat, "Log format: json or console")
	backend := fs.String("backend", base.Backend, "Remote backend: box, gdrive or memory")
	prefix := fs.String("prefix", base.PathPrefix, "Path prefix the root folder is mounted at")
	root := fs.String("root", base.RootFolderID, "Remote folder ID used as root")
	listLimit := fs.Int("box-list-limit", base.BoxListLimit, "Box folder listing page size")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	base.ListenAddr = *listen
	base.MetricsAddr = *metricsAddr
	base.LogLevel = *logLevel
	base.LogFormat = *logFormat
	base.Backend = *backend
	base.PathPrefix = *prefix
	base.RootFolderID = *root
	base.BoxListLimit = *listLimit
	return base, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("BOXFS_LISTEN_ADDR is required")
	}
	switch c.Backend {
	case BackendBox:
		if c.BoxAccessToken == "" {
			return fmt.Errorf("BOX_ACCESS_TOKEN is required for the box backend")
		}
		if c.BoxListLimit < 1 || c.BoxListLimit > MaxBoxListLimit {
			return fmt.Errorf("BOX_LIST_LIMIT must be between 1 and %d, got %d", MaxBoxListLimit, c.BoxListLimit)
		}
	case BackendGDrive, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q: want %s, %s or %s", c.Backend, BackendBox, BackendGDrive, BackendMemory)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("unknown log format %q: want json or console", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
