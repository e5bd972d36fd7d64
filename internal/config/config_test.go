package config

import (
	"flag"
	"io"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOX_ACCESS_TOKEN", "dev-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.MetricsAddr != ":9090" {
		t.Fatalf("addresses = %q / %q, want :8080 / :9090", cfg.ListenAddr, cfg.MetricsAddr)
	}
	if cfg.Backend != BackendBox || cfg.BoxListLimit != 1000 || cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Fatalf("Load() = %+v", cfg)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("BOXFS_BACKEND", "memory")
	t.Setenv("BOXFS_PATH_PREFIX", "tenant")
	t.Setenv("BOXFS_ROOT_FOLDER_ID", "12345")
	t.Setenv("BOX_LIST_LIMIT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != BackendMemory || cfg.PathPrefix != "tenant" || cfg.RootFolderID != "12345" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.BoxListLimit != 1000 {
		t.Fatalf("BoxListLimit = %d, want fallback 1000", cfg.BoxListLimit)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{ListenAddr: ":8080", LogFormat: "json", Backend: BackendBox, BoxAccessToken: "t", BoxListLimit: 100}

	cases := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.BoxAccessToken = "" }, "BOX_ACCESS_TOKEN"},
		{"limit too large", func(c *Config) { c.BoxListLimit = 5000 }, "BOX_LIST_LIMIT"},
		{"gdrive needs no token", func(c *Config) { c.Backend = BackendGDrive; c.BoxAccessToken = "" }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "s3" }, "unknown backend"},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"no listen address", func(c *Config) { c.ListenAddr = "" }, "LISTEN_ADDR"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			cfg := valid
			c.modify(&cfg)
			err := cfg.Validate()
			if c.errSub == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), c.errSub) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, c.errSub)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("boxfs-dav", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	base := Config{ListenAddr: ":8080", Backend: BackendBox, BoxListLimit: 1000, BoxAccessToken: "t"}

	cfg, err := ParseFlags(fs, []string{"-backend", "memory", "-prefix", "mnt", "-listen", ":7000"}, base)
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if cfg.Backend != BackendMemory || cfg.PathPrefix != "mnt" || cfg.ListenAddr != ":7000" {
		t.Fatalf("ParseFlags() = %+v", cfg)
	}
	if cfg.BoxAccessToken != "t" || cfg.BoxListLimit != 1000 {
		t.Fatalf("ParseFlags() dropped unflagged settings: %+v", cfg)
	}

	fs = flag.NewFlagSet("boxfs-dav", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := ParseFlags(fs, []string{"-no-such-flag"}, base); err == nil {
		t.Fatalf("ParseFlags() error = nil, want unknown flag error")
	}
}
