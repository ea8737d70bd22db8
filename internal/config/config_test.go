package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if cfg.ToolPath != "rkflashtool" {
		t.Errorf("ToolPath = %q, want %q", cfg.ToolPath, "rkflashtool")
	}

	if !cfg.UseSudo {
		t.Error("UseSudo = false, want true")
	}

	// 0x60000000
	if cfg.Offset != 1610612736 {
		t.Errorf("Offset = %v, want 1610612736", cfg.Offset)
	}

	if cfg.Unit != "mb" {
		t.Errorf("Unit = %q, want %q", cfg.Unit, "mb")
	}

	if cfg.Size != "8" {
		t.Errorf("Size = %q, want %q", cfg.Size, "8")
	}

	if cfg.OutDir != "." {
		t.Errorf("OutDir = %q, want %q", cfg.OutDir, ".")
	}

	if cfg.ChunkSize != 1048576 {
		t.Errorf("ChunkSize = %v, want 1048576", cfg.ChunkSize)
	}

	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:   "upper case unit is accepted",
			mutate: func(c *Config) { c.Unit = "GB" },
		},
		{
			name:    "unknown unit",
			mutate:  func(c *Config) { c.Unit = "tb" },
			wantErr: true,
		},
		{
			name:    "negative offset",
			mutate:  func(c *Config) { c.Offset = -1 },
			wantErr: true,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: true,
		},
		{
			name:    "blank tool path",
			mutate:  func(c *Config) { c.ToolPath = "  " },
			wantErr: true,
		},
		{
			name:   "quantity size",
			mutate: func(c *Config) { c.Size = "512Ki" },
		},
		{
			name:    "size is not a number",
			mutate:  func(c *Config) { c.Size = "abc" },
			wantErr: true,
		},
		{
			name:    "zero size",
			mutate:  func(c *Config) { c.Size = "0" },
			wantErr: true,
		},
		{
			name:    "decimal size suffix",
			mutate:  func(c *Config) { c.Size = "8M" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Environment(t *testing.T) {
	env := map[string]string{
		EnvTool:      "/opt/rk/rkflashtool",
		EnvSudo:      "false",
		EnvOffset:    "0x1000",
		EnvUnit:      "kb",
		EnvSize:      "64",
		EnvOutDir:    "/tmp/out",
		EnvChunkSize: "512Ki",
		EnvLogLevel:  "debug",
	}

	cfg, err := Load("", mapEnv(env))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ToolPath != "/opt/rk/rkflashtool" {
		t.Errorf("ToolPath = %q, want %q", cfg.ToolPath, "/opt/rk/rkflashtool")
	}
	if cfg.UseSudo {
		t.Error("UseSudo = true, want false")
	}
	if cfg.Offset != 4096 {
		t.Errorf("Offset = %v, want 4096", cfg.Offset)
	}
	if cfg.Unit != "kb" {
		t.Errorf("Unit = %q, want %q", cfg.Unit, "kb")
	}
	if cfg.Size != "64" {
		t.Errorf("Size = %q, want %q", cfg.Size, "64")
	}
	if cfg.OutDir != "/tmp/out" {
		t.Errorf("OutDir = %q, want %q", cfg.OutDir, "/tmp/out")
	}
	if cfg.ChunkSize != 524288 {
		t.Errorf("ChunkSize = %v, want 524288", cfg.ChunkSize)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
}

func TestLoad_EnvironmentErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad sudo flag", env: map[string]string{EnvSudo: "maybe"}},
		{name: "bad offset", env: map[string]string{EnvOffset: "0xZZ"}},
		{name: "bad chunk size", env: map[string]string{EnvChunkSize: "lots"}},
		{name: "bad size", env: map[string]string{EnvSize: "abc"}},
		{name: "bad unit", env: map[string]string{EnvUnit: "pb"}},
		{name: "missing config file", env: map[string]string{EnvConfigFile: "/does/not/exist.hcl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("", mapEnv(tt.env)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	content := `
tool {
  path = "/usr/local/bin/rkflashtool"
  sudo = false
}

dump {
  offset     = "0x60000000"
  unit       = "gb"
  size       = "1.5"
  out_dir    = "dumps"
  chunk_size = "2Mi"
}

ui {
  intro     = false
  color     = false
  log_level = "warn"
}
`
	path := writeFile(t, content)

	cfg, err := Load(path, mapEnv(nil))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ToolPath != "/usr/local/bin/rkflashtool" {
		t.Errorf("ToolPath = %q", cfg.ToolPath)
	}
	if cfg.UseSudo {
		t.Error("UseSudo = true, want false")
	}
	if cfg.Offset != DefaultOffset {
		t.Errorf("Offset = %v, want %v", cfg.Offset, DefaultOffset)
	}
	if cfg.Unit != "gb" || cfg.Size != "1.5" {
		t.Errorf("Unit/Size = %q/%q, want gb/1.5", cfg.Unit, cfg.Size)
	}
	if cfg.OutDir != "dumps" {
		t.Errorf("OutDir = %q, want dumps", cfg.OutDir)
	}
	if cfg.ChunkSize != 2*1024*1024 {
		t.Errorf("ChunkSize = %v, want %v", cfg.ChunkSize, 2*1024*1024)
	}
	if cfg.Intro || cfg.Color {
		t.Errorf("Intro/Color = %v/%v, want false/false", cfg.Intro, cfg.Color)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelWarn)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, `
tool {
  path = "from-file"
}
`)

	cfg, err := Load(path, mapEnv(map[string]string{EnvTool: "from-env"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ToolPath != "from-env" {
		t.Errorf("ToolPath = %q, want %q", cfg.ToolPath, "from-env")
	}
}

func TestLoad_FileFromEnvironment(t *testing.T) {
	path := writeFile(t, `
dump {
  size = "32"
}
`)

	cfg, err := Load("", mapEnv(map[string]string{EnvConfigFile: path}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Size != "32" {
		t.Errorf("Size = %q, want %q", cfg.Size, "32")
	}
}

func TestLoad_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "syntax error", content: "tool {\n path = \n"},
		{name: "unknown block", content: "flash {\n}\n"},
		{name: "unknown attribute", content: "tool {\n speed = 3\n}\n"},
		{name: "invalid offset", content: "dump {\n offset = \"nope\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			if _, err := Load(path, mapEnv(nil)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

// Helper functions

func mapEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chiprocker.hcl")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}
