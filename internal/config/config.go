package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kula-app/chiprocker/internal/size"
)

// Environment variable names read by Load
const (
	// EnvConfigFile points at an optional HCL configuration file
	EnvConfigFile = "CHIPROCKER_CONFIG"

	// EnvTool overrides the rkflashtool binary path
	EnvTool = "CHIPROCKER_TOOL"

	// EnvSudo toggles the sudo prefix ("true"/"false", "1"/"0")
	EnvSudo = "CHIPROCKER_SUDO"

	// EnvOffset overrides the default dump start offset (hex accepted)
	EnvOffset = "CHIPROCKER_OFFSET"

	// EnvUnit overrides the default size unit (b, kb, mb, gb)
	EnvUnit = "CHIPROCKER_UNIT"

	// EnvSize overrides the default amount to dump, in Unit
	EnvSize = "CHIPROCKER_SIZE"

	// EnvOutDir overrides the default dump folder
	EnvOutDir = "CHIPROCKER_OUT_DIR"

	// EnvChunkSize overrides the read chunk size (quantity such as "1Mi" or raw bytes)
	EnvChunkSize = "CHIPROCKER_CHUNK_SIZE"

	// EnvLogLevel sets the log level (debug, info, warn, error)
	EnvLogLevel = "CHIPROCKER_LOG_LEVEL"
)

const (
	// DefaultOffset is the SDRAM address dumps start from unless told otherwise
	DefaultOffset int64 = 1610612736

	// DefaultChunkSize is the number of bytes requested per rkflashtool read
	DefaultChunkSize int64 = 1024 * 1024
)

// Config represents the chiprocker configuration
type Config struct {
	// ToolPath is the rkflashtool binary to invoke
	ToolPath string `json:"toolPath"`

	// UseSudo prefixes every invocation with sudo
	UseSudo bool `json:"useSudo"`

	// Offset is the default dump start offset in bytes
	Offset int64 `json:"offset"`

	// Unit is the default size unit offered by the dump prompt
	Unit string `json:"unit"`

	// Size is the default amount to dump, expressed in Unit
	Size string `json:"size"`

	// OutDir is the default folder dumps are written to
	OutDir string `json:"outDir"`

	// ChunkSize is the number of bytes read per rkflashtool call
	ChunkSize int64 `json:"chunkSize"`

	// Intro shows the animated banner before the wizard starts
	Intro bool `json:"intro"`

	// Color enables colored console output when the terminal supports it
	Color bool `json:"color"`

	// LogLevel is the minimum level written to the log
	LogLevel slog.Level `json:"logLevel"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		ToolPath:  "rkflashtool",
		UseSudo:   true,
		Offset:    DefaultOffset,
		Unit:      "mb",
		Size:      "8",
		OutDir:    ".",
		ChunkSize: DefaultChunkSize,
		Intro:     true,
		Color:     true,
		LogLevel:  slog.LevelInfo,
	}
}

// Units lists the size units accepted by the dump prompt
var Units = []string{"b", "kb", "mb", "gb"}

// Validate checks the configuration for values the dump flow cannot work with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ToolPath) == "" {
		return fmt.Errorf("tool path must not be empty")
	}
	if c.Offset < 0 {
		return fmt.Errorf("offset must not be negative, got %d", c.Offset)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if !isUnit(c.Unit) {
		return fmt.Errorf("unknown unit %q (want one of %s)", c.Unit, strings.Join(Units, "/"))
	}
	n, err := size.ParseAmount(c.Size, c.Unit)
	if err != nil {
		return fmt.Errorf("invalid dump size: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("dump size %q %s is less than one byte", c.Size, c.Unit)
	}
	return nil
}

func isUnit(unit string) bool {
	for _, u := range Units {
		if strings.EqualFold(u, unit) {
			return true
		}
	}
	return false
}
