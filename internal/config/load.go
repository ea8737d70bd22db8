package config

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/kula-app/chiprocker/internal/logging"
	"github.com/kula-app/chiprocker/internal/size"
)

// fileRoot mirrors the blocks accepted in a configuration file:
//
//	tool {
//	  path = "/usr/local/bin/rkflashtool"
//	  sudo = false
//	}
//
//	dump {
//	  offset     = "0x60000000"
//	  unit       = "mb"
//	  size       = "16"
//	  out_dir    = "/tmp/dumps"
//	  chunk_size = "512Ki"
//	}
//
//	ui {
//	  intro     = false
//	  color     = true
//	  log_level = "debug"
//	}
type fileRoot struct {
	Tool *toolBlock `hcl:"tool,block"`
	Dump *dumpBlock `hcl:"dump,block"`
	UI   *uiBlock   `hcl:"ui,block"`
}

type toolBlock struct {
	Path *string `hcl:"path,optional"`
	Sudo *bool   `hcl:"sudo,optional"`
}

type dumpBlock struct {
	Offset    *string `hcl:"offset,optional"`
	Unit      *string `hcl:"unit,optional"`
	Size      *string `hcl:"size,optional"`
	OutDir    *string `hcl:"out_dir,optional"`
	ChunkSize *string `hcl:"chunk_size,optional"`
}

type uiBlock struct {
	Intro    *bool   `hcl:"intro,optional"`
	Color    *bool   `hcl:"color,optional"`
	LogLevel *string `hcl:"log_level,optional"`
}

// Load builds the configuration from the defaults, the optional HCL file and
// the environment, in that order. An empty path falls back to the
// CHIPROCKER_CONFIG variable; if both are empty no file is read.
func Load(path string, getenv func(key string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	if t := root.Tool; t != nil {
		if t.Path != nil {
			c.ToolPath = *t.Path
		}
		if t.Sudo != nil {
			c.UseSudo = *t.Sudo
		}
	}

	if d := root.Dump; d != nil {
		if err := c.setDumpValues(d.Offset, d.Unit, d.Size, d.OutDir, d.ChunkSize); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if u := root.UI; u != nil {
		if u.Intro != nil {
			c.Intro = *u.Intro
		}
		if u.Color != nil {
			c.Color = *u.Color
		}
		if u.LogLevel != nil {
			c.LogLevel = logging.ParseLevel(*u.LogLevel)
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(key string) string) error {
	if v := getenv(EnvTool); v != "" {
		c.ToolPath = v
	}
	if v := getenv(EnvSudo); v != "" {
		sudo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSudo, v, err)
		}
		c.UseSudo = sudo
	}
	if err := c.setDumpValues(
		lookup(getenv, EnvOffset),
		lookup(getenv, EnvUnit),
		lookup(getenv, EnvSize),
		lookup(getenv, EnvOutDir),
		lookup(getenv, EnvChunkSize),
	); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = logging.ParseLevel(v)
	}
	return nil
}

// setDumpValues applies the dump settings shared by the file and the environment
func (c *Config) setDumpValues(offset, unit, amount, outDir, chunkSize *string) error {
	if offset != nil {
		v, err := size.ParseOffset(*offset)
		if err != nil {
			return fmt.Errorf("invalid offset: %w", err)
		}
		c.Offset = v
	}
	if unit != nil {
		c.Unit = *unit
	}
	if amount != nil {
		c.Size = *amount
	}
	if outDir != nil {
		c.OutDir = *outDir
	}
	if chunkSize != nil {
		v, err := size.ParseQuantity(*chunkSize)
		if err != nil {
			return fmt.Errorf("invalid chunk size: %w", err)
		}
		c.ChunkSize = v
	}
	return nil
}

func lookup(getenv func(key string) string, key string) *string {
	if v := getenv(key); v != "" {
		return &v
	}
	return nil
}
