package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kula-app/chiprocker/internal/config"
	"github.com/kula-app/chiprocker/internal/dump"
	"github.com/kula-app/chiprocker/internal/logging"
	"github.com/kula-app/chiprocker/internal/rkflash"
	"github.com/kula-app/chiprocker/internal/size"
	"github.com/kula-app/chiprocker/internal/wizard"
)

// The run function is like the main function, except that it takes in operating system fundamentals as arguments, and returns an error.
//
// If the run function finishes without an error, it means the application completed.
// If the run function returns an error, it means the application failed to complete.
//
// The logic of the run function must stay isolated so it can be tested in parallel.
func run(ctx context.Context, args []string, getenv func(key string) string, stdin io.Reader, stdout, stderr io.Writer) error {
	// Derive a context that is canceled on interrupt/termination so a running
	// dump can stop and remove its part files (Ctrl+C, SIGTERM).
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{
		getenv: getenv,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	root := a.rootCommand()
	root.SetArgs(args[1:])
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app holds the state shared by all subcommands once flags are parsed
type app struct {
	getenv func(key string) string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Persistent flags
	configPath string
	toolPath   string
	noSudo     bool
	noColor    bool
	noIntro    bool
	logLevel   string

	config *config.Config
	logger *slog.Logger
	tool   *rkflash.Tool
	color  bool
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "chiprocker",
		Short: "Interactive front-end for rkflashtool",
		Long: `ChipRocker drives rkflashtool to dump SDRAM and flash from RockChip devices.

Without a subcommand it starts the interactive wizard. Put the device in
LOADER mode before running flash I/O operations.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.wizard().Run(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to an HCL configuration file (default $"+config.EnvConfigFile+")")
	flags.StringVar(&a.toolPath, "tool", "", "Path to the rkflashtool binary")
	flags.BoolVar(&a.noSudo, "no-sudo", false, "Run rkflashtool without sudo")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&a.noIntro, "no-intro", false, "Skip the intro banner")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		a.menuCommand(),
		a.dumpCommand(),
		a.execCommand(),
		a.listCommand(),
	)
	return root
}

func (a *app) menuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the rkflashtool controller menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.wizard().Menu(cmd.Context())
		},
	}
}

func (a *app) dumpCommand() *cobra.Command {
	var (
		offset    string
		amount    string
		unit      string
		outDir    string
		name      string
		chunkSize string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump SDRAM to a file without prompting",
		Example: `  chiprocker dump --offset 0x60000000 --size 8 --unit mb
  chiprocker dump --size 512Ki --out-dir /tmp/dumps --name boot.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			req := dump.Request{
				Offset:    a.config.Offset,
				ChunkSize: a.config.ChunkSize,
				Dir:       a.config.OutDir,
				Name:      name,
			}

			if offset != "" {
				v, err := size.ParseOffset(offset)
				if err != nil {
					return err
				}
				req.Offset = v
			}
			if unit == "" {
				unit = a.config.Unit
			}
			if amount == "" {
				amount = a.config.Size
			}
			v, err := size.ParseAmount(amount, unit)
			if err != nil {
				return err
			}
			req.Size = v

			if outDir != "" {
				req.Dir = outDir
			}
			if chunkSize != "" {
				v, err := size.ParseQuantity(chunkSize)
				if err != nil {
					return err
				}
				req.ChunkSize = v
			}
			if req.Name == "" {
				id, err := a.tool.FlashID(ctx)
				if err != nil {
					a.logger.Warn("failed to read flash id, default dump name will not include it", "error", err)
				}
				req.Name = dump.DefaultName(time.Now(), id)
			}

			result, err := dump.NewDumper(a.tool, a.logger).Dump(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to dump SDRAM: %w", err)
			}
			fmt.Fprintln(a.stdout, result.Path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&offset, "offset", "", "Start offset in bytes, hex accepted (default from config)")
	flags.StringVar(&amount, "size", "", "Amount to dump in --unit, or a quantity such as 8Mi (default from config)")
	flags.StringVar(&unit, "unit", "", "Unit for --size: b, kb, mb or gb (default from config)")
	flags.StringVar(&outDir, "out-dir", "", "Folder for the dump (default from config)")
	flags.StringVar(&name, "name", "", "Dump file name (default chiprocker_dump_<time>_<flash id>.bin)")
	flags.StringVar(&chunkSize, "chunk-size", "", "Bytes per rkflashtool read, e.g. 1Mi (default from config)")
	return cmd
}

func (a *app) execCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command> [file]",
		Short: "Run a single rkflashtool subcommand",
		Long:  "Run a single rkflashtool subcommand. Use \"chiprocker list\" to see the available letters.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.tool.Run(cmd.Context(), args[0], args[1:]...)
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the rkflashtool subcommands",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			for _, c := range rkflash.Commands {
				file := ""
				if c.TakesFile {
					file = " <file>"
				}
				fmt.Fprintf(a.stdout, "%s%-8s %s\n", c.Letter, file, c.Description)
			}
		},
	}
}

// setup loads the configuration, applies the persistent flags and builds
// the logger and the rkflashtool wrapper
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, a.getenv)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("tool") {
		cfg.ToolPath = a.toolPath
	}
	if a.noSudo {
		cfg.UseSudo = false
	}
	if a.noColor || a.getenv("NO_COLOR") != "" {
		cfg.Color = false
	}
	if a.noIntro {
		cfg.Intro = false
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logging.ParseLevel(a.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.config = cfg
	a.color = cfg.Color && logging.IsTerminal(a.stdout)
	a.logger = slog.New(logging.NewHandler(a.stderr, cfg.LogLevel, cfg.Color && logging.IsTerminal(a.stderr)))
	// stdin stays with the prompter; sudo asks for passwords on the tty
	a.tool = rkflash.NewTool(cfg.ToolPath, cfg.UseSudo, rkflash.ProcessExecutor{}, a.logger, rkflash.Stdio{
		Stdout: a.stdout,
		Stderr: a.stderr,
	})

	a.logger.Debug("configuration loaded",
		"tool", cfg.ToolPath,
		"sudo", cfg.UseSudo,
		"offset", cfg.Offset,
		"unit", cfg.Unit,
		"size", cfg.Size,
		"out_dir", cfg.OutDir,
		"chunk_size", cfg.ChunkSize)
	return nil
}

func (a *app) wizard() *wizard.Wizard {
	return wizard.New(
		a.tool,
		dump.NewDumper(a.tool, a.logger),
		a.config,
		wizard.NewPrompter(a.stdin, a.stdout),
		wizard.NewConsole(a.stdout, a.color),
		a.logger,
	)
}
