// Package wizard implements the interactive ChipRocker console: the intro,
// the guided SDRAM dump and the rkflashtool controller menu.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/kula-app/chiprocker/internal/config"
	"github.com/kula-app/chiprocker/internal/dump"
	"github.com/kula-app/chiprocker/internal/rkflash"
	"github.com/kula-app/chiprocker/internal/size"
)

// Tool is the subset of rkflash.Tool used by the wizard
type Tool interface {
	Run(ctx context.Context, letter string, args ...string) error
	FlashID(ctx context.Context) (string, error)
}

// Dumper performs a chunked dump
type Dumper interface {
	Dump(ctx context.Context, req dump.Request) (*dump.Result, error)
}

// Wizard drives the interactive flow
type Wizard struct {
	tool     Tool
	dumper   Dumper
	config   *config.Config
	prompter *Prompter
	console  *Console
	logger   *slog.Logger

	// Now and Sleep are replaced in tests
	Now   func() time.Time
	Sleep func(time.Duration)
}

// New creates a wizard
func New(tool Tool, dumper Dumper, cfg *config.Config, prompter *Prompter, console *Console, logger *slog.Logger) *Wizard {
	return &Wizard{
		tool:     tool,
		dumper:   dumper,
		config:   cfg,
		prompter: prompter,
		console:  console,
		logger:   logger,
		Now:      time.Now,
		Sleep:    time.Sleep,
	}
}

// Run shows the intro, prints the flash info and then either starts the
// dump flow or, if the user declines, the controller menu.
func (w *Wizard) Run(ctx context.Context) error {
	if w.config.Intro {
		w.intro()
	}

	// Flash info is informational; a missing device should not stop the menu.
	if err := w.tool.Run(ctx, rkflash.CmdFlashInfo); err != nil {
		w.logger.Warn("failed to read flash info", "error", err)
	}

	answer, err := w.prompter.Ask(ctx,
		w.console.Sprint(color.FgMagenta, "Do you wish to jump directly to the dumping module? (Y/n, default Y): "), "y")
	if err != nil {
		return err
	}

	if strings.EqualFold(answer, "n") {
		return w.Menu(ctx)
	}
	return w.Dump(ctx)
}

// Dump asks for the dump parameters, runs the dump and prints the result
func (w *Wizard) Dump(ctx context.Context) error {
	req, err := w.askDumpRequest(ctx)
	if err != nil {
		return err
	}

	bar := w.newProgressBar(dump.ChunkCount(req.Size, req.ChunkSize), req.ChunkSize)
	req.Progress = bar

	result, err := w.dumper.Dump(ctx, req)
	if err != nil {
		w.console.Println()
		return fmt.Errorf("failed to dump SDRAM: %w", err)
	}

	w.console.Println()
	w.console.Line(color.FgGreen, "✅ Successfully read data from SDRAM. Dump saved at: "+result.Path)
	w.console.Printf("🔑 xxhash64: %016x\n", result.Checksum)
	w.console.Println("Thank you for using ChipRocker!")
	return nil
}

func (w *Wizard) askDumpRequest(ctx context.Context) (dump.Request, error) {
	cfg := w.config
	reject := func(err error) { w.console.Errorf("%s", err) }

	offset, err := AskValid(ctx, w.prompter,
		fmt.Sprintf("📏 What starting offset would you like to use? (default: %d): ", cfg.Offset),
		fmt.Sprint(cfg.Offset), size.ParseOffset, reject)
	if err != nil {
		return dump.Request{}, err
	}

	unit, err := AskValid(ctx, w.prompter,
		fmt.Sprintf("📏 What unit of size would you like to use? (b/kb/mb/gb, default: %s): ", strings.ToLower(cfg.Unit)),
		cfg.Unit, parseUnit, reject)
	if err != nil {
		return dump.Request{}, err
	}

	amount, err := AskValid(ctx, w.prompter,
		fmt.Sprintf("🔢 How many %s would you like to pull from the device? (default: %s): ", strings.ToUpper(unit), cfg.Size),
		cfg.Size, func(s string) (int64, error) { return parsePositiveAmount(s, unit) }, reject)
	if err != nil {
		return dump.Request{}, err
	}

	folder, err := w.prompter.Ask(ctx,
		fmt.Sprintf("📂 Where would you like to dump the pulled data? (e.g., /path/to/folder/, default: %s): ", cfg.OutDir),
		cfg.OutDir)
	if err != nil {
		return dump.Request{}, err
	}

	defaultName := dump.DefaultName(w.Now(), w.flashID(ctx))
	name, err := w.prompter.Ask(ctx,
		fmt.Sprintf("📂 Would you like to provide a custom name for the dump? (default: %s): ", defaultName),
		defaultName)
	if err != nil {
		return dump.Request{}, err
	}

	return dump.Request{
		Offset:    offset,
		Size:      amount,
		ChunkSize: cfg.ChunkSize,
		Dir:       folder,
		Name:      name,
	}, nil
}

// flashID returns the IDBlock output used in default file names, or "" if it cannot be read
func (w *Wizard) flashID(ctx context.Context) string {
	id, err := w.tool.FlashID(ctx)
	if err != nil {
		w.logger.Warn("failed to read flash id, default dump name will not include it", "error", err)
		return ""
	}
	return id
}

func (w *Wizard) newProgressBar(chunks int, chunkSize int64) *progressbar.ProgressBar {
	unit := "chunks"
	if chunkSize == size.MiB {
		unit = "MB"
	}
	return progressbar.NewOptions(chunks,
		progressbar.OptionSetWriter(w.console.Writer()),
		progressbar.OptionSetDescription("🔄 Reading data"),
		progressbar.OptionEnableColorCodes(w.console.color),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (w *Wizard) intro() {
	w.console.Clear()
	w.console.Line(color.FgBlue, "Initializing Wizard")
	w.Sleep(time.Second)
	w.console.Clear()

	w.console.Line(color.FgGreen, "Number one")
	for _, row := range banner {
		w.console.Line(color.FgWhite, row)
	}
	w.console.Line(color.FgGreen, "🧙 The ChipRocker wizard is a universal RockChip interface system ")
	w.console.Line(color.FgBlue, "used for dumping, writing, and interacting with RKXXX devices.")
	w.console.Line(color.FgYellow, "Ensure you're in LOADER mode for flash I/O operations. 🧙")
	w.Sleep(2 * time.Second)
}

var banner = []string{
	"   _|_|_|  _|        _|            _|_|_|                        _|                            ",
	" _|        _|_|_|        _|_|_|    _|    _|    _|_|      _|_|_|  _|  _|      _|_|    _|  _|_|  ",
	" _|        _|    _|  _|  _|    _|  _|_|_|    _|    _|  _|        _|_|      _|_|_|_|  _|_|      ",
	" _|        _|    _|  _|  _|    _|  _|    _|  _|    _|  _|        _|  _|    _|        _|        ",
	"   _|_|_|  _|    _|  _|  _|_|_|    _|    _|    _|_|      _|_|_|  _|    _|    _|_|_|  _|        ",
	"                         _|                                                                    ",
	"                         _|                                                                    ",
}

func parseUnit(s string) (string, error) {
	unit := strings.ToLower(s)
	if _, err := size.Multiplier(unit); err != nil {
		return "", err
	}
	return unit, nil
}

func parsePositiveAmount(amount, unit string) (int64, error) {
	n, err := size.ParseAmount(amount, unit)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("amount must be at least one byte")
	}
	return n, nil
}

// Compile-time checks against the concrete implementations
var (
	_ Tool   = (*rkflash.Tool)(nil)
	_ Dumper = (*dump.Dumper)(nil)
)
