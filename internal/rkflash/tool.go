package rkflash

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Stdio holds the streams handed to an rkflashtool process
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Executor starts a process and waits for it to exit
type Executor interface {
	Execute(ctx context.Context, name string, args []string, stdio Stdio) error
}

// ProcessExecutor runs commands as real child processes
type ProcessExecutor struct{}

// Execute runs name with args and blocks until it exits or ctx is canceled
func (ProcessExecutor) Execute(ctx context.Context, name string, args []string, stdio Stdio) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	return cmd.Run()
}

// Tool invokes the rkflashtool binary
type Tool struct {
	path     string
	sudo     bool
	executor Executor
	logger   *slog.Logger
	console  Stdio
}

// NewTool creates a tool wrapper. console is attached to interactive subcommands.
func NewTool(path string, sudo bool, executor Executor, logger *slog.Logger, console Stdio) *Tool {
	return &Tool{
		path:     path,
		sudo:     sudo,
		executor: executor,
		logger:   logger,
		console:  console,
	}
}

// Run executes a subcommand with the console attached. Subcommands that take
// a file need exactly one argument, the file path.
func (t *Tool) Run(ctx context.Context, letter string, args ...string) error {
	cmd, err := Lookup(letter)
	if err != nil {
		return err
	}
	if cmd.TakesFile && (len(args) != 1 || strings.TrimSpace(args[0]) == "") {
		return fmt.Errorf("%s (%s) requires a file path", cmd.Letter, cmd.Description)
	}
	return t.execute(ctx, t.console, letter, args...)
}

// ReadSDRAM reads length bytes starting at offset and writes them to w
func (t *Tool) ReadSDRAM(ctx context.Context, offset, length int64, w io.Writer) error {
	stdio := Stdio{Stdout: w, Stderr: t.console.Stderr}
	return t.execute(ctx, stdio, CmdReadSDRAM,
		strconv.FormatInt(offset, 10),
		strconv.FormatInt(length, 10))
}

// FlashID reads the IDBlocks and returns the output with surrounding whitespace removed
func (t *Tool) FlashID(ctx context.Context) (string, error) {
	var out bytes.Buffer
	stdio := Stdio{Stdout: &out, Stderr: t.console.Stderr}
	if err := t.execute(ctx, stdio, CmdIDBlocks); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func (t *Tool) execute(ctx context.Context, stdio Stdio, letter string, args ...string) error {
	name, argv := t.commandLine(letter, args...)
	t.logger.Debug("running rkflashtool", "command", letter, "argv", append([]string{name}, argv...))

	if err := t.executor.Execute(ctx, name, argv, stdio); err != nil {
		return fmt.Errorf("failed to run rkflashtool %s: %w", letter, err)
	}
	return nil
}

// commandLine returns the program and arguments for a subcommand
func (t *Tool) commandLine(letter string, args ...string) (string, []string) {
	argv := make([]string, 0, len(args)+2)
	name := t.path
	if t.sudo {
		name = "sudo"
		argv = append(argv, t.path)
	}
	argv = append(argv, letter)
	argv = append(argv, args...)
	return name, argv
}
