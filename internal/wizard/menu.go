package wizard

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/kula-app/chiprocker/internal/rkflash"
)

// Menu runs the controller menu until the user picks X or input ends
func (w *Wizard) Menu(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.printMenu()
		choice, err := w.prompter.Ask(ctx, "Select an option: ", "")
		if errors.Is(err, ErrInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		if strings.EqualFold(choice, "x") {
			return nil
		}

		cmd, ok := menuChoice(choice)
		if !ok {
			continue
		}
		if err := w.runMenuCommand(ctx, cmd); err != nil {
			if errors.Is(err, ErrInputClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("command failed", "command", cmd.Letter, "error", err)
			w.console.Errorf("%s failed: %s", cmd.Description, err)
		}
	}
}

func (w *Wizard) printMenu() {
	w.console.Println()
	w.console.Line(color.FgCyan, "RKFlashTool Controller Menu:")
	for i, cmd := range rkflash.Commands {
		w.console.Printf("%d. %s\n", i+1, cmd.Description)
	}
	w.console.Println("X. Exit to main menu")
}

func (w *Wizard) runMenuCommand(ctx context.Context, cmd rkflash.Command) error {
	if !cmd.TakesFile {
		return w.tool.Run(ctx, cmd.Letter)
	}
	path, err := w.prompter.Ask(ctx, "Enter the file path for "+cmd.Description+": ", "")
	if err != nil {
		return err
	}
	return w.tool.Run(ctx, cmd.Letter, path)
}

// menuChoice maps a 1-based menu number to its command. Only plain digits
// are accepted, so "+3" or "-1" redisplay the menu.
func menuChoice(choice string) (rkflash.Command, bool) {
	if choice == "" || strings.ContainsFunc(choice, func(r rune) bool { return r < '0' || r > '9' }) {
		return rkflash.Command{}, false
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(rkflash.Commands) {
		return rkflash.Command{}, false
	}
	return rkflash.Commands[n-1], true
}
