package rkflash

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned when a letter is not an rkflashtool subcommand
var ErrUnknownCommand = errors.New("unknown rkflashtool command")

// Command describes a single-letter rkflashtool subcommand
type Command struct {
	// Letter is passed to rkflashtool as its first argument
	Letter string

	// Description is shown in the controller menu
	Description string

	// TakesFile means the subcommand expects a file path argument
	TakesFile bool
}

// Well-known subcommand letters used outside the menu
const (
	CmdFlashInfo = "n"
	CmdIDBlocks  = "i"
	CmdReadSDRAM = "m"
)

// Commands is the full subcommand table, in menu order
var Commands = []Command{
	{Letter: "b", Description: "Reboot device"},
	{Letter: "l", Description: "Load DDR init (MASK ROM MODE)", TakesFile: true},
	{Letter: "L", Description: "Load USB loader (MASK ROM MODE)", TakesFile: true},
	{Letter: "v", Description: "Read chip version"},
	{Letter: "n", Description: "Read NAND flash info"},
	{Letter: "i", Description: "Read IDBlocks"},
	{Letter: "j", Description: "Write IDBlocks", TakesFile: true},
	{Letter: "m", Description: "Read SDRAM"},
	{Letter: "M", Description: "Write SDRAM", TakesFile: true},
	{Letter: "B", Description: "Exec SDRAM"},
	{Letter: "r", Description: "Read flash partition"},
	{Letter: "w", Description: "Write flash partition", TakesFile: true},
	{Letter: "p", Description: "Fetch parameters"},
	{Letter: "P", Description: "Write parameters", TakesFile: true},
	{Letter: "e", Description: "Erase flash (fill with 0xff)"},
}

// Lookup returns the table entry for letter. Letters are case-sensitive.
func Lookup(letter string) (Command, error) {
	for _, c := range Commands {
		if c.Letter == letter {
			return c, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, letter)
}
