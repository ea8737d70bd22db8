package wizard

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const clearScreen = "\033[H\033[2J"

// Console writes colored text for the interactive flow. With color disabled
// it writes plain text and never emits terminal control sequences.
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole creates a console on out
func NewConsole(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

// Clear clears the terminal
func (c *Console) Clear() {
	if c.color {
		fmt.Fprint(c.out, clearScreen)
	}
}

// Println writes an uncolored line
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Printf writes uncolored formatted text
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Line writes a line in the given foreground color
func (c *Console) Line(fg color.Attribute, s string) {
	c.paint(fg).Fprintln(c.out, s)
}

// Errorf reports a problem to the user in red
func (c *Console) Errorf(format string, a ...any) {
	c.paint(color.FgRed).Fprintf(c.out, format+"\n", a...)
}

// Sprint renders s in the given foreground color
func (c *Console) Sprint(fg color.Attribute, s string) string {
	return c.paint(fg).Sprint(s)
}

func (c *Console) paint(fg color.Attribute) *color.Color {
	col := color.New(fg)
	if c.color {
		col.EnableColor()
	} else {
		col.DisableColor()
	}
	return col
}
