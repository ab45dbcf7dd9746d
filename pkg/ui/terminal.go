package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ASCIILogo is printed when a fetch run starts on a terminal
const ASCIILogo = `
    ╔══════════════════════════════════════════════════════╗
    ║ ▀█▀ █ █   █▀▀ █▀▀ ▀█▀ █▀▀ █ █                        ║
    ║  █  █ █   █▀  █▀▀  █  █   █▀█                        ║
    ║  ▀  ▀ ▀▀▀ ▀   ▀▀▀  ▀  ▀▀▀ ▀ ▀   satellite tile fetcher ║
    ╚══════════════════════════════════════════════════════╝
`

const (
	codeCyan    = "\033[36m"
	codeYellow  = "\033[33m"
	codeRed     = "\033[31m"
	codeGreen   = "\033[32m"
	codeMagenta = "\033[35m"
	codeDim     = "\033[2m"
	codeReset   = "\033[0m"
)

// Console writes colored narration for a person watching the run. Colors
// are used only when the destination is a terminal. In quiet mode only
// warnings, errors and the final summary are printed.
type Console struct {
	out   io.Writer
	color bool
	quiet bool
	mu    sync.Mutex
}

// NewConsole creates a Console writing to out
func NewConsole(out io.Writer, quiet bool) *Console {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Console{out: out, color: color, quiet: quiet}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) paint(code, text string) string {
	if !c.color {
		return text
	}
	return code + text + codeReset
}

func (c *Console) Cyan(text string) string    { return c.paint(codeCyan, text) }
func (c *Console) Yellow(text string) string  { return c.paint(codeYellow, text) }
func (c *Console) Red(text string) string     { return c.paint(codeRed, text) }
func (c *Console) Green(text string) string   { return c.paint(codeGreen, text) }
func (c *Console) Magenta(text string) string { return c.paint(codeMagenta, text) }
func (c *Console) Dim(text string) string     { return c.paint(codeDim, text) }

func (c *Console) println(always bool, line string) {
	if c.quiet && !always {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// PrintLogo prints the ASCII logo, on terminals only
func (c *Console) PrintLogo() {
	if c.quiet || !c.color {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, c.Cyan(ASCIILogo))
}

// Error prints an error line in red, with an optional cause
func (c *Console) Error(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	c.println(true, c.Red(msg))
}

// Warning prints a warning line in yellow
func (c *Console) Warning(msg string) {
	c.println(true, c.Yellow(msg))
}

// Success prints a success line in green
func (c *Console) Success(msg string) {
	c.println(false, c.Green(msg))
}

// Info prints a label and value pair
func (c *Console) Info(label, value string) {
	c.println(false, fmt.Sprintf("%s: %s", c.Cyan(label), c.Yellow(value)))
}

// Highlight prints a message in magenta
func (c *Console) Highlight(msg string) {
	c.println(false, c.Magenta(msg))
}
