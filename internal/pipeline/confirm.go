package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer asks the user whether to continue with a large run
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// AutoConfirm approves every prompt (--yes)
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, string) (bool, error) { return true, nil }

// TerminalConfirmer prompts on a terminal. Without a terminal it refuses,
// since nobody can answer.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
	// IsTerminal reports whether In is interactive; defaults to checking stdin
	IsTerminal func() bool
}

// NewTerminalConfirmer prompts on stdin and stdout
func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{
		In:  os.Stdin,
		Out: os.Stdout,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm prints message and waits for y/yes
func (c *TerminalConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if c.IsTerminal != nil && !c.IsTerminal() {
		return false, fmt.Errorf("%s: confirmation required but no terminal is attached (use --yes)", message)
	}

	fmt.Fprintf(c.Out, "%s [y/N]: ", message)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.In).ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
