// Package console is the line-oriented terminal surface.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/moorebrett0/concierge/internal/chat"
)

const (
	prompt   = "you> "
	quitWord = "/quit"
)

// Asker resolves one user input.
type Asker interface {
	Ask(ctx context.Context, input string) (chat.Outcome, error)
}

// Run reads lines from in and asks each one until EOF, /quit or ctx ends.
// The asker is expected to surface replies itself; errors are logged and the
// loop keeps going.
func Run(ctx context.Context, in io.Reader, out io.Writer, a Asker) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == quitWord:
			return nil
		}

		if _, err := a.Ask(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Debug("console: chain ended with error", "err", err)
		}
	}
}

// Printer writes surfaced text to out, for use as chat.Options.Say.
func Printer(out io.Writer) func(string) {
	return func(text string) {
		fmt.Fprintf(out, "concierge> %s\n", text)
	}
}
