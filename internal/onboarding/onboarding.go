// Package onboarding prints the startup checklist shown before a terminal chat.
package onboarding

import (
	"fmt"
	"io"
)

// Check is one line of the startup checklist.
type Check struct {
	Label string
	OK    bool
}

// PrintStartup prints the greeting and checklist for a new chat session.
func PrintStartup(w io.Writer, greeting string, checks []Check) {
	fmt.Fprintln(w, "  starting up...")
	for _, c := range checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, c.Label)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", greeting)
	fmt.Fprintln(w)
}
