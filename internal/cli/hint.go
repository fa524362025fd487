package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// promptHint asks for the group context hint on an interactive terminal.
// An empty line skips the last phase.
type promptHint struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptHint(in io.Reader, out io.Writer) *promptHint {
	return &promptHint{in: bufio.NewReader(in), out: out}
}

func (h *promptHint) ContextHint(ctx context.Context) string {
	if ctx.Err() != nil {
		return ""
	}
	fmt.Fprintln(h.out, "\nEnter context hints for this photo group")
	fmt.Fprintln(h.out, "(e.g., 'Vacation in Barcelona, summer 2024, Gaudi architecture')")
	fmt.Fprint(h.out, "Or press ENTER to skip: ")

	line, err := h.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
