package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

// TerminalPrompter reads the secret from the controlling terminal without echo
type TerminalPrompter struct {
	Out io.Writer
	Fd  int
}

// NewTerminalPrompter creates a prompter bound to stdin/stderr
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{Out: os.Stderr, Fd: int(os.Stdin.Fd())}
}

// AskSecret prints the prompt and reads one line. EOF or a read error counts as cancelled.
func (p *TerminalPrompter) AskSecret(ctx context.Context, prompt string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}

	fmt.Fprint(p.Out, prompt+" ")
	pw, err := readPassword(p.Fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(pw), "\r\n"), true
}

// StaticPrompter answers every prompt with a fixed value; a nil value means cancelled
type StaticPrompter struct {
	Secret *string
}

// NewStaticPrompter creates a prompter that always answers secret
func NewStaticPrompter(secret string) StaticPrompter {
	return StaticPrompter{Secret: &secret}
}

// AskSecret returns the fixed answer
func (p StaticPrompter) AskSecret(ctx context.Context, _ string) (string, bool) {
	if p.Secret == nil {
		return "", false
	}
	return *p.Secret, true
}
