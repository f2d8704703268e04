package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for values on a line-oriented terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the terminal file descriptor of in, or -1 when in is not a terminal.
	fd int
}

// NewPrompter creates a prompter reading from in and writing prompts to out.
// When in is a terminal, secrets are read without echo.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Ask prints label and returns the trimmed line the user typed.
// End of input yields an empty answer.
func (p *Prompter) Ask(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", fmt.Errorf("could not print prompt: %w", err)
	}
	text, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("could not read answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// AskSecret is Ask with echo disabled when reading from a terminal.
func (p *Prompter) AskSecret(label string) (string, error) {
	if p.fd < 0 {
		return p.Ask(label)
	}
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", fmt.Errorf("could not print prompt: %w", err)
	}
	secret, err := term.ReadPassword(p.fd)
	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	// ReadPassword swallows the newline typed by the user.
	if _, err := fmt.Fprint(p.out, "\n"); err != nil {
		return "", fmt.Errorf("could not print newline: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}
