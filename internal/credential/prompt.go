package credential

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Prompter asks the user for a secret.
type Prompter func(prompt string) (string, error)

// Keys resolves the API keys in precedence order: configured keys (from the
// environment), then the command-line key, then an interactive prompt. A nil
// prompt disables the interactive step.
func Keys(configured []string, flagKey string, prompt Prompter) ([]string, error) {
	if len(configured) > 0 {
		return configured, nil
	}
	if k := strings.TrimSpace(flagKey); k != "" {
		return []string{k}, nil
	}
	if prompt == nil {
		return nil, ErrNoCredentials
	}
	k, err := prompt("Enter your Rosette API key: ")
	if err != nil {
		return nil, err
	}
	if k = strings.TrimSpace(k); k == "" {
		return nil, ErrNoCredentials
	}
	return []string{k}, nil
}

// TerminalPrompt reads a secret without echo. When stdin carries the document
// rather than a terminal, the controlling terminal is used instead.
func TerminalPrompt(prompt string) (string, error) {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return readHidden(int(fd), os.Stderr, prompt)
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("credential: no terminal to prompt on: %w", ErrNoCredentials)
	}
	defer tty.Close()
	return readHidden(int(tty.Fd()), tty, prompt)
}

func readHidden(fd int, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("credential: read key: %w", err)
	}
	return string(b), nil
}
