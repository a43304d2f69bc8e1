package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// lineInput reads human feedback one line at a time.
type lineInput struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineInput(in io.Reader, out io.Writer) *lineInput {
	return &lineInput{scanner: bufio.NewScanner(in), out: out}
}

// Prompt implements agent.HumanInput.
func (l *lineInput) Prompt(ctx context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(l.out, "%s\n> ", prompt)
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(l.scanner.Text()), nil
}
