package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// termPrompt asks yes/no questions on a terminal. With assumeYes every
// question is answered yes; when input is not interactive every question
// is answered no.
type termPrompt struct {
	in          *bufio.Reader
	out         io.Writer
	assumeYes   bool
	interactive bool
}

func newTermPrompt(in io.Reader, out io.Writer, assumeYes bool) *termPrompt {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &termPrompt{in: bufio.NewReader(in), out: out, assumeYes: assumeYes, interactive: interactive}
}

func (p *termPrompt) YesNo(title, message string, onYes, onNo func()) {
	if p.ask(title, message) {
		if onYes != nil {
			onYes()
		}
		return
	}
	if onNo != nil {
		onNo()
	}
}

func (p *termPrompt) ask(title, message string) bool {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s (y: %s) [y/N] y (--yes)\n", title, message)
		return true
	}
	if !p.interactive {
		fmt.Fprintf(p.out, "%s (y: %s) [y/N] n (no terminal, pass --yes)\n", title, message)
		return false
	}
	fmt.Fprintf(p.out, "%s (y: %s) [y/N] ", title, message)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (p *termPrompt) Message(title string, lines ...string) {
	fmt.Fprintf(p.out, "%s: %s\n", title, strings.Join(lines, " "))
}
