package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/eringen/pubsplice"
)

var errNoChoices = errors.New("no matching entries")

// prompter reads answers from the command's input. Questions are only
// printed when the input is a terminal, so answers can be piped in.
type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{
		in:          bufio.NewReader(in),
		out:         cmd.OutOrStdout(),
		interactive: isTerminal(in),
	}
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *prompter) ask(question string) (string, error) {
	if p.interactive {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", fmt.Errorf("%s: no answer given", question)
		}
	}
	return strings.TrimSpace(line), nil
}

// choose lists entries as a numbered menu and returns the one picked.
func (p *prompter) choose(question string, entries []pubsplice.Entry) (pubsplice.Entry, error) {
	if len(entries) == 0 {
		return pubsplice.Entry{}, errNoChoices
	}
	for i, e := range entries {
		fmt.Fprintf(p.out, "%3d) %s\n", i+1, e.Name)
	}
	for {
		answer, err := p.ask(question)
		if err != nil {
			return pubsplice.Entry{}, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(entries) {
			return entries[n-1], nil
		}
		if !p.interactive {
			return pubsplice.Entry{}, fmt.Errorf("invalid choice %q", answer)
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(entries))
	}
}

// resolveEntry returns the entry named by args, or asks for one of the
// entries keep accepts.
func resolveEntry(cmd *cobra.Command, p *pubsplice.Publisher, args []string, question string, keep func(pubsplice.Entry) bool) (pubsplice.Entry, error) {
	entries, err := p.List()
	if err != nil {
		return pubsplice.Entry{}, err
	}
	if len(args) == 1 {
		for _, e := range entries {
			if e.ID == args[0] {
				return e, nil
			}
		}
		return pubsplice.Entry{}, fmt.Errorf("%s: %w", args[0], pubsplice.ErrNotFound)
	}

	var choices []pubsplice.Entry
	for _, e := range entries {
		if keep(e) {
			choices = append(choices, e)
		}
	}
	return newPrompter(cmd).choose(question, choices)
}

func isDraft(e pubsplice.Entry) bool { return !e.Published }

func isPublished(e pubsplice.Entry) bool { return e.Published }

func anyEntry(pubsplice.Entry) bool { return true }
