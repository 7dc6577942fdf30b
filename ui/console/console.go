// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// Package console implements the interactive text menus of the launcher.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fewshot/launcher/pkg/support/sets"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrNotANumber is returned by Console.ReadInt when the line read is not an integer.
var ErrNotANumber = errors.New("input is not a number")

// Console reads whole lines from the user and writes prompts and messages.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	renderer *lipgloss.Renderer
	term     *termenv.Output
}

// New creates a Console reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		renderer: lipgloss.NewRenderer(out),
	}
}

// WithClearScreen enables clearing the screen before each menu. Only makes sense if out is a terminal.
func (c *Console) WithClearScreen(enabled bool) *Console {
	if enabled {
		c.term = termenv.NewOutput(c.out)
	} else {
		c.term = nil
	}
	return c
}

// Clear the screen, if enabled.
func (c *Console) Clear() {
	if c.term != nil {
		c.term.ClearScreen()
	}
}

// Printf writes to the console output.
func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// Println writes to the console output.
func (c *Console) Println(args ...any) {
	_, _ = fmt.Fprintln(c.out, args...)
}

// readLine returns the next line, without surrounding spaces.
// It returns io.EOF only if the input ended and nothing was read.
func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PickOption prompts until the user enters one of the valid integers, and returns it.
// Invalid entries are reported and the prompt repeated, there is no limit on the number of attempts.
// It only fails if the input fails (io.EOF when it ends).
func (c *Console) PickOption(valid sets.Set[int]) (int, error) {
	for {
		c.Printf("\n>>> Enter your choice (number): ")
		line, err := c.readLine()
		if err != nil {
			c.Println()
			return 0, err
		}
		choice, err := strconv.Atoi(line)
		if err != nil {
			c.Println("Invalid input, please enter a number.")
			continue
		}
		if !valid.Has(choice) {
			klog.V(1).Infof("console: choice %d not in %v", choice, sets.Sorted(valid))
			c.Println("Invalid choice, please enter one of the numbers in the list.")
			continue
		}
		return choice, nil
	}
}

// ReadInt prompts once and parses the line as an integer. It returns an error wrapping ErrNotANumber
// if the line is not an integer.
func (c *Console) ReadInt(prompt string) (int, error) {
	c.Printf("%s", prompt)
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, errors.Wrapf(ErrNotANumber, "%q", line)
	}
	return v, nil
}

// Pause waits for the user to press Enter.
func (c *Console) Pause() error {
	c.Printf("\nPress Enter to return to the menu...")
	_, err := c.readLine()
	return err
}
