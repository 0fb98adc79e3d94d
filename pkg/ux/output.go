// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the socialgraph CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette - deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with its style.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return Styles.Muted.Render(string(i))
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Printer writes human-facing CLI output.
//
// In plain mode (output piped, or forced) no colors or glyphs are used
// and each line has a stable machine-readable prefix.
type Printer struct {
	out   io.Writer
	err   io.Writer
	plain bool
}

// NewPrinter creates a Printer.
func NewPrinter(out, errOut io.Writer, plain bool) *Printer {
	return &Printer{out: out, err: errOut, plain: plain}
}

// Stdio returns a Printer on stdout/stderr, plain when stdout is not a
// terminal.
func Stdio() *Printer {
	return NewPrinter(os.Stdout, os.Stderr, !IsTerminal(os.Stdout))
}

// Plain reports whether styling is disabled.
func (p *Printer) Plain() bool {
	return p.plain
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Title prints a heading. Omitted in plain mode.
func (p *Printer) Title(text string) {
	if p.plain {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a confirmation.
func (p *Printer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.plain {
		fmt.Fprintf(p.out, "OK: %s\n", msg)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(msg))
}

// Warning prints a warning to stderr.
func (p *Printer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.plain {
		fmt.Fprintf(p.err, "WARN: %s\n", msg)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(msg))
}

// Error prints an error to stderr.
func (p *Printer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.plain {
		fmt.Fprintf(p.err, "ERROR: %s\n", msg)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", IconError.Render(), Styles.Error.Render(msg))
}

// Muted prints secondary text. Omitted in plain mode.
func (p *Printer) Muted(format string, args ...any) {
	if p.plain {
		return
	}
	fmt.Fprintln(p.out, Styles.Muted.Render(fmt.Sprintf(format, args...)))
}

// List prints one item per line, or a muted placeholder when empty.
func (p *Printer) List(items []string, empty string) {
	if len(items) == 0 {
		p.Muted("%s", empty)
		return
	}
	for _, it := range items {
		if p.plain {
			fmt.Fprintln(p.out, it)
			continue
		}
		fmt.Fprintf(p.out, "  %s %s\n", IconBullet.Render(), it)
	}
}

// Table prints aligned columns. The first row is the header and is
// skipped in plain mode, where columns are tab-separated.
func (p *Printer) Table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	if p.plain {
		for _, r := range rows[1:] {
			fmt.Fprintln(p.out, strings.Join(r, "\t"))
		}
		return
	}

	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}
	for n, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cell := c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			if n == 0 {
				cell = Styles.Bold.Render(cell)
			}
			cells[i] = cell
		}
		fmt.Fprintln(p.out, "  "+strings.Join(cells, "  "))
	}
}

// Box prints content framed with a title.
func (p *Printer) Box(title, content string) {
	if p.plain {
		fmt.Fprintf(p.out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}
