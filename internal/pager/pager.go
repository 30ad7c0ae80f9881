/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package pager implements the line-counting, --More---prompting pager
// RX runs DISPLAY bytes through when the SCB's usepager flag is set.
// Grounded on the original pager.c; intentionally as simple as the
// original ("very simple (read shitty) pager" per its own comment) —
// no scrollback, no search, just page-at-a-time with quit-to-discard.
package pager

import (
	"bufio"
	"fmt"
	"io"

	"rcpsh/internal/termdisc"
)

// prompt is written verbatim, matching PAGER_PROMPT.
const prompt = "--More--"

// Pager is not safe for concurrent use; RX owns it exclusively.
type Pager struct {
	disc *termdisc.Discipline
	out  io.Writer
	in   *bufio.Reader

	// onQuit is called when the user presses 'q' at a --More-- prompt.
	// The original signals its own process group with SIGINT, which
	// rx.c's handler turns into a locally-synthesized INTERRUPT frame;
	// here RX just calls this hook directly instead of round-tripping
	// through a signal.
	onQuit func()

	active bool
	rows   uint16
	cols   uint16

	charsOut uint16
	linesOut uint16

	// discarding is set once 'q' has been pressed and cleared back to
	// false only by Reset, matching the original's "session = 0, throw
	// away input until session reset" behavior.
	discarding bool
}

// New constructs a Pager bound to disc for window-size queries and
// terminal-discipline save/restore, out for display output, and in for
// reading pager keystrokes. onQuit is invoked when the user aborts a
// page with 'q'.
func New(disc *termdisc.Discipline, out io.Writer, in io.Reader, onQuit func()) *Pager {
	return &Pager{
		disc:   disc,
		out:    out,
		in:     bufio.NewReader(in),
		onQuit: onQuit,
	}
}

// Reset starts a new pager session: reads the current window size,
// corrects it by two rows/cols the way the original does ("correct for
// window size"), and zeroes the line/char counters. An unknown (zero)
// dimension defaults to 24x80, matching pager_reset.
func (p *Pager) Reset() error {
	ws, err := p.disc.GetWindowSize()
	if err != nil {
		return fmt.Errorf("pager: reset: %w", err)
	}

	rows, cols := ws.Rows, ws.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	p.active = true
	p.discarding = false
	p.charsOut = 0
	p.linesOut = 0

	if rows >= 2 {
		rows -= 2
	}
	if cols >= 2 {
		cols -= 2
	}
	p.rows = rows
	p.cols = cols

	return nil
}

// Active reports whether a pager session is in progress.
func (p *Pager) Active() bool {
	return p.active
}

// Write feeds buf through the pager one byte at a time, matching
// pager_write's byte-at-a-time line/column accounting. If no session
// is active it writes nothing and returns len(buf), nil (the original's
// "no pager session, don't display" early return, which reports success
// rather than an error).
func (p *Pager) Write(buf []byte) (int, error) {
	if !p.active {
		return len(buf), nil
	}

	for i, ch := range buf {
		if p.discarding {
			// session==0 but RX hasn't been Reset yet: swallow the
			// rest of this DISPLAY, matching the original's
			// "nbytes = i; break" once 'q' fires.
			return len(buf), nil
		}

		if _, err := p.out.Write([]byte{ch}); err != nil {
			return i, fmt.Errorf("pager: write: %w", err)
		}

		if ch == '\n' {
			p.charsOut = 0
			p.linesOut++
		} else {
			p.charsOut++
			if p.charsOut > p.cols {
				p.charsOut = 0
				p.linesOut++
				fmt.Fprint(p.out, "\n")
			}
		}

		if p.linesOut > p.rows {
			if err := p.more(); err != nil {
				return i + 1, err
			}
		}
	}

	return len(buf), nil
}

// more displays the --More-- prompt, reads one keystroke, and acts on
// it: CR/LF/j/NUL advances a line, space resets the pager for a new
// full page, q aborts the rest of this session (invoking onQuit), and
// anything else is ignored (the original's for(;;) falls through and
// loops again for any unrecognized key).
func (p *Pager) more() error {
	fmt.Fprint(p.out, prompt)

	if err := p.disc.SaveTX(); err != nil {
		return fmt.Errorf("pager: more: %w", err)
	}
	if err := p.disc.EchoOff(); err != nil {
		return fmt.Errorf("pager: more: %w", err)
	}

	for {
		ch, err := p.in.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("pager: more: read: %w", err)
		}

		switch ch {
		case '\n', '\r', 'j', 0:
			p.linesOut--
			goto done
		case 'q':
			p.active = false
			p.discarding = true
			if p.onQuit != nil {
				p.onQuit()
			}
			goto done
		case ' ':
			if err := p.Reset(); err != nil {
				return err
			}
			goto done
		default:
			continue
		}
	}
done:
	for range prompt {
		fmt.Fprint(p.out, "\b \b")
	}

	return p.disc.RestoreTX()
}
