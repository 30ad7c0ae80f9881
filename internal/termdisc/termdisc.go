/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package termdisc owns the local tty: raw/cooked mode switching, the
// three-role snapshot discipline RX and TX use to hand the terminal back
// and forth, and window-size propagation. Grounded on the original
// termios.c (termios_save/_restore/_tx_save/_rx_save/_swinsz) and, for
// the actual ioctl/termios plumbing, on hauntty's client/attach.go
// (golang.org/x/term + golang.org/x/sys/unix).
package termdisc

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Role names the three snapshot slots the protocol hands the terminal
// between. baseline is restored on exit; txSaved/rxSaved are working
// copies each side takes before it changes raw-mode/echo state and
// restores afterward.
type Role int

const (
	Baseline Role = iota
	TXSaved
	RXSaved
)

// Discipline owns the stdin fd and the three termios snapshots. mu is
// termios_mutex: RX and TX run as separate goroutines and every method
// below that touches the fd or a snapshot slot acquires it, so the two
// sides can never read or clobber each other's snapshot concurrently.
// Each call only holds mu for the duration of its own GetState/MakeRaw/
// Restore/ioctl, never across a caller's subsequent blocking read of
// the tty (that read lives in pager/transmitter, entirely outside this
// package), so a side "takes ownership" for a Save..Restore bracket
// without the mutex itself ever blocking the other side's unrelated
// calls.
type Discipline struct {
	fd int

	mu       sync.Mutex
	baseline *term.State
	txSaved  *term.State
	rxSaved  *term.State
}

// New wraps fd (normally int(os.Stdin.Fd())). It does not touch terminal
// state until Setup is called.
func New(fd int) *Discipline {
	return &Discipline{fd: fd}
}

// Setup captures the baseline terminal state and switches into the
// line-discipline rcpsh runs under for its whole session: non-canonical,
// matching termios_setup's ICANON-off-on-all-three-streams behavior.
// golang.org/x/term has no stdin/stdout/stderr distinction (it operates
// on a single fd backing the controlling tty), so one MakeRaw call here
// covers what termios_setup did with three tcsetattr calls.
func (d *Discipline) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	baseline, err := term.GetState(d.fd)
	if err != nil {
		return fmt.Errorf("termdisc: setup: %w", err)
	}
	d.baseline = baseline

	raw, err := term.MakeRaw(d.fd)
	if err != nil {
		return fmt.Errorf("termdisc: setup: %w", err)
	}
	// MakeRaw already swapped in the raw state; rxSaved starts as a
	// copy of it so an RX-side Restore before any Save is a no-op
	// rather than a crash.
	d.rxSaved = raw
	d.txSaved = raw
	return nil
}

// Reset restores the baseline state saved by Setup. Called on exit,
// mirroring termios_reset().
func (d *Discipline) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.baseline == nil {
		return nil
	}
	if err := term.Restore(d.fd, d.baseline); err != nil {
		return fmt.Errorf("termdisc: reset: %w", err)
	}
	return nil
}

// SaveTX takes termios_mutex and snapshots the current terminal state
// into the TX slot. Called before TX changes echo/buffering for
// getline, the busy spinner, or an ASK prompt; the matching RestoreTX
// hands ownership back.
func (d *Discipline) SaveTX() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, err := term.GetState(d.fd)
	if err != nil {
		return fmt.Errorf("termdisc: tx save: %w", err)
	}
	d.txSaved = st
	return nil
}

// RestoreTX restores the TX slot saved by SaveTX, releasing the
// ownership SaveTX took.
func (d *Discipline) RestoreTX() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.txSaved == nil {
		return nil
	}
	if err := term.Restore(d.fd, d.txSaved); err != nil {
		return fmt.Errorf("termdisc: tx restore: %w", err)
	}
	return nil
}

// SaveRX takes termios_mutex and snapshots the current terminal state
// into the RX slot. Called before RX enters pager mode (which reads
// single keystrokes from the tty for --More--/q handling).
func (d *Discipline) SaveRX() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, err := term.GetState(d.fd)
	if err != nil {
		return fmt.Errorf("termdisc: rx save: %w", err)
	}
	d.rxSaved = st
	return nil
}

// RestoreRX restores the RX slot saved by SaveRX.
//
// The pager is RX-owned but intentionally restores from the TX slot,
// not its own — the original pager.c calls termios_tx_save()/
// termios_tx_restore() around its --More-- prompt rather than the RX
// equivalents, a quirk preserved here (see spec's terminal-discipline
// open question) because the TX slot is the one most recently primed
// by getline's "turn off echo" dance, which is what the pager's single-
// keystroke read needs.
func (d *Discipline) RestoreRX() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rxSaved == nil {
		return nil
	}
	if err := term.Restore(d.fd, d.rxSaved); err != nil {
		return fmt.Errorf("termdisc: rx restore: %w", err)
	}
	return nil
}

// WindowSize is the four-field geometry carried by SWINSZ and by
// TIOCGWINSZ/TIOCSWINSZ.
type WindowSize struct {
	Rows, Cols, Xpixel, Ypixel uint16
}

// GetWindowSize reads the current local window size via TIOCGWINSZ.
func (d *Discipline) GetWindowSize() (WindowSize, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ws, err := unix.IoctlGetWinsize(d.fd, unix.TIOCGWINSZ)
	if err != nil {
		return WindowSize{}, fmt.Errorf("termdisc: get winsize: %w", err)
	}
	return WindowSize{
		Rows:   ws.Row,
		Cols:   ws.Col,
		Xpixel: ws.Xpixel,
		Ypixel: ws.Ypixel,
	}, nil
}

// SetWindowSize applies ws via TIOCSWINSZ. Mirrors termios_swinsz,
// which logs and swallows the ioctl error rather than treating it as
// fatal (a client on a pseudo-tty or redirected stdout legitimately
// can't set a window size).
func (d *Discipline) SetWindowSize(ws WindowSize) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := unix.IoctlSetWinsize(d.fd, unix.TIOCSWINSZ, &unix.Winsize{
		Row:    ws.Rows,
		Col:    ws.Cols,
		Xpixel: ws.Xpixel,
		Ypixel: ws.Ypixel,
	})
	if err != nil {
		return fmt.Errorf("termdisc: set winsize: %w", err)
	}
	return nil
}

// EchoOff switches the terminal to raw mode, which disables both local
// echo and canonical buffering, for a pager keystroke or an ASK NOECHO
// or FEEDBACK read. Ground truth: termios_getln's ECHO-clearing
// branch.
func (d *Discipline) EchoOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := term.MakeRaw(d.fd)
	if err != nil {
		return fmt.Errorf("termdisc: echo off: %w", err)
	}
	_ = raw
	return nil
}
