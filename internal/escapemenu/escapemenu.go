/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package escapemenu implements the Ctrl-B escape menu: terminate the
// connection, toggle debug logging, or abandon the session for a local
// login shell. Grounded on emenu.c; callable only from the TX side, per
// the original's own comment ("can only be called by the tx thread").
package escapemenu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"syscall"

	"rcpsh/internal/control"
	"rcpsh/internal/rcplog"
	"rcpsh/internal/termdisc"
)

const menuText = "\n" +
	"Supported escape menu options:\n" +
	".  - terminate connection\n" +
	"d  - turn on/off debug output\n" +
	"l  - exec local login\n" +
	"\n? "

// LoginPath is the program execed for the 'l' option. Overridable for
// tests; defaults to the original's LOGINPATH.
var LoginPath = "/usr/bin/login"

// Menu renders the escape menu on out, reads one keystroke from in, and
// acts on it.
type Menu struct {
	block *control.Block
	disc  *termdisc.Discipline
	out   io.Writer
	in    *bufio.Reader
}

// New constructs a Menu.
func New(block *control.Block, disc *termdisc.Discipline, out io.Writer, in io.Reader) *Menu {
	return &Menu{block: block, disc: disc, out: out, in: bufio.NewReader(in)}
}

// Run displays the menu and handles exactly one selection. Errors
// reading the keystroke are silently ignored, matching the
// original's "if (ret == sizeof(ch))" guard, which silently does
// nothing on a short/failed read.
func (m *Menu) Run() {
	fmt.Fprint(m.out, menuText)

	ch, err := m.in.ReadByte()
	if err != nil {
		return
	}
	fmt.Fprintln(m.out)

	switch ch {
	case '.':
		_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)

	case 'd':
		m.toggleDebug()

	case 'l':
		m.execLogin()
	}

	fmt.Fprintf(m.out, "%c", ch)
}

// toggleDebug flips between LOG_DEBUG-to-stderr and the default
// syslog-at-notice configuration, mirroring emenu.c's "turn on/off
// debug output" branch. The original probes its own current priority
// by calling ucrp_setlogprio(LOG_DEBUG) and checking the previous
// value it returns; here the SCB's mirrored LogConfig already tells us
// the current priority directly.
func (m *Menu) toggleDebug() {
	cfg := m.block.LogConfig()
	if cfg.LogPrio == uint32(rcplog.PriorityDebug) {
		cfg = control.LogConfig{UseSyslog: true, LogPrio: uint32(rcplog.PriorityWarning)}
	} else {
		cfg = control.LogConfig{UseSyslog: false, LogPrio: uint32(rcplog.PriorityDebug)}
	}
	m.block.SetLogConfig(cfg)
	rcplog.UseSyslog(cfg.UseSyslog)
	rcplog.SetPriority(rcplog.Priority(cfg.LogPrio))
}

// execLogin tells RX to exit quietly, resets the terminal to its
// baseline state, and execs a local login, abandoning the RCP session
// entirely. Mirrors emenu.c's 'l' case; unlike the original's single
// address space, here "tell the rx thread to exit quietly" means
// setting the shared exit flag that Receiver.Run polls.
func (m *Menu) execLogin() {
	m.block.SetExit()
	if err := m.disc.Reset(); err != nil {
		rcplog.Warnf("escapemenu: reset: %v", err)
	}

	argv := []string{"login"}
	if err := syscall.Exec(LoginPath, argv, os.Environ()); err != nil {
		rcplog.Critf("escapemenu: exec %s: %v", LoginPath, err)
	}
}
