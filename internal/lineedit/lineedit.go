/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package lineedit is the client's line editor shim: readline-style
// input with history, TAB-triggered command completion, '?'-triggered
// inline help, and Ctrl-B's escape menu. Grounded on edit.c/rl.c (the
// libedit/readline bindings cle_setup/cle_getln wired to
// cle_edit_complete/cle_edit_help/cle_edit_emenu), reimplemented over
// github.com/chzyer/readline since no pack example wires a terminal
// line editor and this is the natural Go equivalent of el_init/el_gets.
package lineedit

import (
	"fmt"
	"io"
	"time"

	"github.com/chzyer/readline"

	"rcpsh/internal/control"
	"rcpsh/internal/escapemenu"
	"rcpsh/internal/metrics"
	"rcpsh/internal/rcp"
	"rcpsh/internal/rcplog"
	"rcpsh/internal/termdisc"
)

const (
	keyHelp  = '?'
	keyEmenu = 0x02 // Ctrl-B
)

// Editor is the line editor shim TX drives to collect one command line
// at a time.
type Editor struct {
	rl    *readline.Instance
	conn  *rcp.Conn
	block *control.Block
	disc  *termdisc.Discipline
	stats *metrics.Collector
	emenu *escapemenu.Menu
}

// New constructs and configures the editor, equivalent to cle_setup:
// emacs-style bindings, a 100-entry history (matching H_SETSIZE, 100),
// and TAB/?/^B bound to complete/help/emenu.
func New(conn *rcp.Conn, block *control.Block, disc *termdisc.Discipline, stats *metrics.Collector, stdin io.ReadCloser, stdout io.Writer) (*Editor, error) {
	e := &Editor{conn: conn, block: block, disc: disc, stats: stats}

	cfg := &readline.Config{
		Prompt:          "(?) ",
		Stdin:           stdin,
		Stdout:          stdout,
		HistoryLimit:    100,
		AutoComplete:    completer{e},
		Listener:        listener{e},
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("lineedit: setup: %w", err)
	}
	e.rl = rl
	e.emenu = escapemenu.New(block, disc, rl.Stdout(), rl.Stdin())
	return e, nil
}

// Close releases the underlying terminal resources.
func (e *Editor) Close() error {
	return e.rl.Close()
}

// GetLine sets the prompt and reads one line, equivalent to cle_getln.
// An empty line (just ENTER with nothing typed) is retried in the
// original via its "cle_cnt == 0" continue; readline.Readline already
// never returns a bare newline as a non-nil empty string unless the
// user genuinely entered nothing, so an empty result is returned as-is
// rather than looped on — the server, not the client, decides whether
// an empty command is meaningful.
func (e *Editor) GetLine(prompt string) (string, error) {
	if prompt == "" {
		prompt = "(?) "
	}
	e.rl.SetPrompt(prompt)
	line, err := e.rl.Readline()
	if err != nil {
		return "", err
	}
	return line, nil
}

// completer implements readline.AutoCompleter by round-tripping a
// COMPLETE/COMPLETED exchange with the server, grounded on
// cle_edit_complete.
type completer struct{ e *Editor }

func (c completer) Do(line []rune, pos int) ([][]rune, int) {
	partial := string(line[:pos])

	if err := c.e.disc.SaveTX(); err != nil {
		rcplog.Warnf("lineedit: complete: %v", err)
		return nil, 0
	}
	defer c.e.disc.RestoreTX()

	if err := c.e.conn.Send(rcp.NewComplete(partial)); err != nil {
		rcplog.Warnf("lineedit: complete: send: %v", err)
		return nil, 0
	}

	completed, ok := c.e.waitForCompleted()
	if !ok {
		return nil, 0
	}
	c.e.stats.ObserveFrame("complete-roundtrip")

	result := string(completed)
	if len(result) < len(partial) {
		// shouldn't happen; the server is expected to echo back at
		// least the prefix it was given.
		return nil, 0
	}
	return [][]rune{[]rune(result)}, pos
}

// listener implements readline.Listener, intercepting '?' (inline
// help, cle_edit_help) and Ctrl-B (escape menu, cle_edit_emenu) before
// they reach the line buffer.
type listener struct{ e *Editor }

func (l listener) OnChange(line []rune, pos int, key rune) ([]rune, int, bool) {
	switch key {
	case keyHelp:
		l.e.runHelp(string(line[:pos]))
		return line, pos, false
	case keyEmenu:
		l.e.runEmenu()
		return line, pos, false
	}
	return nil, 0, false
}

// runHelp sends a HELP frame for the line typed so far and waits for
// HELPED, enabling the pager for the duration (cle_edit_help sets
// ctl->usepager = 1 before waiting, and clears it again after).
func (e *Editor) runHelp(partial string) {
	fmt.Fprintln(e.rl.Stdout())

	if err := e.conn.Send(rcp.NewHelp(partial)); err != nil {
		rcplog.Warnf("lineedit: help: send: %v", err)
		return
	}

	if err := e.disc.SaveTX(); err != nil {
		rcplog.Warnf("lineedit: help: %v", err)
		return
	}

	e.block.SetUsePager(true)
	e.waitForHelped()
	e.block.SetUsePager(false)

	_ = e.disc.RestoreTX()
}

// runEmenu saves terminal state, runs the escape menu to completion,
// and restores, mirroring cle_edit_emenu's termios_tx_save/emenu_main/
// termios_tx_restore bracket.
func (e *Editor) runEmenu() {
	fmt.Fprintln(e.rl.Stdout())
	if err := e.disc.SaveTX(); err != nil {
		rcplog.Warnf("lineedit: emenu: %v", err)
		return
	}
	e.emenu.Run()
	_ = e.disc.RestoreTX()
	fmt.Fprintln(e.rl.Stdout())
}

// waitForCompleted blocks until the SCB's completed flag is set (or
// exit fires), polling on the Notify channel rather than the original's
// sleep(1) spin. Returns false on exit.
func (e *Editor) waitForCompleted() ([]byte, bool) {
	for {
		if payload, ok := e.block.TakeCompleted(); ok {
			return payload, true
		}
		if e.block.Exit() {
			return nil, false
		}
		select {
		case <-e.block.WaitForMessage():
		case <-time.After(time.Second):
		}
	}
}

// waitForHelped blocks until the SCB's helped flag is set, mirroring
// cle_edit_help's wait loop.
func (e *Editor) waitForHelped() {
	for {
		if e.block.TakeHelped() {
			return
		}
		if e.block.Exit() {
			return
		}
		select {
		case <-e.block.WaitForMessage():
		case <-time.After(time.Second):
		}
	}
}
