/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package transmitter implements the TX half of the client (§4.6):
// the loop that watches the Shared Control Block for busy/ask/exec/
// prompt states and reacts to each, plus local SIGINT/SIGTSTP handling.
// Grounded on tx.c's tx_loop and its tx_busy/tx_ask/tx_exec/tx_getln
// helpers.
package transmitter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rcpsh/internal/control"
	"rcpsh/internal/lineedit"
	"rcpsh/internal/localexec"
	"rcpsh/internal/metrics"
	"rcpsh/internal/rcp"
	"rcpsh/internal/rcplog"
	"rcpsh/internal/termdisc"
)

// busyFrames cycles "\b/", "\b-", "\b\", "\b|" at 100ms per frame,
// matching termios_busy's graphic[] array and its 100ms nanosleep.
var busyFrames = []string{"\b/", "\b-", "\b\\", "\b|"}

// Transmitter owns the write side of the server connection and all
// local-terminal interaction: the command prompt, ASK prompts, the busy
// spinner, and local EXEC.
type Transmitter struct {
	conn   *rcp.Conn
	block  *control.Block
	disc   *termdisc.Discipline
	editor *lineedit.Editor
	out    io.Writer
	in     io.Reader
	stats  *metrics.Collector

	loginShell bool

	interrupt chan struct{}
	suspend   chan struct{}
}

// New constructs a Transmitter. loginShell enables SIGTSTP handling,
// mirroring tx_main's "if (login_shell) signal(SIGTSTP, tx_sighdlr)".
func New(conn *rcp.Conn, block *control.Block, disc *termdisc.Discipline, editor *lineedit.Editor, out io.Writer, in io.Reader, stats *metrics.Collector, loginShell bool) *Transmitter {
	return &Transmitter{
		conn:       conn,
		block:      block,
		disc:       disc,
		editor:     editor,
		out:        out,
		in:         in,
		stats:      stats,
		loginShell: loginShell,
		interrupt:  make(chan struct{}, 1),
		suspend:    make(chan struct{}, 1),
	}
}

// Run installs signal handlers and loops until the SCB's exit flag is
// set, mirroring tx_loop's priority order: interrupt, then suspend,
// then busy, then ask, then exec, then prompt, then exit, then sleep.
func (t *Transmitter) Run() error {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT)
	if t.loginShell {
		signal.Notify(sigCh, syscall.SIGTSTP)
	}
	defer signal.Stop(sigCh)

	go t.signalPump(sigCh)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-t.interrupt:
			if err := t.sendInterrupt(); err != nil {
				return err
			}
			continue
		case <-t.suspend:
			if err := t.sendSuspend(); err != nil {
				return err
			}
			continue
		case <-t.block.InterruptRequested():
			// RX (the pager's 'q' key) asked for an INTERRUPT; only TX
			// may write the socket, so it sends it here rather than RX
			// sending it directly.
			if err := t.sendInterrupt(); err != nil {
				return err
			}
			continue
		default:
		}

		switch {
		case t.block.Busy():
			t.runBusy()
			continue
		case t.block.HasAsk():
			if err := t.runAsk(); err != nil {
				return err
			}
			continue
		case t.block.HasExec():
			if err := t.runExec(); err != nil {
				return err
			}
			continue
		case t.block.Prompt():
			if err := t.runGetln(); err != nil {
				return err
			}
			continue
		case t.block.Exit():
			return nil
		}

		select {
		case <-ticker.C:
		case <-t.block.WaitForMessage():
		}
	}
}

// signalPump turns os/signal notifications into the interrupt/suspend
// channels tx_sighdlr's SIGINT/SIGTSTP cases set flags for.
func (t *Transmitter) signalPump(sigCh <-chan os.Signal) {
	for sig := range sigCh {
		switch sig {
		case syscall.SIGINT:
			select {
			case t.interrupt <- struct{}{}:
			default:
			}
		case syscall.SIGTSTP:
			select {
			case t.suspend <- struct{}{}:
			default:
			}
		}
	}
}

func (t *Transmitter) sendInterrupt() error {
	t.stats.IncInterrupts()
	if err := t.conn.Send(rcp.NewInterrupt()); err != nil {
		return fmt.Errorf("transmitter: interrupt: %w", err)
	}
	return nil
}

func (t *Transmitter) sendSuspend() error {
	if err := t.conn.Send(rcp.NewSuspend()); err != nil {
		return fmt.Errorf("transmitter: suspend: %w", err)
	}
	return nil
}

// runBusy displays the spinner until the busy flag clears, grounded on
// termios_busy.
func (t *Transmitter) runBusy() {
	if err := t.disc.SaveTX(); err != nil {
		rcplog.Warnf("transmitter: busy: %v", err)
		return
	}
	defer t.disc.RestoreTX()

	pos := 0
	for t.block.Busy() {
		fmt.Fprint(t.out, busyFrames[pos])
		pos = (pos + 1) % len(busyFrames)
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Fprint(t.out, "\b")
}

// runAsk answers a captured ASK frame, grounded on tx_ask.
func (t *Transmitter) runAsk() error {
	am, ok := t.block.TakeAsk()
	if !ok {
		return nil
	}

	cursor := am.Payload
	prompt, _ := rcp.GetLine(&cursor)
	def, _ := rcp.GetLine(&cursor)

	if prompt != "" {
		fmt.Fprint(t.out, prompt)
	}

	answer, err := t.readAskAnswer(am.Options)
	if err != nil {
		return fmt.Errorf("transmitter: ask: %w", err)
	}

	if answer == "" {
		answer = def
	}

	t.stats.IncAsksAnswered()
	if err := t.conn.Send(rcp.NewTell(answer)); err != nil {
		return fmt.Errorf("transmitter: ask: send: %w", err)
	}
	return nil
}

// readAskAnswer reads a line of local input under the echo/buffering
// discipline the ASK options request, grounded on termios_getln. A
// single ASK_CHAR read is limited to one character, matching the
// original's bufsize of 1. Echo is only suppressed for NOECHO or
// FEEDBACK; a plain (NONE) ASK echoes the typed characters back
// normally, matching termios_getln's ECHO-clearing branch being
// conditional on ASK_NOECHO || ASK_FEEDBACK.
func (t *Transmitter) readAskAnswer(options uint16) (string, error) {
	if err := t.disc.SaveTX(); err != nil {
		return "", err
	}
	defer t.disc.RestoreTX()

	if options&(rcp.AskNoEcho|rcp.AskFeedback) != 0 {
		if err := t.disc.EchoOff(); err != nil {
			return "", err
		}
	}

	return readAnswerLine(t.in, t.out, options)
}

// readAnswerLine is the byte-at-a-time echo/buffering loop itself,
// factored out of readAskAnswer so it can be tested without a real
// terminal backing t.disc. Grounded on termios_getln.
func readAnswerLine(in io.Reader, out io.Writer, options uint16) (string, error) {
	feedback := options&rcp.AskFeedback != 0
	noecho := options&rcp.AskNoEcho != 0
	charOnly := options&rcp.AskChar != 0
	plainEcho := !noecho && !feedback

	buf := make([]byte, 0, 64)
	reader := make([]byte, 1)
	for {
		n, err := in.Read(reader)
		if n == 0 {
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return "", err
			}
			continue
		}

		ch := reader[0]
		if ch == 0x08 || ch == 0x7f { // backspace/del
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				if feedback || plainEcho {
					fmt.Fprint(out, "\b \b")
				}
			}
			continue
		}
		if ch == '\n' || ch == '\r' {
			break
		}
		if feedback {
			fmt.Fprint(out, "*")
		} else if plainEcho && ch >= 0x20 && ch < 0x7f {
			fmt.Fprint(out, string(ch))
		}
		if ch >= 0x20 && ch < 0x7f {
			buf = append(buf, ch)
		}
		if charOnly {
			break
		}
	}

	if noecho || feedback || (charOnly && len(buf) > 0) {
		fmt.Fprintln(out)
	}
	return string(buf), nil
}

// runExec runs a captured EXEC command locally and reports the outcome,
// grounded on tx_exec.
func (t *Transmitter) runExec() error {
	cmd, ok := t.block.TakeExec()
	if !ok {
		return nil
	}

	t.stats.IncLocalExecs()
	result := localexec.Run(string(cmd))
	if err := t.conn.Send(result); err != nil {
		return fmt.Errorf("transmitter: exec: send: %w", err)
	}
	// DISPLAY messages will appear now, but the pager is still off; it
	// is turned back on after the next PROMPT, same as the original's
	// comment in tx_exec.
	return nil
}

// runGetln collects one command line from the user and sends it,
// grounded on tx_getln.
func (t *Transmitter) runGetln() error {
	prompt := "(?) "
	if p := t.block.TakePromptStr(); len(p) > 0 {
		prompt = string(p)
	}

	t.block.SetUsePager(false)

	line, err := t.editor.GetLine(prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			t.block.SetExit()
			return nil
		}
		return fmt.Errorf("transmitter: getln: %w", err)
	}

	t.block.SetUsePager(true)

	if err := t.conn.Send(rcp.NewCommand(line)); err != nil {
		return fmt.Errorf("transmitter: getln: send: %w", err)
	}
	return nil
}
