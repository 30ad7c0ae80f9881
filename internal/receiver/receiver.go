/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package receiver implements the RX half of the client (§4.5):
// a loop that reads frames off the server connection, applies their
// effect to the Shared Control Block, and feeds DISPLAY bytes through
// the pager. The original ucrpsh client's two processes, "rx" and
// "tx", become two goroutines sharing one *control.Block instead of a
// fork()'d child sharing mmap'd memory; rx.c's rx_proc_msg is this
// package's processOne.
package receiver

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"rcpsh/internal/control"
	"rcpsh/internal/metrics"
	"rcpsh/internal/pager"
	"rcpsh/internal/rcp"
	"rcpsh/internal/rcplog"
	"rcpsh/internal/termdisc"
)

// Receiver owns the read side of the server connection.
type Receiver struct {
	conn  *rcp.Conn
	block *control.Block
	disc  *termdisc.Discipline
	out   io.Writer
	pager *pager.Pager
	stats *metrics.Collector

	inPagerSession bool
	lastLogCfg     control.LogConfig
}

// New constructs a Receiver. onInterrupt is invoked when the pager's 'q'
// key fires a locally-synthesized interrupt (rx_getppid()+SIGINT in the
// original; rcpsh passes control.Block.RequestInterrupt, which latches a
// request that the transmitter turns into an INTERRUPT frame).
func New(conn *rcp.Conn, block *control.Block, disc *termdisc.Discipline, out io.Writer, in io.Reader, stats *metrics.Collector, onInterrupt func()) *Receiver {
	r := &Receiver{
		conn:  conn,
		block: block,
		disc:  disc,
		out:   out,
		stats: stats,
	}
	r.pager = pager.New(disc, out, in, onInterrupt)
	return r
}

// Run reads and processes frames until the connection closes or the SCB
// exit flag is set, mirroring rx_loop's select-on-server-fd loop (here
// a blocking Recv suffices; Go's net.Conn has no equivalent of the
// original's need to multiplex against a parent-liveness check).
func (r *Receiver) Run() error {
	for {
		if r.block.Exit() {
			return nil
		}

		msg, err := r.conn.Recv()
		if err != nil {
			if errors.Is(err, rcp.ErrConnectionClosed) {
				rcplog.Noticef("receiver: remote connection closed")
				r.block.SetExit()
				return nil
			}
			r.block.SetExit()
			return fmt.Errorf("receiver: recv: %w", err)
		}

		if err := r.processOne(msg); err != nil {
			r.block.SetExit()
			return err
		}

		// let the transmitter know a new message has arrived
		r.block.Notify()
	}
}

// processOne applies one frame's effect to the SCB, grounded on
// rx_proc_msg.
func (r *Receiver) processOne(msg *rcp.Message) error {
	r.stats.ObserveFrame(msg.Type.String())

	// the server is obviously no longer busy once it's sent us anything
	r.block.SetBusy(false)

	cfg := r.block.LogConfig()
	if cfg != r.lastLogCfg {
		rcplog.UseSyslog(cfg.UseSyslog)
		rcplog.SetPriority(rcplog.Priority(cfg.LogPrio))
		r.lastLogCfg = cfg
	}

	usepager := r.block.UsePager()
	if msg.Type == rcp.Display && !r.inPagerSession {
		if usepager {
			if err := r.disc.SaveRX(); err != nil {
				return err
			}
			if err := r.pager.Reset(); err != nil {
				return fmt.Errorf("receiver: pager reset: %w", err)
			}
			r.inPagerSession = true
		}
	} else if msg.Type != rcp.Display && r.inPagerSession {
		if err := r.disc.RestoreRX(); err != nil {
			return err
		}
		r.inPagerSession = false
	}

	switch msg.Type {
	case rcp.Display:
		r.block.IncrDisplay()
		r.stats.AddDisplayBytes(len(msg.Payload))
		if r.inPagerSession {
			if _, err := r.pager.Write(msg.Payload); err != nil {
				return fmt.Errorf("receiver: pager write: %w", err)
			}
		} else {
			if _, err := r.out.Write(msg.Payload); err != nil {
				return fmt.Errorf("receiver: display write: %w", err)
			}
		}

	case rcp.Ask:
		r.block.SetAsk(msg)

	case rcp.Busy:
		r.block.SetBusy(true)

	case rcp.Completed:
		r.block.SetCompleted(rcp.StripTrailingSeparator(msg.Payload))

	case rcp.Exec:
		r.block.SetExec(rcp.StripTrailingSeparator(msg.Payload))

	case rcp.Prompt:
		r.block.SetPrompt(rcp.StripTrailingSeparator(msg.Payload))

	case rcp.Helped:
		r.block.SetHelped(true)

	case rcp.Swinsz:
		cursor := msg.Payload
		ws, err := parseSwinsz(&cursor)
		if err != nil {
			rcplog.Debugf("receiver: swinsz: %v", err)
			break
		}
		if err := r.disc.SetWindowSize(ws); err != nil {
			rcplog.Debugf("receiver: swinsz: %v", err)
		}

	default:
		rcplog.Infof("receiver: unknown message type=%d", msg.Type)
	}

	return nil
}

func parseSwinsz(cursor *[]byte) (termdisc.WindowSize, error) {
	rows, err := nextUint16(cursor)
	if err != nil {
		return termdisc.WindowSize{}, err
	}
	cols, err := nextUint16(cursor)
	if err != nil {
		return termdisc.WindowSize{}, err
	}
	xpixel, err := nextUint16(cursor)
	if err != nil {
		return termdisc.WindowSize{}, err
	}
	ypixel, err := nextUint16(cursor)
	if err != nil {
		return termdisc.WindowSize{}, err
	}
	return termdisc.WindowSize{Rows: rows, Cols: cols, Xpixel: xpixel, Ypixel: ypixel}, nil
}

func nextUint16(cursor *[]byte) (uint16, error) {
	field, err := rcp.GetLine(cursor)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(field, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("receiver: swinsz field %q: %w", field, err)
	}
	return uint16(v), nil
}
