/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Command rcp-demoserver is a minimal peer implementing enough of the
// RCP server-side contract to drive end-to-end scenarios E1-E6: a
// greeting, a command table with completion, a password ASK, a paged
// listing, and a local EXEC. Its accept loop is grounded on
// sshproxy.RunProxy's listener.Accept()+go-handle-connection shape.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"net"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"rcpsh/internal/democmd"
	"rcpsh/internal/iopipe"
	"rcpsh/internal/rcp"
)

func main() {
	addr := flag.String("listen", ":ucrp", "address to listen on")
	cmdfile := flag.String("commands", "", "path to the .ini command table (required)")
	verbose := flag.Bool("v", false, "enable debug logging")
	fakeDelay := flag.Duration("fakedelay", 0, "artificially delay every write to the client by this duration, to exercise busy/pager pacing over a simulated slow link")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *cmdfile == "" {
		log.Fatal("rcp-demoserver: -commands is required")
	}

	table, err := democmd.Load(*cmdfile)
	if err != nil {
		log.Fatalf("rcp-demoserver: %v", err)
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("rcp-demoserver: listen %s: %v", *addr, err)
	}
	log.Infof("rcp-demoserver: listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Warnf("rcp-demoserver: accept: %v", err)
			continue
		}
		go handleSession(rcp.NewConn(wrapConn(conn, *fakeDelay)), table)
	}
}

// wrapConn routes conn through a Switch so it can be promoted to an
// artificially delayed link without changing anything downstream of
// rcp.NewConn.
func wrapConn(conn net.Conn, fakeDelay time.Duration) net.Conn {
	if fakeDelay <= 0 {
		return conn
	}
	sw := iopipe.MakeSwitch(conn)
	sw.Enable(iopipe.RingDelay(conn, fakeDelay, 32))
	log.Debugf("rcp-demoserver: %s fakedelay=%v switch.enabled=%v", conn.RemoteAddr(), fakeDelay, sw.Enabled())
	return iopipe.NewDelayedConn(conn, sw)
}

func handleSession(conn *rcp.Conn, table *democmd.Table) {
	defer conn.Close()
	log.Debugf("rcp-demoserver: session from %s", conn.RemoteAddr())

	if err := conn.Send(rcp.NewDisplay([]byte("\r\n\r\nUser Access Verification\r\n\r\n"))); err != nil {
		return
	}
	if err := conn.Send(rcp.NewBusy()); err != nil {
		return
	}
	if err := conn.Send(rcp.NewAsk(rcp.AskNoEcho, "Password: ", "")); err != nil {
		return
	}

	authed := false
	for !authed {
		msg, err := conn.Recv()
		if err != nil {
			return
		}
		if msg.Type == rcp.Tell {
			authed = true
		}
	}

	if err := conn.Send(rcp.NewPrompt("cli> ")); err != nil {
		return
	}

	for {
		msg, err := conn.Recv()
		if err != nil {
			return
		}

		switch msg.Type {
		case rcp.Command:
			if !handleCommand(conn, table, msg.Payload) {
				return
			}

		case rcp.Complete:
			partial := strings.TrimRight(string(msg.Payload), "\r\n")
			matches := table.Complete(partial)
			completion := partial
			if len(matches) > 0 {
				completion = matches[0]
			}
			if err := conn.Send(rcp.NewCompleted(completion)); err != nil {
				return
			}

		case rcp.Help:
			partial := strings.TrimRight(string(msg.Payload), "\r\n")
			var buf bytes.Buffer
			fmt.Fprintf(&buf, "\r\nAvailable commands:\r\n")
			for _, name := range table.Names() {
				if partial == "" || strings.HasPrefix(name, partial) {
					if cmd, ok := table.Lookup(name); ok {
						fmt.Fprintf(&buf, "  %-12s %s\r\n", name, cmd.Help)
					}
				}
			}
			if err := conn.Send(rcp.NewDisplay(buf.Bytes())); err != nil {
				return
			}
			if err := conn.Send(rcp.NewHelped()); err != nil {
				return
			}

		case rcp.Interrupt:
			log.Debugf("rcp-demoserver: interrupt received")

		case rcp.Suspend:
			log.Debugf("rcp-demoserver: suspend received")

		case rcp.Wait:
			log.Debugf("rcp-demoserver: local exec completed, options=%x", msg.Options)

		default:
			log.Infof("rcp-demoserver: unhandled message type=%s", msg.Type)
		}
	}
}

func handleCommand(conn *rcp.Conn, table *democmd.Table, payload []byte) bool {
	line := strings.TrimRight(string(payload), "\r\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return conn.Send(rcp.NewPrompt("cli> ")) == nil
	}
	name := fields[0]

	if name == "exec" && len(fields) > 1 {
		if err := conn.Send(rcp.NewExec(strings.Join(fields[1:], " "))); err != nil {
			return false
		}
		return conn.Send(rcp.NewPrompt("cli> ")) == nil
	}

	cmd, ok := table.Lookup(name)
	if !ok {
		if err := conn.Send(rcp.NewDisplay([]byte("% unknown command\r\n"))); err != nil {
			return false
		}
		return conn.Send(rcp.NewPrompt("cli> ")) == nil
	}

	if err := conn.Send(rcp.NewBusy()); err != nil {
		return false
	}

	scanner := bufio.NewScanner(strings.NewReader(cmd.Display))
	var display bytes.Buffer
	for scanner.Scan() {
		display.WriteString(scanner.Text())
		display.WriteString("\r\n")
	}
	if err := conn.Send(rcp.NewDisplay(display.Bytes())); err != nil {
		return false
	}

	return conn.Send(rcp.NewPrompt("cli> ")) == nil
}
