/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Command rcpsh is the interactive RCP client: it connects to a server
// speaking the framed protocol in internal/rcp and presents its
// prompt/ask/display/pager/exec behavior as if it were a local shell.
// Grounded on ucrpsh's main.c (argument parsing, login-shell detection,
// the access-denied -c path, setsid, the RX/TX split).
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"rcpsh/internal/control"
	"rcpsh/internal/escapemenu"
	"rcpsh/internal/iopipe"
	"rcpsh/internal/lineedit"
	"rcpsh/internal/metrics"
	"rcpsh/internal/rcp"
	"rcpsh/internal/rcplog"
	"rcpsh/internal/receiver"
	"rcpsh/internal/termdisc"
	"rcpsh/internal/transmitter"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-c command-string] [-h host] [-p port]\n", progName())
	os.Exit(64) // EX_USAGE
}

func progName() string {
	return filepath.Base(os.Args[0])
}

// isLoginShell mirrors main.c's "if (*argv[0] == '-') login_shell = 1",
// the conventional Unix signal that a shell was invoked as a login
// shell via argv[0][0] == '-'.
func isLoginShell() bool {
	return len(os.Args[0]) > 1 && os.Args[0][0] == '-'
}

func main() {
	loginShell := isLoginShell()

	var commandString string
	var host, port string
	var metricsAddr string
	flag.StringVar(&commandString, "c", "", "command-string (unsupported; always denied)")
	flag.StringVar(&host, "h", "", "host to connect to")
	flag.StringVar(&port, "p", "", "port/service to connect to")
	flag.StringVar(&metricsAddr, "metrics", "", "expose Prometheus metrics on this address (optional)")
	flag.Usage = usage
	flag.Parse()

	if commandString != "" {
		// we don't support command strings; display an error.
		fmt.Fprintf(os.Stderr, "%s: access denied\n", progName())
		os.Exit(64)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "stdin is not a tty.")
		os.Exit(64)
	}

	disc := termdisc.New(int(os.Stdin.Fd()))
	if err := disc.Setup(); err != nil {
		log.Fatalf("rcpsh: terminal setup: %v", err)
	}
	defer disc.Reset()

	// we should already be session leader; this is just in case,
	// mirroring main.c's setsid() call. Best-effort: a non-leader
	// process legitimately gets EPERM here.
	if _, err := syscall.Setsid(); err != nil {
		rcplog.Debugf("rcpsh: setsid: %v", err)
	}

	stats := metrics.New(prometheus.Labels{"host": host})
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(stats)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				rcplog.Warnf("rcpsh: metrics listener: %v", err)
			}
		}()
	}

	netConn, err := rcp.Dial(host, port)
	if err != nil {
		log.Warnf("rcpsh: connect to %s: %v", resolveAddr(host, port), err)
		menu := escapemenu.New(control.New(), disc, os.Stdout, os.Stdin)
		menu.Run()
		os.Exit(69) // EX_UNAVAILABLE
	}
	conn := rcp.NewConn(netConn)
	defer conn.Close()

	block := control.New()

	editor, err := lineedit.New(conn, block, disc, stats, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("rcpsh: line editor: %v", err)
	}
	defer editor.Close()

	// DISPLAY writes and the busy spinner go through an Asynk so a slow
	// local terminal can't stall the RX goroutine reading the socket;
	// the line editor keeps writing straight to os.Stdout since it needs
	// synchronous control of the tty for cursor tracking.
	asyncOut := iopipe.MakeAsynk(os.Stdout, 16384)
	defer asyncOut.Close()

	// the socket is TX-write-only; RX's pager can't send the INTERRUPT
	// frame itself, so it just latches a request and TX sends it.
	rx := receiver.New(conn, block, disc, asyncOut, os.Stdin, stats, block.RequestInterrupt)
	tx := transmitter.New(conn, block, disc, editor, asyncOut, os.Stdin, stats, loginShell)

	rxErrCh := make(chan error, 1)
	go func() { rxErrCh <- rx.Run() }()

	txErr := tx.Run()
	block.SetExit()

	if txErr != nil {
		log.Warnf("rcpsh: transmitter exited: %v", txErr)
	}
	if rxErr := <-rxErrCh; rxErr != nil {
		log.Warnf("rcpsh: receiver exited: %v", rxErr)
	}
}

// resolveAddr is a small helper kept around for host:port formatting in
// log messages.
func resolveAddr(host, port string) string {
	if host == "" {
		host = rcp.DefaultHost
	}
	if port == "" {
		port = rcp.DefaultService
	}
	return net.JoinHostPort(host, port)
}
