/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package rcplog mirrors the original ucrp_log()/ucrp_setusesyslog()/
// ucrp_setlogprio() trio: a single package-level logger whose
// destination and priority the escape menu's 'd' key can flip at
// runtime, and whose current state the SCB exposes so RX's per-message
// poll (rx_proc_msg's "check our logging level" block) can pick up a
// change made on the TX side.
package rcplog

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Priority mirrors the BSD syslog priorities the original passed to
// ucrp_log's second argument; only the handful rcpsh actually uses are
// named, each with its syslog numeric value.
type Priority uint32

const (
	PriorityCrit    Priority = 2
	PriorityErr     Priority = 3
	PriorityWarning Priority = 4
	PriorityNotice  Priority = 5
	PriorityInfo    Priority = 6
	PriorityDebug   Priority = 7
)

func (p Priority) level() log.Level {
	switch p {
	case PriorityDebug:
		return log.DebugLevel
	case PriorityInfo:
		return log.InfoLevel
	case PriorityNotice:
		return log.InfoLevel
	case PriorityWarning:
		return log.WarnLevel
	case PriorityErr:
		return log.ErrorLevel
	case PriorityCrit:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

var logger = log.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(log.InfoLevel)
}

// UseSyslog toggles the logger between its normal stderr destination
// and syslog. Falls back to stderr (logged once, not fatally) if the
// local syslog daemon can't be reached — matching ucrp_log's "open
// failed, fall back to stderr" behavior.
func UseSyslog(enable bool) {
	if !enable {
		logger.ReplaceHooks(log.LevelHooks{})
		logger.SetOutput(os.Stderr)
		return
	}

	hook, err := newSyslogHook()
	if err != nil {
		logger.WithError(err).Warn("rcplog: syslog unavailable, staying on stderr")
		return
	}
	logger.SetOutput(io.Discard)
	logger.ReplaceHooks(log.LevelHooks{})
	logger.AddHook(hook)
}

// SetPriority sets the minimum level logged, mirroring ucrp_setlogprio.
func SetPriority(p Priority) {
	logger.SetLevel(p.level())
}

// Debugf, Infof, Noticef (mapped to Info), Warnf, Errf, and Critf mirror
// the five priorities rx_proc_msg/tx.c actually call ucrp_log with.
func Debugf(format string, args ...interface{})  { logger.Debugf(format, args...) }
func Infof(format string, args ...interface{})   { logger.Infof(format, args...) }
func Noticef(format string, args ...interface{}) { logger.Infof(format, args...) }
func Warnf(format string, args ...interface{})   { logger.Warnf(format, args...) }
func Errf(format string, args ...interface{})    { logger.Errorf(format, args...) }
func Critf(format string, args ...interface{})   { logger.Fatalf(format, args...) }

// WithField exposes a structured-field entry for callers that want to
// attach request/session context rather than format it inline.
func WithField(key string, value interface{}) *log.Entry {
	return logger.WithField(key, value)
}
