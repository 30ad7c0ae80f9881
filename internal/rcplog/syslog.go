//go:build !windows

/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

package rcplog

import (
	"log/syslog"

	log "github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

func newSyslogHook() (log.Hook, error) {
	return lsyslog.NewSyslogHook("", "", syslog.LOG_NOTICE, "rcpsh")
}
