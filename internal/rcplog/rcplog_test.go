package rcplog

import (
	"bytes"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPriorityLevelMapping(t *testing.T) {
	cases := map[Priority]log.Level{
		PriorityDebug:   log.DebugLevel,
		PriorityInfo:    log.InfoLevel,
		PriorityNotice:  log.InfoLevel,
		PriorityWarning: log.WarnLevel,
		PriorityErr:     log.ErrorLevel,
		PriorityCrit:    log.FatalLevel,
	}
	for p, want := range cases {
		assert.Equal(t, want, p.level())
	}
}

func TestSetPriorityAppliesToLogger(t *testing.T) {
	SetPriority(PriorityWarning)
	assert.Equal(t, log.WarnLevel, logger.Level)
	SetPriority(PriorityInfo)
	assert.Equal(t, log.InfoLevel, logger.Level)
}

func TestUseSyslogFalseRestoresStderr(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	UseSyslog(false)
	SetPriority(PriorityInfo)
	Infof("hello %s", "world")

	assert.Empty(t, buf.String())
}

func TestWithFieldAttachesKey(t *testing.T) {
	entry := WithField("session", "abc123")
	assert.Equal(t, "abc123", entry.Data["session"])
}

func TestLoggingHelpersDoNotPanic(t *testing.T) {
	logger.SetOutput(bytes.NewBuffer(nil))
	assert.NotPanics(t, func() {
		Debugf("d")
		Infof("i")
		Noticef("n")
		Warnf("w")
		Errf("e")
	})
}
