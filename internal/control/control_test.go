package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcpsh/internal/rcp"
)

func TestNewDefaultsUsePagerOn(t *testing.T) {
	b := New()
	assert.True(t, b.UsePager())
	assert.False(t, b.Exit())
	assert.False(t, b.Busy())
}

func TestBusyFlag(t *testing.T) {
	b := New()
	b.SetBusy(true)
	assert.True(t, b.Busy())
	b.SetBusy(false)
	assert.False(t, b.Busy())
}

func TestAskSetHasTake(t *testing.T) {
	b := New()
	assert.False(t, b.HasAsk())

	msg := rcp.NewAsk(rcp.AskNoEcho, "Password: ", "")
	b.SetAsk(msg)
	assert.True(t, b.HasAsk())

	got, ok := b.TakeAsk()
	require.True(t, ok)
	assert.Equal(t, msg, got)

	assert.False(t, b.HasAsk())
	_, ok = b.TakeAsk()
	assert.False(t, ok)
}

func TestCompletedSetTake(t *testing.T) {
	b := New()
	b.SetCompleted([]byte("show"))
	got, ok := b.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, []byte("show"), got)

	_, ok = b.TakeCompleted()
	assert.False(t, ok)
}

func TestExecSetTakeClearsUsePager(t *testing.T) {
	b := New()
	require.True(t, b.UsePager())

	b.SetExec([]byte("date"))
	assert.True(t, b.HasExec())
	assert.False(t, b.UsePager())

	got, ok := b.TakeExec()
	require.True(t, ok)
	assert.Equal(t, []byte("date"), got)
	assert.False(t, b.HasExec())
	assert.False(t, b.UsePager())
}

func TestPromptSetTake(t *testing.T) {
	b := New()
	assert.False(t, b.Prompt())
	b.SetPrompt([]byte("cli> "))
	assert.True(t, b.Prompt())
	assert.Equal(t, []byte("cli> "), b.TakePromptStr())
	assert.False(t, b.Prompt())
}

func TestHelpedSetTake(t *testing.T) {
	b := New()
	assert.False(t, b.TakeHelped())
	b.SetHelped(true)
	assert.True(t, b.TakeHelped())
	assert.False(t, b.TakeHelped())
}

func TestExitSetNotifies(t *testing.T) {
	b := New()
	b.SetExit()
	assert.True(t, b.Exit())

	select {
	case <-b.WaitForMessage():
	case <-time.After(time.Second):
		t.Fatal("SetExit did not notify WaitForMessage")
	}
}

func TestLogConfigRoundTrip(t *testing.T) {
	b := New()
	cfg := LogConfig{UseSyslog: false, LogPrio: 7}
	b.SetLogConfig(cfg)
	assert.Equal(t, cfg, b.LogConfig())
}

func TestDisplayCountIncrements(t *testing.T) {
	b := New()
	assert.Equal(t, uint64(0), b.DisplayCount())
	assert.Equal(t, uint64(1), b.IncrDisplay())
	assert.Equal(t, uint64(2), b.IncrDisplay())
	assert.Equal(t, uint64(2), b.DisplayCount())
}

func TestRequestInterruptIsNonBlockingAndObservable(t *testing.T) {
	b := New()
	b.RequestInterrupt()
	// a second request before TX drains the first must not block.
	b.RequestInterrupt()

	select {
	case <-b.InterruptRequested():
	default:
		t.Fatal("expected a pending interrupt request")
	}
}

func TestNotifyIsNonBlocking(t *testing.T) {
	b := New()
	// buffered size 1: a second Notify before drain must not block.
	b.Notify()
	b.Notify()
	select {
	case <-b.WaitForMessage():
	default:
		t.Fatal("expected a pending notification")
	}
}
