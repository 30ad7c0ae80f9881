/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package control implements the Shared Control Block (SCB): the single
// mutex-guarded structure RX and TX use to hand off prompt/ask/exec/
// completion state and a handful of process-wide flags. Modeled on the
// original ucrpsh SH_CTL struct, but realized as two-goroutines-sharing-
// heap rather than two-processes-sharing-mmap (see spec.md §9, "Two-
// process vs two-thread").
package control

import (
	"sync"
	"sync/atomic"

	"rcpsh/internal/rcp"
)

// Block is the Shared Control Block. All fields below the mutex are
// guarded by it; DisplayCount is a separate atomic counter (the original
// increments display under the same lock, but it is read-mostly from
// unrelated goroutines waiting on "did a DISPLAY happen during my
// wait", so an atomic counter avoids contending the main lock for that
// one case — see internal/lineedit's complete/help wait loops).
type Block struct {
	mu sync.Mutex

	busy bool

	ask bool
	am  *rcp.Message // full captured ASK frame

	completed    bool
	completedStr []byte

	exec    bool
	execStr []byte

	prompt    bool
	promptStr []byte

	helped bool

	usepager bool
	exit     bool

	usesyslog bool
	logprio   uint32

	displayCount uint64

	// newMessage wakes a TX polling loop (or a condition-variable-based
	// TX, if one is built on top) whenever RX updates the block. It is
	// a non-blocking signal: a full channel just means TX hasn't drained
	// the previous wakeup yet, which is fine since TX always re-samples
	// every flag on wakeup rather than trusting the channel's payload.
	newMessage chan struct{}

	// interruptRequest lets RX ask TX to send an INTERRUPT frame on its
	// behalf. The socket is TX-write-only (§4.2/§5), so RX can never send
	// one itself; the pager's 'q' key is the one place RX needs to — the
	// original signals its own process group with SIGINT and lets
	// rx_sighdlr's peer turn that into the frame, this is the goroutine
	// equivalent of that indirection.
	interruptRequest chan struct{}
}

// New allocates a zeroed Shared Control Block with usepager defaulting
// on, matching the original's SH_CTL initial state.
func New() *Block {
	return &Block{
		usepager:         true,
		newMessage:       make(chan struct{}, 1),
		interruptRequest: make(chan struct{}, 1),
	}
}

// Notify wakes up any goroutine blocked in WaitForMessage. Called by RX
// after it has applied one message's effects to the block (§4.5 step 5).
func (b *Block) Notify() {
	select {
	case b.newMessage <- struct{}{}:
	default:
	}
}

// WaitForMessage returns the channel TX (or a completion/help waiter)
// can select on to be woken by Notify.
func (b *Block) WaitForMessage() <-chan struct{} {
	return b.newMessage
}

// RequestInterrupt asks TX to send an INTERRUPT frame. Non-blocking: a
// pending request that TX hasn't drained yet makes a second call a
// no-op, which is fine since the pager can only fire one 'q' at a time.
func (b *Block) RequestInterrupt() {
	select {
	case b.interruptRequest <- struct{}{}:
	default:
	}
}

// InterruptRequested returns the channel TX selects on to learn that RX
// wants an INTERRUPT frame sent.
func (b *Block) InterruptRequested() <-chan struct{} {
	return b.interruptRequest
}

// SetBusy sets or clears the busy flag. Set by RX on BUSY frames and
// cleared by RX on every subsequent frame (§4.5 step 1); consumed
// (observed) by TX.
func (b *Block) SetBusy(v bool) {
	b.mu.Lock()
	b.busy = v
	b.mu.Unlock()
}

// Busy reports the current busy flag.
func (b *Block) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

// SetAsk records a captured ASK frame and sets the ask flag. Producer:
// RX.
func (b *Block) SetAsk(msg *rcp.Message) {
	b.mu.Lock()
	b.ask = true
	b.am = msg
	b.mu.Unlock()
}

// HasAsk reports whether ask is set, without clearing it.
func (b *Block) HasAsk() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ask
}

// TakeAsk reports whether ask is set and, if so, clears it and returns
// the captured frame. Consumer: TX.
func (b *Block) TakeAsk() (*rcp.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ask {
		return nil, false
	}
	b.ask = false
	am := b.am
	b.am = nil
	return am, true
}

// SetCompleted records a COMPLETED payload (trailing separator already
// stripped by the caller) and sets the completed flag. Producer: RX.
func (b *Block) SetCompleted(payload []byte) {
	b.mu.Lock()
	b.completed = true
	b.completedStr = payload
	b.mu.Unlock()
}

// TakeCompleted reports whether completed is set and, if so, clears it
// and returns the stored payload. Consumer: TX (via internal/lineedit's
// complete callback).
func (b *Block) TakeCompleted() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.completed {
		return nil, false
	}
	b.completed = false
	return b.completedStr, true
}

// SetExec records an EXEC payload and sets the exec flag, forcing
// usepager off (§4.5 step 4, EXEC case). Producer: RX.
func (b *Block) SetExec(payload []byte) {
	b.mu.Lock()
	b.exec = true
	b.execStr = payload
	b.usepager = false
	b.mu.Unlock()
}

// HasExec reports whether exec is set, without clearing it.
func (b *Block) HasExec() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec
}

// TakeExec reports whether exec is set and, if so, clears it (also
// clearing usepager, matching tx_exec's belt-and-suspenders reset) and
// returns the stored command. Consumer: TX.
func (b *Block) TakeExec() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.exec {
		return nil, false
	}
	b.exec = false
	b.usepager = false
	return b.execStr, true
}

// SetPrompt records a PROMPT payload and sets the prompt flag. Producer:
// RX.
func (b *Block) SetPrompt(payload []byte) {
	b.mu.Lock()
	b.prompt = true
	b.promptStr = payload
	b.mu.Unlock()
}

// Prompt reports whether prompt is set, without clearing it.
func (b *Block) Prompt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prompt
}

// TakePromptStr clears the prompt flag and returns the stored prompt
// text. Consumer: TX's getline handler.
func (b *Block) TakePromptStr() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompt = false
	return b.promptStr
}

// SetHelped sets the helped flag. Producer: RX.
func (b *Block) SetHelped(v bool) {
	b.mu.Lock()
	b.helped = v
	b.mu.Unlock()
}

// TakeHelped reports and, if true, clears the helped flag. Consumer:
// internal/lineedit's help callback.
func (b *Block) TakeHelped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.helped {
		return false
	}
	b.helped = false
	return true
}

// SetUsePager sets or clears the pager-enable flag. Both RX and TX write
// this at different points of the protocol (§4.5, §4.6.3, §4.6.4); both
// read it.
func (b *Block) SetUsePager(v bool) {
	b.mu.Lock()
	b.usepager = v
	b.mu.Unlock()
}

// UsePager reports the current pager-enable flag.
func (b *Block) UsePager() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usepager
}

// SetExit sets the exit flag. Either RX or TX may call this on a fatal
// condition; both sides poll it.
func (b *Block) SetExit() {
	b.mu.Lock()
	b.exit = true
	b.mu.Unlock()
	b.Notify()
}

// Exit reports the exit flag.
func (b *Block) Exit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exit
}

// LogConfig is the escape menu's mirror of the active log destination
// and priority, pushed into the block so RX's polling loop (§4.5 step 2)
// can pick up a change made by TX without a direct call between them.
type LogConfig struct {
	UseSyslog bool
	LogPrio   uint32
}

// SetLogConfig pushes a new log configuration. Producer: the escape
// menu (TX side).
func (b *Block) SetLogConfig(cfg LogConfig) {
	b.mu.Lock()
	b.usesyslog = cfg.UseSyslog
	b.logprio = cfg.LogPrio
	b.mu.Unlock()
}

// LogConfig reads the current log configuration. Consumer: RX, which
// compares it against its own cached copy every message (§4.5 step 2).
func (b *Block) LogConfig() LogConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return LogConfig{UseSyslog: b.usesyslog, LogPrio: b.logprio}
}

// IncrDisplay atomically increments the monotonic DISPLAY event counter
// and returns the new value.
func (b *Block) IncrDisplay() uint64 {
	return atomic.AddUint64(&b.displayCount, 1)
}

// DisplayCount reads the current DISPLAY event counter without
// incrementing it. Used by the help callback (§4.6.5) to detect "a
// DISPLAY happened during my wait" by comparing a saved value against
// the current one.
func (b *Block) DisplayCount() uint64 {
	return atomic.LoadUint64(&b.displayCount)
}
