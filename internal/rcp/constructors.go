/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

package rcp

import "fmt"

// Messages a UCRP-style server MAY send.

// NewAsk builds an ASK frame: "prompt CRLF default CRLF".
func NewAsk(options uint16, prompt, def string) *Message {
	return &Message{
		Type:    Ask,
		Options: options,
		Payload: []byte(prompt + Separator + def + Separator),
	}
}

// NewBusy builds an empty-payload BUSY frame.
func NewBusy() *Message {
	return &Message{Type: Busy}
}

// NewCompleted builds a COMPLETED frame: "completion CRLF".
func NewCompleted(completion string) *Message {
	return &Message{Type: Completed, Payload: []byte(completion + Separator)}
}

// NewDisplay builds a DISPLAY frame carrying raw bytes verbatim.
func NewDisplay(data []byte) *Message {
	return &Message{Type: Display, Payload: data}
}

// NewPrompt builds a PROMPT frame: "prompt CRLF".
func NewPrompt(prompt string) *Message {
	return &Message{Type: Prompt, Payload: []byte(prompt + Separator)}
}

// NewHelped builds an empty-payload HELPED frame.
func NewHelped() *Message {
	return &Message{Type: Helped}
}

// NewSwinsz builds a SWINSZ frame: "rows CRLF cols CRLF xpixel CRLF ypixel CRLF".
func NewSwinsz(rows, cols, xpixel, ypixel uint16) *Message {
	payload := fmt.Sprintf("%d%s%d%s%d%s%d%s",
		rows, Separator, cols, Separator, xpixel, Separator, ypixel, Separator)
	return &Message{Type: Swinsz, Payload: []byte(payload)}
}

// NewExec builds an EXEC frame: "shell-command CRLF".
func NewExec(command string) *Message {
	return &Message{Type: Exec, Payload: []byte(command + Separator)}
}

// Messages a UCRP-style client MAY send.

// NewCommand builds a COMMAND frame: "line CRLF".
func NewCommand(line string) *Message {
	return &Message{Type: Command, Payload: []byte(line + Separator)}
}

// NewComplete builds a COMPLETE frame: "partial CRLF".
func NewComplete(partial string) *Message {
	return &Message{Type: Complete, Payload: []byte(partial + Separator)}
}

// NewHelp builds a HELP frame: "partial CRLF".
func NewHelp(partial string) *Message {
	return &Message{Type: Help, Payload: []byte(partial + Separator)}
}

// NewInterrupt builds an empty-payload INTERRUPT frame.
func NewInterrupt() *Message {
	return &Message{Type: Interrupt}
}

// NewTell builds a TELL frame: "answer CRLF".
func NewTell(answer string) *Message {
	return &Message{Type: Tell, Payload: []byte(answer + Separator)}
}

// NewSuspend builds an empty-payload SUSPEND frame.
func NewSuspend() *Message {
	return &Message{Type: Suspend}
}

// NewWait builds a WAIT frame. Payload is only present when options
// carries WaitStatus, matching the original: signal and error waits
// carry no body.
func NewWait(options uint16, status int) *Message {
	msg := &Message{Type: Wait, Options: options}
	if options&WaitStatus != 0 {
		msg.Payload = []byte(fmt.Sprintf("%d%s", status, Separator))
	}
	return msg
}

// StripTrailingSeparator removes one trailing Separator from payload,
// if present. The SCB stores completed_str/exec_str/prompt_str this way
// (length - 2 in the original's memcpy).
func StripTrailingSeparator(payload []byte) []byte {
	sep := []byte(Separator)
	if len(payload) >= len(sep) && string(payload[len(payload)-len(sep):]) == Separator {
		return payload[:len(payload)-len(sep)]
	}
	return payload
}
