/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

package rcp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrPayloadTooLarge is returned by Encode when a payload exceeds
// MaxPayload, and by Decode when a frame declares a length that does.
var ErrPayloadTooLarge = errors.New("rcp: payload exceeds MaxPayload")

// ErrConnectionClosed is the terminal signal Decode returns on a clean
// EOF before any header bytes have been read.
var ErrConnectionClosed = errors.New("rcp: connection closed")

// ErrShortField is returned by GetLine when the cursor runs out of
// payload before finding a terminating Separator.
var ErrShortField = errors.New("rcp: short field, no CRLF found")

// Encode writes msg's header in network byte order followed by its
// payload, unchanged. Length is recomputed from len(msg.Payload).
func Encode(w io.Writer, msg *Message) error {
	if len(msg.Payload) > MaxPayload {
		return fmt.Errorf("rcp: encode %s: %w", msg.Type, ErrPayloadTooLarge)
	}
	length := uint16(len(msg.Payload))

	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(header[0:2], uint16(msg.Type))
	binary.BigEndian.PutUint16(header[2:4], msg.Options)
	binary.BigEndian.PutUint16(header[4:6], length)

	if _, err := writeFull(w, header); err != nil {
		return fmt.Errorf("rcp: encode %s header: %w", msg.Type, err)
	}
	if length > 0 {
		if _, err := writeFull(w, msg.Payload); err != nil {
			return fmt.Errorf("rcp: encode %s payload: %w", msg.Type, err)
		}
	}
	return nil
}

// Decode reads exactly one frame from r: a 6-byte header, retrying on
// short reads, then exactly Length payload bytes. It returns
// ErrConnectionClosed if the peer closed the stream before any header
// bytes arrived, and ErrPayloadTooLarge if the header declares a length
// greater than MaxPayload.
func Decode(r io.Reader) (*Message, error) {
	header := make([]byte, HeaderSize)
	n, err := readFull(r, header)
	if n == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("rcp: decode header: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("rcp: decode header: %w", err)
	}

	msg := &Message{
		Type:    Type(binary.BigEndian.Uint16(header[0:2])),
		Options: binary.BigEndian.Uint16(header[2:4]),
		Length:  binary.BigEndian.Uint16(header[4:6]),
	}

	if msg.Length > MaxPayload {
		return nil, fmt.Errorf("rcp: decode: length=%d: %w", msg.Length, ErrPayloadTooLarge)
	}

	if msg.Length > 0 {
		payload := make([]byte, msg.Length)
		if _, err := readFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("rcp: decode payload: %w", io.ErrUnexpectedEOF)
			}
			return nil, fmt.Errorf("rcp: decode payload: %w", err)
		}
		msg.Payload = payload
	}

	return msg, nil
}

func writeFull(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

func readFull(r io.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrUnexpectedEOF
		}
	}
	return total, nil
}

// GetLine returns the next Separator-delimited field from cursor,
// advancing cursor past the Separator. It is the only parser for
// payload sub-fields, mirroring the original ucrp_msg_getln contract:
// a missing terminator is reported rather than silently truncated.
func GetLine(cursor *[]byte) (string, error) {
	idx := bytes.Index(*cursor, []byte(Separator))
	if idx < 0 {
		return "", ErrShortField
	}
	field := string((*cursor)[:idx])
	*cursor = (*cursor)[idx+len(Separator):]
	return field, nil
}
