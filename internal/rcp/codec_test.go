package rcp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []*Message{
		NewAsk(AskNoEcho, "Password: ", ""),
		NewBusy(),
		NewCompleted("busy"),
		NewDisplay([]byte("\r\n\r\nUser Access Verification\r\n\r\n")),
		NewPrompt("cli> "),
		NewHelped(),
		NewSwinsz(24, 80, 0, 0),
		NewExec("date"),
		NewCommand("show"),
		NewComplete("bu"),
		NewHelp("sh"),
		NewInterrupt(),
		NewTell("s3cret"),
		NewSuspend(),
		NewWait(WaitStatus, 0),
		NewWait(WaitSignal, 0),
	}

	for _, msg := range cases {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, msg))

		decoded, err := Decode(&buf)
		require.NoError(t, err)

		assert.Equal(t, msg.Type, decoded.Type)
		assert.Equal(t, msg.Options, decoded.Options)
		assert.Equal(t, msg.Payload, decoded.Payload)
	}
}

func TestNetworkByteOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewPrompt("cli> ")))

	header := buf.Bytes()[:HeaderSize]
	assert.Equal(t, byte(0), header[0])
	assert.Equal(t, byte(Prompt), header[1])
	assert.Equal(t, byte(0), header[2])
	assert.Equal(t, byte(0), header[3])
	// length = len("cli> \r\n") = 7
	assert.Equal(t, byte(0), header[4])
	assert.Equal(t, byte(7), header[5])
}

func TestLengthBoundary(t *testing.T) {
	exact := &Message{Type: Display, Payload: bytes.Repeat([]byte{'x'}, MaxPayload)}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, exact))
	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Len(t, decoded.Payload, MaxPayload)

	tooBig := &Message{Type: Display, Payload: bytes.Repeat([]byte{'x'}, MaxPayload+1)}
	err = Encode(&buf, tooBig)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeRejectsOversizeHeader(t *testing.T) {
	header := make([]byte, HeaderSize)
	header[0], header[1] = 0, byte(Display)
	header[4] = 0xff
	header[5] = 0xff // length = 65535 > MaxPayload

	_, err := Decode(bytes.NewReader(header))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeConnectionClosed(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestGetLine(t *testing.T) {
	payload := []byte("Password: " + Separator + "" + Separator)
	cursor := payload

	prompt, err := GetLine(&cursor)
	require.NoError(t, err)
	assert.Equal(t, "Password: ", prompt)

	def, err := GetLine(&cursor)
	require.NoError(t, err)
	assert.Equal(t, "", def)

	_, err = GetLine(&cursor)
	assert.ErrorIs(t, err, ErrShortField)
}

func TestStripTrailingSeparator(t *testing.T) {
	assert.Equal(t, []byte("busy"), StripTrailingSeparator([]byte("busy"+Separator)))
	assert.Equal(t, []byte("busy"), StripTrailingSeparator([]byte("busy")))
}

func TestShortReadLoop(t *testing.T) {
	// a reader that trickles one byte at a time exercises Decode's
	// short-read retry loop the same way a slow socket would.
	var encoded bytes.Buffer
	require.NoError(t, Encode(&encoded, NewCommand("show")))

	trickle := &byteAtATimeReader{r: bytes.NewReader(encoded.Bytes())}
	decoded, err := Decode(trickle)
	require.NoError(t, err)
	assert.Equal(t, Command, decoded.Type)
	assert.Equal(t, "show\r\n", string(decoded.Payload))
}

type byteAtATimeReader struct {
	r *bytes.Reader
}

func (b *byteAtATimeReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.r.Read(p[:1])
}

func TestTypeStringUnknown(t *testing.T) {
	assert.True(t, strings.HasPrefix(Type(999).String(), "UNKNOWN"))
}
