package iopipe

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRWC struct {
	buf    bytes.Buffer
	closed bool
}

func (f *fakeRWC) Read(p []byte) (int, error)  { return f.buf.Read(p) }
func (f *fakeRWC) Write(p []byte) (int, error) { return f.buf.Write(p) }
func (f *fakeRWC) Close() error                { f.closed = true; return nil }

func TestSwitchDefaultsToPassthrough(t *testing.T) {
	a, b := &fakeRWC{}, &fakeRWC{}
	sw := MakeSwitch(a)

	_, err := sw.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", a.buf.String())
	assert.Empty(t, b.buf.String())
}

func TestSwitchEnabledReflectsState(t *testing.T) {
	sw := MakeSwitch(&fakeRWC{})
	assert.False(t, sw.Enabled())
	sw.Enable(&fakeRWC{})
	assert.True(t, sw.Enabled())
}

func TestSwitchEnableRedirectsPermanently(t *testing.T) {
	a, b := &fakeRWC{}, &fakeRWC{}
	sw := MakeSwitch(a)
	sw.Enable(b)

	_, err := sw.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Empty(t, a.buf.String())
	assert.Equal(t, "hi", b.buf.String())

	// a second Enable is a no-op.
	c := &fakeRWC{}
	sw.Enable(c)
	_, _ = sw.Write([]byte("again"))
	assert.Empty(t, c.buf.String())
	assert.Equal(t, "hiagain", b.buf.String())
}

func TestSwitchCloseFollowsActiveTarget(t *testing.T) {
	a, b := &fakeRWC{}, &fakeRWC{}
	sw := MakeSwitch(a)
	require.NoError(t, sw.Close())
	assert.True(t, a.closed)
	assert.False(t, b.closed)

	sw2 := MakeSwitch(a)
	sw2.Enable(b)
	require.NoError(t, sw2.Close())
	assert.True(t, b.closed)
}

func TestAsynkWriteReachesUpstream(t *testing.T) {
	var out bytes.Buffer
	asynk := MakeAsynk(&out, 64)

	n, err := asynk.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.Eventually(t, func() bool {
		return out.String() == "hello"
	}, time.Second, time.Millisecond)

	require.NoError(t, asynk.Close())
}

func TestAsynkWriteLargerThanCapacitySplits(t *testing.T) {
	var out bytes.Buffer
	asynk := MakeAsynk(&out, 4)

	payload := []byte("abcdefgh")
	n, err := asynk.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	require.Eventually(t, func() bool {
		return out.String() == "abcdefgh"
	}, time.Second, time.Millisecond)

	require.NoError(t, asynk.Close())
}

func TestRingDelayerDelaysButPreservesOrder(t *testing.T) {
	var out bytes.Buffer
	upstream := &fakeRWC{}
	rd := RingDelay(upstream, 20*time.Millisecond, 4)

	_, err := rd.Write([]byte("first"))
	require.NoError(t, err)
	_, err = rd.Write([]byte("second"))
	require.NoError(t, err)

	// immediately after writing, delivery hasn't happened yet.
	assert.Empty(t, upstream.buf.String())

	require.Eventually(t, func() bool {
		return upstream.buf.String() == "firstsecond"
	}, time.Second, 2*time.Millisecond)

	out.Reset()
	require.NoError(t, rd.Close())
}

func TestDelayedConnRoutesThroughSwitch(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	sw := MakeSwitch(client)
	alt := &fakeRWC{}
	sw.Enable(alt)
	alt.buf.WriteString("buffered")

	dc := NewDelayedConn(client, sw)

	buf := make([]byte, 8)
	n, err := dc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "buffered", string(buf[:n]))

	// LocalAddr/RemoteAddr still delegate to the embedded real conn.
	assert.NotNil(t, dc.LocalAddr())

	require.NoError(t, dc.Close())
	assert.True(t, alt.closed)
}

var _ io.ReadWriteCloser = (*fakeRWC)(nil)
