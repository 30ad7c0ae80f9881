package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	c := New(prometheus.Labels{"host": "demo"})

	c.ObserveFrame("DISPLAY")
	c.ObserveFrame("DISPLAY")
	c.ObserveFrame("PROMPT")
	c.AddDisplayBytes(42)
	c.IncPagerPages()
	c.IncAsksAnswered()
	c.IncLocalExecs()
	c.IncInterrupts()
	c.IncInterrupts()

	assert.Equal(t, uint64(2), *c.framesByType["DISPLAY"])
	assert.Equal(t, uint64(1), *c.framesByType["PROMPT"])
	assert.Equal(t, 42.0, float64(c.displayBytes))
	assert.Equal(t, uint64(1), c.pagerPages)
	assert.Equal(t, uint64(1), c.asksAnswered)
	assert.Equal(t, uint64(1), c.localExecs)
	assert.Equal(t, uint64(2), c.interrupts)
}

func TestCollectEmitsEveryDesc(t *testing.T) {
	c := New(prometheus.Labels{"host": "demo"})
	c.ObserveFrame("COMMAND")

	assert.Equal(t, 6, testutil.CollectAndCount(c))
}
