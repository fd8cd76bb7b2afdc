package statsd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestAggregatorCounter(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("foo:5|c"))
	a.Handle([]byte("foo:3|c"))

	assert.Equal(t, int64(8), a.counters["foo"])
}

func TestAggregatorCounterSampleRate(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("foo:1|c|@0.1"))
	assert.Equal(t, int64(10), a.counters["foo"])
}

func TestAggregatorCounterNonPositiveRateIsInvalidRate(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("foo:5|c|@0"))
	// invalid rate falls back to 1.0
	assert.Equal(t, int64(5), a.counters["foo"])
}

func TestAggregatorGaugeDeltaVsAbsolute(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("temp:10|g"))
	assert.Equal(t, 10.0, a.gauges["temp"])

	a.Handle([]byte("temp:+5|g"))
	assert.Equal(t, 15.0, a.gauges["temp"])

	a.Handle([]byte("temp:-20|g"))
	assert.Equal(t, -5.0, a.gauges["temp"])

	a.Handle([]byte("temp:100|g"))
	assert.Equal(t, 100.0, a.gauges["temp"])
}

func TestAggregatorGaugeSignedOnUnseenKeyIsAbsolute(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("fresh:+5|g"))
	assert.Equal(t, 5.0, a.gauges["fresh"])
}

func TestAggregatorSetCardinality(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("users:alice|s"))
	a.Handle([]byte("users:bob|s"))
	a.Handle([]byte("users:alice|s"))

	require.Contains(t, a.sets, "users")
	assert.Len(t, a.sets["users"], 2)
}

func TestAggregatorTimerAppends(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("req:1|ms"))
	a.Handle([]byte("req:2|ms"))
	assert.Equal(t, []float64{1, 2}, a.timers["req"])
}

func TestAggregatorKeysSeenTracksCoalescedTags(t *testing.T) {
	defaults := Metadata{"dc": "us-east"}
	a := NewAggregator(defaults, testLogger())
	a.Handle([]byte("latency#region=us:23|ms"))
	assert.Equal(t, "us", a.keysSeen["latency"]["region"])
	assert.Equal(t, "us-east", a.keysSeen["latency"]["dc"])
}

func TestAggregatorBadLineCallback(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	var bad []string
	a.OnBadLine(func(l string) { bad = append(bad, l) })
	a.Handle([]byte("novalue\nmore:1"))
	assert.Len(t, bad, 2)
}

func TestAggregatorMultiSampleDatagram(t *testing.T) {
	a := NewAggregator(nil, testLogger())
	a.Handle([]byte("m:1|c:2|ms:3|g"))

	assert.Equal(t, int64(1), a.counters["m"])
	assert.Equal(t, []float64{2}, a.timers["m"])
	assert.Equal(t, 3.0, a.gauges["m"])
}
