package statsd

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudant/bucky/queue"
)

type recordingQueue struct {
	points []queue.Point
}

func (r *recordingQueue) Enqueue(p queue.Point) error {
	r.points = append(r.points, p)
	return nil
}

func (r *recordingQueue) byName(name string) (queue.Point, bool) {
	for _, p := range r.points {
		if p.Name == name {
			return p, true
		}
	}
	return queue.Point{}, false
}

func allEnabledTimers() TimerEnables {
	return TimerEnables{Mean: true, Upper: true, Lower: true, Count: true, CountPS: true, Sum: true, SumSquares: true, Median: true, Std: true}
}

func newTestFlushEngine(agg *Aggregator, q *recordingQueue, cfg FlushConfig) *FlushEngine {
	f := NewFlushEngine(agg, cfg, q, testLogger())
	f.nowFn = func() time.Time { return time.Unix(1000, 0) }
	return f
}

func TestFlushEngineCounterModernNamespace(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("hits:100|c"))

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{FlushTime: 10 * time.Second, Timer: allEnabledTimers()})
	f.Tick()

	rate, ok := q.byName("hits.rate")
	require.True(t, ok)
	assert.Equal(t, 10.0, rate.Value)

	count, ok := q.byName("hits.count")
	require.True(t, ok)
	assert.Equal(t, 100.0, count.Value)

	// counter resets after flush
	assert.Equal(t, int64(0), agg.counters["hits"])
}

func TestFlushEngineCounterLegacyNamespace(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("hits:100|c"))

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{
		FlushTime: 10 * time.Second,
		Naming:    NamingConfig{LegacyNamespace: true},
		Timer:     allEnabledTimers(),
	})
	f.Tick()

	rate, ok := q.byName("stats.hits")
	require.True(t, ok)
	assert.Equal(t, 10.0, rate.Value)

	count, ok := q.byName("stats_counts.hits")
	require.True(t, ok)
	assert.Equal(t, 100.0, count.Value)
}

func TestFlushEngineTimerFullSummary(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	for i := 1; i <= 10; i++ {
		agg.Handle([]byte("req:" + strconv.Itoa(i) + "|ms"))
	}

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{
		FlushTime:            10 * time.Second,
		PercentileThresholds: []float64{90},
		Timer:                allEnabledTimers(),
	})
	f.Tick()

	upper90, ok := q.byName("req.upper_90")
	require.True(t, ok)
	assert.Equal(t, 9.0, upper90.Value)

	sum90, ok := q.byName("req.sum_90")
	require.True(t, ok)
	assert.Equal(t, 45.0, sum90.Value)

	mean90, ok := q.byName("req.mean_90")
	require.True(t, ok)
	assert.Equal(t, 5.0, mean90.Value)

	upper, ok := q.byName("req.upper")
	require.True(t, ok)
	assert.Equal(t, 10.0, upper.Value)

	lower, ok := q.byName("req.lower")
	require.True(t, ok)
	assert.Equal(t, 1.0, lower.Value)

	mean, ok := q.byName("req.mean")
	require.True(t, ok)
	assert.Equal(t, 5.5, mean.Value)

	// samples are cleared after flush
	assert.Empty(t, agg.timers["req"])
}

func TestFlushEngineGaugeEmission(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("temp:42|g"))

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{FlushTime: 10 * time.Second, Timer: allEnabledTimers()})
	f.Tick()

	g, ok := q.byName("temp")
	require.True(t, ok)
	assert.Equal(t, 42.0, g.Value)

	// gauges persist across flushes (not reset to zero)
	assert.Equal(t, 42.0, agg.gauges["temp"])
}

func TestFlushEngineSetEmissionAndReset(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("users:alice|s"))
	agg.Handle([]byte("users:bob|s"))

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{FlushTime: 10 * time.Second, Timer: allEnabledTimers()})
	f.Tick()

	count, ok := q.byName("users.count")
	require.True(t, ok)
	assert.Equal(t, 2.0, count.Value)
	assert.Empty(t, agg.sets["users"])
}

func TestFlushEngineNumStats(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("a:1|c"))
	agg.Handle([]byte("b:2|g"))

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{FlushTime: 10 * time.Second, Timer: allEnabledTimers()})
	f.Tick()

	ns, ok := q.byName("numStats")
	require.True(t, ok)
	assert.Equal(t, 2.0, ns.Value)
}

func TestFlushEngineDeleteIdleStatsReapsUnseenCounters(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("a:1|c"))

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{
		FlushTime: 10 * time.Second,
		Timer:     allEnabledTimers(),
		Delete:    DeleteIdleStats{Enabled: true, Counters: true},
	})

	// simulate the key going idle: remove it from keys_seen before the tick
	delete(agg.keysSeen, "a")
	f.Tick()

	_, stillPresent := agg.counters["a"]
	assert.False(t, stillPresent)
}

func TestFlushEngineKeysSeenPrunedToEmittedKeys(t *testing.T) {
	agg := NewAggregator(nil, testLogger())
	agg.Handle([]byte("a:1|c"))
	agg.keysSeen["orphan"] = Metadata{"x": "y"}

	q := &recordingQueue{}
	f := newTestFlushEngine(agg, q, FlushConfig{FlushTime: 10 * time.Second, Timer: allEnabledTimers()})
	f.Tick()

	_, ok := agg.keysSeen["orphan"]
	assert.False(t, ok, "keys not re-emitted this tick should be pruned from keys_seen")
	_, ok = agg.keysSeen["a"]
	assert.True(t, ok)
}
