package statsd

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cloudant/bucky/queue"
)

// TimerEnables gates which timer sub-metrics are emitted.
type TimerEnables struct {
	Mean       bool
	Upper      bool
	Lower      bool
	Count      bool
	CountPS    bool
	Sum        bool
	SumSquares bool
	Median     bool
	Std        bool
}

// DeleteIdleStats gates per-type idle-key reaping, all subordinate to the
// master Enabled switch.
type DeleteIdleStats struct {
	Enabled           bool
	Counters          bool
	Timers            bool
	Sets              bool
	OnlyChangedGauges bool
}

// FlushConfig bundles everything the flush tick needs beyond the
// Aggregator's own state.
type FlushConfig struct {
	FlushTime          time.Duration
	Naming             NamingConfig
	PercentileThresholds []float64
	Timer              TimerEnables
	Delete             DeleteIdleStats
}

// FlushEngine runs the periodic flush tick: a dedicated goroutine that
// sleeps FlushTime, then atomically reaps idle keys, emits derived metrics
// for each type, and prunes keys_seen.
type FlushEngine struct {
	agg    *Aggregator
	cfg    FlushConfig
	queue  queue.Queue
	log    logrus.FieldLogger
	names  namePrefixes
	nowFn  func() time.Time
}

// NewFlushEngine wires an Aggregator to a downstream Queue under the given
// configuration.
func NewFlushEngine(agg *Aggregator, cfg FlushConfig, q queue.Queue, log logrus.FieldLogger) *FlushEngine {
	return &FlushEngine{
		agg:   agg,
		cfg:   cfg,
		queue: q,
		log:   log,
		names: newNamePrefixes(cfg.Naming),
		nowFn: time.Now,
	}
}

// Run blocks, ticking every cfg.FlushTime until ctx is canceled. It is
// intended to run in its own goroutine, managed by the Orchestrator.
func (f *FlushEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.FlushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Tick()
		}
	}
}

// Tick performs one flush: idle reap, derived-metric emission in
// timers→counters→gauges→sets→numStats order, then keys_seen pruning. All
// of it runs under the Aggregator's single mutex so emissions are mutually
// consistent.
func (f *FlushEngine) Tick() {
	stime := f.nowFn().Unix()

	f.agg.mu.Lock()
	defer f.agg.mu.Unlock()

	if f.cfg.Delete.Enabled {
		if f.cfg.Delete.Timers {
			reapIdle(f.agg.timers, f.agg.keysSeen)
		}
		if f.cfg.Delete.Counters {
			reapIdle(f.agg.counters, f.agg.keysSeen)
		}
		if f.cfg.Delete.Sets {
			reapIdle(f.agg.sets, f.agg.keysSeen)
		}
	}

	numStats := 0
	kept := make(map[string]struct{})

	numStats += f.emitTimers(stime, kept)
	numStats += f.emitCounters(stime, kept)
	numStats += f.emitGauges(stime, kept)
	numStats += f.emitSets(stime, kept)

	f.enqueue(f.names.global+"numStats", float64(numStats), stime, nil)

	newSeen := make(map[string]Metadata, len(kept))
	for k := range kept {
		if meta, ok := f.agg.keysSeen[k]; ok {
			newSeen[k] = meta
		}
	}
	f.agg.keysSeen = newSeen
}

func reapIdle[V any](m map[string]V, keysSeen map[string]Metadata) {
	for k := range m {
		if _, seen := keysSeen[k]; !seen {
			delete(m, k)
		}
	}
}

func (f *FlushEngine) enqueue(name string, value float64, stime int64, meta Metadata) {
	p := queue.Point{Name: name, Value: value, Timestamp: stime}
	if meta != nil {
		p.Metadata = map[string]string(meta)
	}
	if err := f.queue.Enqueue(p); err != nil {
		f.log.WithError(err).WithField("metric", name).Warn("statsd: queue enqueue failed")
	}
}

func (f *FlushEngine) emitTimers(stime int64, kept map[string]struct{}) int {
	count := 0
	for k, v := range f.agg.timers {
		kept[k] = struct{}{}
		count++

		if len(v) == 0 {
			f.enqueue(f.names.timer+k+".count", 0, stime, f.agg.keysSeen[k])
			f.enqueue(f.names.timer+k+".count_ps", 0.0, stime, f.agg.keysSeen[k])
			continue
		}

		c := newCumulativeTimers(v)
		meta := f.agg.keysSeen[k]

		for _, pct := range f.cfg.PercentileThresholds {
			idx := thresholdIndex(pct, c.len())
			if idx == 0 {
				continue
			}
			f.emitThreshold(k, pct, idx, c, stime, meta)
		}

		summary := c.summarize()
		f.emitFullTimerSummary(k, summary, stime, meta)

		f.agg.timers[k] = v[:0]
	}
	return count
}

func (c cumulativeTimers) len() int { return len(c.sorted) }

func (f *FlushEngine) emitThreshold(k string, pct float64, idx int, c cumulativeTimers, stime int64, meta Metadata) {
	t := renderThreshold(pct)
	vsum := c.cum[idx-1]
	base := f.names.timer + k

	if f.cfg.Timer.Mean {
		f.enqueue(base+suffixFor(".mean", t), vsum/float64(idx), stime, meta)
	}
	if f.cfg.Timer.Upper {
		f.enqueue(base+suffixFor(".upper", t), c.sorted[idx-1], stime, meta)
	}
	if f.cfg.Timer.Count {
		f.enqueue(base+suffixFor(".count", t), float64(idx), stime, meta)
	}
	if f.cfg.Timer.Sum {
		f.enqueue(base+suffixFor(".sum", t), vsum, stime, meta)
	}
	if f.cfg.Timer.SumSquares {
		f.enqueue(base+suffixFor(".sum_squares", t), c.cumSq[idx-1], stime, meta)
	}
}

func suffixFor(base string, threshold int) string {
	return base + "_" + strconv.Itoa(threshold)
}

func (f *FlushEngine) emitFullTimerSummary(k string, s timerSummary, stime int64, meta Metadata) {
	base := f.names.timer + k
	if f.cfg.Timer.Mean {
		f.enqueue(base+".mean", s.mean, stime, meta)
	}
	if f.cfg.Timer.Upper {
		f.enqueue(base+".upper", s.max, stime, meta)
	}
	if f.cfg.Timer.Lower {
		f.enqueue(base+".lower", s.min, stime, meta)
	}
	if f.cfg.Timer.Count {
		f.enqueue(base+".count", float64(s.count), stime, meta)
	}
	if f.cfg.Timer.CountPS {
		f.enqueue(base+".count_ps", float64(s.count)/(float64(f.cfg.FlushTime)/float64(time.Second)), stime, meta)
	}
	if f.cfg.Timer.Median {
		f.enqueue(base+".median", s.median, stime, meta)
	}
	if f.cfg.Timer.Sum {
		f.enqueue(base+".sum", s.sum, stime, meta)
	}
	if f.cfg.Timer.SumSquares {
		f.enqueue(base+".sum_squares", s.sumSq, stime, meta)
	}
	if f.cfg.Timer.Std {
		f.enqueue(base+".std", s.std, stime, meta)
	}
}

func (f *FlushEngine) emitCounters(stime int64, kept map[string]struct{}) int {
	count := 0
	flushSeconds := float64(f.cfg.FlushTime) / float64(time.Second)
	for k, v := range f.agg.counters {
		kept[k] = struct{}{}
		meta := f.agg.keysSeen[k]

		if f.names.legacy {
			f.enqueue(f.names.counter+k, float64(v)/flushSeconds, stime, meta)
			f.enqueue(f.names.legacyCount+k, float64(v), stime, meta)
		} else {
			f.enqueue(f.names.counter+k+".rate", float64(v)/flushSeconds, stime, meta)
			f.enqueue(f.names.counter+k+".count", float64(v), stime, meta)
		}

		f.agg.counters[k] = 0
		count++
	}
	return count
}

func (f *FlushEngine) emitGauges(stime int64, kept map[string]struct{}) int {
	count := 0
	for k, v := range f.agg.gauges {
		kept[k] = struct{}{}
		_, seen := f.agg.keysSeen[k]
		if f.cfg.Delete.OnlyChangedGauges && !seen {
			continue
		}
		f.enqueue(f.names.gauge+k, v, stime, f.agg.keysSeen[k])
		count++
	}
	return count
}

func (f *FlushEngine) emitSets(stime int64, kept map[string]struct{}) int {
	count := 0
	for k, v := range f.agg.sets {
		kept[k] = struct{}{}
		f.enqueue(f.names.set+k+".count", float64(len(v)), stime, f.agg.keysSeen[k])
		f.agg.sets[k] = make(map[string]struct{})
		count++
	}
	return count
}
