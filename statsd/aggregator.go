package statsd

import (
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Aggregator holds the five typed state maps (counters, gauges, timers,
// sets, keys_seen), guarded by a single mutex for the lifetime of the
// process. Entries are created on first valid sample and mutated only
// while holding the lock.
type Aggregator struct {
	mu sync.Mutex

	counters map[string]int64
	gauges   map[string]float64
	timers   map[string][]float64
	sets     map[string]map[string]struct{}
	keysSeen map[string]Metadata

	defaults Metadata
	log      logrus.FieldLogger

	onBadLine func(line string)
}

// NewAggregator constructs an empty Aggregator. defaults is the configured
// tag set merged into every sample's coalesced metadata; it may be nil.
func NewAggregator(defaults Metadata, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		counters:  make(map[string]int64),
		gauges:    make(map[string]float64),
		timers:    make(map[string][]float64),
		sets:      make(map[string]map[string]struct{}),
		keysSeen:  make(map[string]Metadata),
		defaults:  defaults,
		log:       log,
		onBadLine: func(string) {},
	}
}

// OnBadLine installs a callback invoked once per malformed line or sample,
// used by the Orchestrator to drive the bad-line self-stat counter.
func (a *Aggregator) OnBadLine(fn func(line string)) {
	a.onBadLine = fn
}

// Handle ingests one UDP datagram payload. It never returns an error or
// panics: malformed lines/samples are logged and dropped.
func (a *Aggregator) Handle(data []byte) {
	samples := parseDatagram(data, a.defaults, a.badLine)
	for _, s := range samples {
		a.apply(s)
	}
}

func (a *Aggregator) badLine(line string) {
	a.log.WithField("line", line).Error("statsd: invalid line")
	a.onBadLine(line)
}

func (a *Aggregator) apply(s sample) {
	switch s.kind {
	case kindTimer:
		a.handleTimer(s)
	case kindGauge:
		a.handleGauge(s)
	case kindSet:
		a.handleSet(s)
	default:
		a.handleCounter(s)
	}
}

func (a *Aggregator) handleTimer(s sample) {
	val := 0.0
	if s.value != "" {
		v, err := strconv.ParseFloat(s.value, 64)
		if err != nil {
			a.badLine(s.value)
			return
		}
		val = v
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.timers[s.key] = append(a.timers[s.key], val)
	a.keysSeen[s.key] = s.tags
}

func (a *Aggregator) handleGauge(s sample) {
	valStr := s.value
	if valStr == "" {
		valStr = "0"
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		a.badLine(valStr)
		return
	}
	delta := valStr[0] == '+' || valStr[0] == '-'

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.gauges[s.key]; ok && delta {
		a.gauges[s.key] = existing + val
	} else {
		// A signed value on a previously-unseen key is treated as
		// absolute rather than rejected.
		a.gauges[s.key] = val
	}
	a.keysSeen[s.key] = s.tags
}

func (a *Aggregator) handleSet(s sample) {
	val := s.value
	if val == "" {
		val = "0"
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.sets[s.key]
	if !ok {
		set = make(map[string]struct{})
		a.sets[s.key] = set
	}
	set[val] = struct{}{}
	a.keysSeen[s.key] = s.tags
}

// GaugesSnapshot returns a read-only copy of the current gauge values, for
// operator inspection (the AdminServer's /debug/gauges route). It does not
// mutate keys_seen.
func (a *Aggregator) GaugesSnapshot() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]float64, len(a.gauges))
	for k, v := range a.gauges {
		out[k] = v
	}
	return out
}

func (a *Aggregator) handleCounter(s sample) {
	rate := 1.0
	if strings.HasPrefix(s.rateSpec, "@") {
		if r, err := strconv.ParseFloat(s.rateSpec[1:], 64); err == nil && r > 0 {
			rate = r
		}
	}

	valStr := s.value
	if valStr == "" {
		valStr = "0"
	}
	fval, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		a.badLine(valStr)
		return
	}
	val := int64(fval / rate)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[s.key] += val
	a.keysSeen[s.key] = s.tags
}
