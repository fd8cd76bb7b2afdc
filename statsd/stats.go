package statsd

import (
	"math"
	"sort"
)

// timerSummary is the full set of derived values computed from one timer's
// sample list at flush time. Cumulative sums are precomputed once so each
// percentile threshold lookup is O(1) after the initial O(n log n) sort.
type timerSummary struct {
	count    int
	min, max float64
	mean     float64
	median   float64
	sum      float64
	sumSq    float64
	std      float64
}

// cumulativeTimers holds the sorted samples plus running sums, reused across
// both the per-percentile-threshold pass and the full-set pass.
type cumulativeTimers struct {
	sorted []float64
	cum    []float64
	cumSq  []float64
}

// newCumulativeTimers sorts v ascending (in place) and builds the cumulative
// sum / cumulative sum-of-squares arrays used for threshold lookups.
func newCumulativeTimers(v []float64) cumulativeTimers {
	sort.Float64s(v)
	cum := make([]float64, len(v))
	cumSq := make([]float64, len(v))
	var running, runningSq float64
	for i, x := range v {
		running += x
		runningSq += x * x
		cum[i] = running
		cumSq[i] = runningSq
	}
	return cumulativeTimers{sorted: v, cum: cum, cumSq: cumSq}
}

// thresholdIndex returns floor(pct/100 * count); the caller skips the
// threshold entirely when this is 0.
func thresholdIndex(pct float64, count int) int {
	return int(math.Floor(pct / 100.0 * float64(count)))
}

// summarize computes the unconditional full-set stats.
func (c cumulativeTimers) summarize() timerSummary {
	count := len(c.sorted)
	vsum := c.cum[count-1]
	mean := vsum / float64(count)

	var median float64
	mid := count / 2
	if count%2 == 0 {
		median = (c.sorted[mid-1] + c.sorted[mid]) / 2.0
	} else {
		median = c.sorted[mid]
	}

	var sumSqDiff float64
	for _, v := range c.sorted {
		d := v - mean
		sumSqDiff += d * d
	}

	return timerSummary{
		count:  count,
		min:    c.sorted[0],
		max:    c.sorted[count-1],
		mean:   mean,
		median: median,
		sum:    vsum,
		sumSq:  c.cumSq[count-1],
		std:    math.Sqrt(sumSqDiff / float64(count)),
	}
}

// renderThreshold truncates a percentile threshold to its integer form for
// metric-name rendering, so 95.0 and 99.9 both render as the digits before
// the decimal point. Truncation, not rounding, is intentional.
func renderThreshold(pct float64) int {
	return int(pct)
}
