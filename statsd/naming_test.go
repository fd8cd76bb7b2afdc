package statsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNamePrefixesLegacy(t *testing.T) {
	p := newNamePrefixes(NamingConfig{LegacyNamespace: true})
	assert.True(t, p.legacy)
	assert.Equal(t, "stats.", p.counter)
	assert.Equal(t, "stats_counts.", p.legacyCount)
	assert.Equal(t, "stats.timers.", p.timer)
	assert.Equal(t, "stats.gauges.", p.gauge)
	assert.Equal(t, "stats.sets.", p.set)
}

func TestNewNamePrefixesModern(t *testing.T) {
	p := newNamePrefixes(NamingConfig{
		GlobalPrefix:  "app",
		PrefixCounter: "counters",
		PrefixTimer:   "timers",
		PrefixGauge:   "gauges",
		PrefixSet:     "sets",
	})
	assert.False(t, p.legacy)
	assert.Equal(t, "app.", p.global)
	assert.Equal(t, "app.counters.", p.counter)
	assert.Equal(t, "app.timers.", p.timer)
	assert.Equal(t, "app.gauges.", p.gauge)
	assert.Equal(t, "app.sets.", p.set)
}

func TestJoinNameAllEmpty(t *testing.T) {
	assert.Equal(t, "", joinName("", ""))
}

func TestJoinNameSkipsEmptyParts(t *testing.T) {
	assert.Equal(t, "app.counters.", joinName("app", "", "counters"))
}
