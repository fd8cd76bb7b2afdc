package statsd

import "strings"

// namePrefixes holds the dot-joined metric-name prefixes for each of the
// four metric types plus the global (numStats) namespace, computed once
// from NamingConfig.
type namePrefixes struct {
	global  string
	counter string
	timer   string
	gauge   string
	set     string
	// legacy-only: counter rates go to "<counter><k>" and counts to a
	// separate "stats_counts." namespace instead of "<counter>.<k>.rate/.count".
	legacy      bool
	legacyCount string
}

// NamingConfig selects and parametrizes the name-prefixing scheme.
type NamingConfig struct {
	LegacyNamespace bool
	GlobalPrefix    string
	PrefixCounter   string
	PrefixTimer     string
	PrefixGauge     string
	PrefixSet       string
}

func newNamePrefixes(cfg NamingConfig) namePrefixes {
	if cfg.LegacyNamespace {
		return namePrefixes{
			global:      "stats.",
			counter:     "stats.",
			legacyCount: "stats_counts.",
			timer:       "stats.timers.",
			gauge:       "stats.gauges.",
			set:         "stats.sets.",
			legacy:      true,
		}
	}
	return namePrefixes{
		global:  joinName(cfg.GlobalPrefix),
		counter: joinName(cfg.GlobalPrefix, cfg.PrefixCounter),
		timer:   joinName(cfg.GlobalPrefix, cfg.PrefixTimer),
		gauge:   joinName(cfg.GlobalPrefix, cfg.PrefixGauge),
		set:     joinName(cfg.GlobalPrefix, cfg.PrefixSet),
	}
}

// joinName dot-joins the non-empty parts and appends a trailing dot, or
// returns "" if every part is empty.
func joinName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ".") + "."
}
