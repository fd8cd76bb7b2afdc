package statsd

// Metadata is the tag set attached to a sample, or nil when the sample (and
// the configured defaults) carry no tags at all. A nil Metadata is distinct
// from an empty, non-nil map: only nil omits the metadata tail on egress.
type Metadata map[string]string

// coalesce merges a sample's tags with the configured default tags, the
// defaults winning on key conflicts. It never mutates either input map.
//
// If the sample has no tags, the coalesced result is exactly the defaults
// (which may themselves be nil).
func coalesce(sampleTags, defaults Metadata) Metadata {
	if sampleTags == nil {
		return defaults
	}
	if len(defaults) == 0 {
		return sampleTags
	}
	merged := make(Metadata, len(sampleTags)+len(defaults))
	for k, v := range sampleTags {
		merged[k] = v
	}
	for k, v := range defaults {
		merged[k] = v
	}
	return merged
}
