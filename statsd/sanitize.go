package statsd

import "regexp"

// keyReplacer applies the sanitization rules in fixed order: collapse
// whitespace runs to a single underscore, turn slashes into hyphens, then
// drop anything left outside [A-Za-z_-0-9.].
type keyReplacer struct {
	whitespace *regexp.Regexp
	disallowed *regexp.Regexp
}

var defaultSanitizer = newKeySanitizer()

func newKeySanitizer() *keyReplacer {
	return &keyReplacer{
		whitespace: regexp.MustCompile(`\s+`),
		disallowed: regexp.MustCompile(`[^a-zA-Z_\-0-9.]`),
	}
}

// sanitize rewrites a raw metric key into the safe character set used to key
// the aggregator's state maps. It is idempotent: sanitize(sanitize(x)) == sanitize(x).
func (r *keyReplacer) sanitize(key string) string {
	key = r.whitespace.ReplaceAllString(key, "_")
	key = slashToHyphen(key)
	return r.disallowed.ReplaceAllString(key, "")
}

func slashToHyphen(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			out[i] = '-'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}

// sanitizeKey is the package-level entry point used by the parser.
func sanitizeKey(key string) string {
	return defaultSanitizer.sanitize(key)
}
