package statsd

import "strings"

// splitTags extracts the DogStatsD tag annotation from a line, of the form
// "name#k=v,k:v,bareword:<val>|<type>". The tag block sits between the '#'
// and the ':' that begins the first sample, so the boundary is the last ':'
// before the first '|' (or the last ':' of the line if it has no '|') —
// anything before it is the comma-separated tag list, everything from it
// onward (the ':' included) is spliced back onto the prefix to form the
// tag-stripped line.
//
// Within the comma-separated tag list, later occurrences of a key overwrite
// earlier ones (last-wins).
func splitTags(line string) (string, Metadata) {
	hash := strings.IndexByte(line, '#')
	if hash < 0 {
		return line, nil
	}

	prefix, after := line[:hash], line[hash+1:]

	head := after
	if pipe := strings.IndexByte(after, '|'); pipe >= 0 {
		head = after[:pipe]
	}
	boundary := strings.LastIndexByte(head, ':')
	var tagPart, suffix string
	if boundary < 0 {
		tagPart, suffix = after, ""
	} else {
		tagPart, suffix = after[:boundary], after[boundary:]
	}

	tags := make(Metadata)
	for _, elem := range strings.Split(tagPart, ",") {
		k, v := parseTagElement(elem)
		if k == "" {
			continue
		}
		tags[k] = v
	}
	return prefix + suffix, tags
}

// parseTagElement parses one "k=v", "k:v", or bareword "k" element.
func parseTagElement(elem string) (key, value string) {
	if i := strings.IndexByte(elem, '='); i >= 0 {
		return elem[:i], elem[i+1:]
	}
	if i := strings.IndexByte(elem, ':'); i >= 0 {
		return elem[:i], elem[i+1:]
	}
	return elem, ""
}
