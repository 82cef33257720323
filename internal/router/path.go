package router

import (
	"net/url"
	"regexp"
	"strings"
)

// Callback data is a slash-separated path with an optional url-encoded query:
//
//	cr/12/ma?t=lecture&p=12
//
// Screens navigate forward by appending segments and backward by stripping a
// trailing pattern from the current data.

// Path joins segments into callback data.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// WithParams appends url-encoded parameters to a path. Existing parameters
// with the same keys are replaced.
func WithParams(path string, params url.Values) string {
	base, query := split(path)
	existing, _ := url.ParseQuery(query)
	for k, vs := range params {
		existing[k] = vs
	}
	if len(existing) == 0 {
		return base
	}
	return base + "?" + existing.Encode()
}

// Back strips a trailing pattern from callback data, producing the data of
// the previous screen. The query part is dropped since it belongs to the
// stripped screen.
func Back(data, pattern string) string {
	base, _ := split(data)
	re := regexp.MustCompile(pattern + "$")
	return re.ReplaceAllString(base, "")
}

func split(data string) (path, query string) {
	if i := strings.IndexByte(data, '?'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}
