package router

import (
	"net/url"
	"regexp"
	"strconv"
)

// Params gives typed access to values captured from callback data: named
// regex groups from the matched route pattern plus the url-encoded query.
// Named groups win on key collision.
type Params struct {
	groups map[string]string
	query  url.Values
}

func newParams(re *regexp.Regexp, data string) Params {
	p := Params{groups: map[string]string{}}
	match := re.FindStringSubmatch(data)
	if match != nil {
		for i, name := range re.SubexpNames() {
			if name != "" && match[i] != "" {
				p.groups[name] = match[i]
			}
		}
	}
	_, query := split(data)
	p.query, _ = url.ParseQuery(query)
	return p
}

// Has reports whether a value was captured for name.
func (p Params) Has(name string) bool {
	if _, ok := p.groups[name]; ok {
		return true
	}
	return p.query.Has(name)
}

// Str returns the captured value for name, or "" when absent.
func (p Params) Str(name string) string {
	if v, ok := p.groups[name]; ok {
		return v
	}
	return p.query.Get(name)
}

// Int returns the captured value parsed as int, or 0 when absent or
// malformed.
func (p Params) Int(name string) int {
	n, _ := strconv.Atoi(p.Str(name))
	return n
}

// Uint returns the captured value parsed as a database id.
func (p Params) Uint(name string) uint {
	n, _ := strconv.ParseUint(p.Str(name), 10, 64)
	return uint(n)
}

// Int64 returns the captured value parsed as int64, used for chat ids.
func (p Params) Int64(name string) int64 {
	n, _ := strconv.ParseInt(p.Str(name), 10, 64)
	return n
}
