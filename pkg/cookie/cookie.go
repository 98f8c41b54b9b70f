// Package cookie turns a raw Cookie header copied from a browser into a
// name/value set the HTTP client can replay.
package cookie

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Set maps cookie names to values. Treat it as read-only once parsed.
type Set map[string]string

// Issue describes a segment that could not be parsed
type Issue struct {
	Index   int
	Segment string
	Reason  string
}

func (i Issue) String() string {
	return fmt.Sprintf("segment %d %q %s", i.Index, i.Segment, i.Reason)
}

// Parse splits raw on ';' and each segment on its first '='.
// Segments without '=' or with an empty name cannot be replayed, so they are
// dropped and reported as issues; blank segments are skipped silently. When a
// name repeats, the last value wins.
func Parse(raw string) (Set, []Issue) {
	set := make(Set)
	var issues []Issue

	for i, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			issues = append(issues, Issue{Index: i, Segment: segment, Reason: "has no '='"})
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			issues = append(issues, Issue{Index: i, Segment: segment, Reason: "has an empty name"})
			continue
		}
		set[name] = strings.TrimSpace(value)
	}

	return set, issues
}

// Names returns the cookie names in sorted order
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Header renders the set as a Cookie header value, sorted by name
func (s Set) Header() string {
	parts := make([]string, 0, len(s))
	for _, name := range s.Names() {
		parts = append(parts, name+"="+s[name])
	}
	return strings.Join(parts, "; ")
}

// Scope replays a Set to one host only
type Scope struct {
	host   string
	header string
}

// ScopedTo binds the set to siteURL's host. Requests to any other host,
// photo hosts included, never see the session.
func (s Set) ScopedTo(siteURL string) (Scope, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return Scope{}, fmt.Errorf("parse site url: %w", err)
	}
	if u.Host == "" {
		return Scope{}, fmt.Errorf("site url %q has no host", siteURL)
	}
	return Scope{host: u.Host, header: s.Header()}, nil
}

// Apply sets the Cookie header on req when it targets the scoped host and
// removes it otherwise. Values go out byte for byte as parsed.
func (sc Scope) Apply(req *http.Request) {
	req.Header.Del("Cookie")
	if sc.header != "" && strings.EqualFold(req.URL.Host, sc.host) {
		req.Header.Set("Cookie", sc.header)
	}
}
