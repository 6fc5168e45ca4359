package echolog

import (
	"github.com/labstack/echo/v4"
)

// ignored reports whether a request's whole lifecycle should produce output.
// A custom predicate takes full precedence; otherwise the request path is
// checked against IgnorePaths, then the matched route's tags against
// IgnoreTags. Evaluated exactly once per request, at request start.
func (p *Plugin) ignored(c echo.Context) bool {
	if p.opts.IgnoreFunc != nil {
		return p.opts.IgnoreFunc(p.opts, c)
	}
	if p.ignorePaths[c.Request().URL.Path] {
		return true
	}
	if len(p.ignoreTags) > 0 {
		for _, t := range p.routeTags(c) {
			if p.ignoreTags[t] {
				return true
			}
		}
	}
	return false
}

// routeTags returns the tags registered for the matched route.
func (p *Plugin) routeTags(c echo.Context) []string {
	if p.opts.RouteTags == nil {
		return nil
	}
	return p.opts.RouteTags[c.Path()]
}

// toSet builds a membership set from a slice.
func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// eventTagSet builds the per-channel suppression set. Nil, or any set
// containing the wildcard, means "suppress nothing" and yields nil.
func eventTagSet(tags []string) map[string]bool {
	if tags == nil {
		return nil
	}
	for _, t := range tags {
		if t == Wildcard {
			return nil
		}
	}
	return toSet(tags)
}

// suppressedByEventTags reports whether a tagged event is dropped by the
// channel's suppression set.
func suppressedByEventTags(set map[string]bool, tags []string) bool {
	if set == nil {
		return false
	}
	for _, t := range tags {
		if set[t] {
			return true
		}
	}
	return false
}
