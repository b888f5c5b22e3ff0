package shared

import (
	"net/http"
	"strconv"
)

// PageLimits bounds the limit query parameter of one listing. A zero
// Default lists everything unless the client asks for a limit.
type PageLimits struct {
	Default int
	Max     int
}

// Page is a limit/offset window. Limit 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from the query string. Malformed or
// negative values fall back to the defaults.
func ParsePage(r *http.Request, limits PageLimits) Page {
	page := Page{Limit: limits.Default}
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		page.Offset = v
	}
	if limits.Max > 0 && page.Limit > limits.Max {
		page.Limit = limits.Max
	}
	return page
}

// Bounds returns the [start, end) slice indexes of the page over n items.
func (p Page) Bounds(n int) (int, int) {
	start := min(p.Offset, n)
	if p.Limit == 0 {
		return start, n
	}
	return start, min(start+p.Limit, n)
}
