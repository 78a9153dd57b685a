// Package page computes pagination windows and prev/next navigation for
// search responses.
package page

import (
	"fmt"
	"net/url"
	"strconv"
)

// Default page window and hard ceiling; both are overridable via config, the
// ceiling is enforced regardless of what a caller asks for.
const (
	DefaultPerPage    = 10
	DefaultMaxPerPage = 20
)

// Params addresses a page of results. Two addressing modes coexist: plain
// offset paging via Page, and the "after" flag which routes the same offset
// math through the query document's from field. Token is accepted for
// forward compatibility but collapses to the same skip-based math.
type Params struct {
	Page    int
	PerPage int
	After   bool
	Token   string
}

// From computes the skip offset injected into the query document.
func (p Params) From() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Clamp bounds per_page by the configured ceiling and floors page at 1.
func (p Params) Clamp(maxPerPage int) Params {
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if maxPerPage > 0 && p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// URLs carry the prev/next navigation targets. An absent URL means the edge
// of the result set in that direction.
type URLs struct {
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// State describes where a page sits in the full result set.
type State struct {
	Total   int64 `json:"total"`
	Count   int   `json:"count"`
	PerPage int   `json:"per_page"`
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	Start   int64 `json:"start"`
	URLs    *URLs `json:"urls,omitempty"`
}

// Paginate computes the pagination block for an engine-reported hit count and
// the number of rows actually present on this page.
func Paginate(total int64, count int, p Params) State {
	pages := 0
	if p.PerPage > 0 {
		pages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}

	start := int64(1)
	if p.Page > 1 {
		start = int64(p.PerPage)*int64(p.Page-1) + 1
	}

	return State{
		Total:   total,
		Count:   count,
		PerPage: p.PerPage,
		Page:    p.Page,
		Pages:   pages,
		Start:   start,
	}
}

// Zero is the all-zero pagination block attached to failure envelopes.
func Zero() State { return State{} }

// Navigate annotates a state with prev/next URLs rebuilt from the current
// request path and query parameters. Every parameter other than page is
// preserved; prev is absent on the first page and next on the last.
func Navigate(s State, path string, params url.Values) State {
	if s.Pages <= 1 {
		return s
	}

	urls := &URLs{}
	if s.Page > 1 {
		urls.Prev = rebuildURL(path, params, s.Page-1)
	}
	if s.Page < s.Pages {
		urls.Next = rebuildURL(path, params, s.Page+1)
	}
	s.URLs = urls
	return s
}

func rebuildURL(path string, params url.Values, page int) string {
	qs := url.Values{}
	for k, vs := range params {
		if k == "page" {
			continue
		}
		qs[k] = vs
	}
	qs.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s?%s", path, qs.Encode())
}
