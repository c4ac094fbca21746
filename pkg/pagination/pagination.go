package pagination

import (
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

const (
	// DefaultFirst is the page size used when the request does not name one.
	DefaultFirst = 20
	// MaxFirst is the largest page the storefront API serves.
	MaxFirst = 250
)

// Params holds cursor pagination parameters extracted from query strings.
// Forward paging uses First/After, backward paging Last/Before.
type Params struct {
	First  int    `json:"first,omitempty"`
	After  string `json:"after,omitempty"`
	Last   int    `json:"last,omitempty"`
	Before string `json:"before,omitempty"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{First: DefaultFirst}
}

// FromRequest extracts pagination parameters from an HTTP request. Sizes
// outside 1..MaxFirst or mixing directions is an invalid-input error.
func FromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	p := Params{After: q.Get("after"), Before: q.Get("before")}

	var err error
	if p.First, err = size(q.Get("first"), "first"); err != nil {
		return Params{}, err
	}
	if p.Last, err = size(q.Get("last"), "last"); err != nil {
		return Params{}, err
	}

	backward := p.Last > 0 || p.Before != ""
	forward := p.First > 0 || p.After != ""
	if backward && forward {
		return Params{}, apperrors.InvalidInput("use first/after or last/before, not both")
	}
	if backward {
		if p.Last == 0 {
			p.Last = DefaultFirst
		}
		return p, nil
	}
	if p.First == 0 {
		p.First = DefaultFirst
	}
	return p, nil
}

func size(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > MaxFirst {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be between 1 and %d", name, MaxFirst))
	}
	return v, nil
}

// Variables renders p as GraphQL connection arguments, omitting unset ones.
func (p Params) Variables() map[string]any {
	vars := make(map[string]any, 2)
	if p.First > 0 {
		vars["first"] = p.First
	}
	if p.After != "" {
		vars["after"] = p.After
	}
	if p.Last > 0 {
		vars["last"] = p.Last
	}
	if p.Before != "" {
		vars["before"] = p.Before
	}
	return vars
}

// PageInfo mirrors the GraphQL connection page info.
type PageInfo struct {
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	StartCursor     string `json:"start_cursor,omitempty"`
	EndCursor       string `json:"end_cursor,omitempty"`
}

// Page wraps one page of a connection with its nodes flattened.
type Page[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"page_info"`
}

// NewPage creates a page, normalizing nil items to an empty slice.
func NewPage[T any](items []T, info PageInfo) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, PageInfo: info}
}
