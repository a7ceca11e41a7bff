// Package pipeline turns a query-history table into the dashboard
// views: filter, summary counts, viewer sets, daily quantiles, and
// the longest queries. Every function is pure; inputs are never
// modified and identical inputs give identical outputs.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/wesm/queryview/internal/timeutil"
)

// All is the selection sentinel meaning "no filter at this level".
const All = "All"

// ErrInvalidRange reports a malformed or inverted date range.
var ErrInvalidRange = errors.New("invalid date range")

// Selection is one set of filter choices. Empty strings are
// treated as All.
type Selection struct {
	From string `json:"from"` // YYYY-MM-DD, inclusive
	To   string `json:"to"`   // YYYY-MM-DD, inclusive
	Team string `json:"team"`
	App  string `json:"app"`
	Page string `json:"page"`
}

func isAll(v string) bool { return v == "" || v == All }

// Normalize replaces empty levels with All and drops a lower-level
// choice whose parent is All: an app is only meaningful within a
// team, a page only within an app.
func (s Selection) Normalize() Selection {
	if isAll(s.Team) {
		s.Team = All
	}
	if isAll(s.App) || s.Team == All {
		s.App = All
	}
	if isAll(s.Page) || s.App == All {
		s.Page = All
	}
	return s
}

// Resolve normalizes s, defaults the date range to [lo, hi] and
// clamps it to those bounds. Empty bounds leave the range alone.
func (s Selection) Resolve(lo, hi string) (Selection, error) {
	s = s.Normalize()
	if s.From == "" {
		s.From = lo
	}
	if s.To == "" {
		s.To = hi
	}
	if s.From != "" && !timeutil.IsValidDate(s.From) {
		return s, fmt.Errorf("%w: bad from date %q", ErrInvalidRange, s.From)
	}
	if s.To != "" && !timeutil.IsValidDate(s.To) {
		return s, fmt.Errorf("%w: bad to date %q", ErrInvalidRange, s.To)
	}
	if s.From != "" && s.To != "" && s.From > s.To {
		return s, fmt.Errorf(
			"%w: from %s is after to %s", ErrInvalidRange, s.From, s.To,
		)
	}
	if lo != "" && s.From < lo {
		s.From = lo
	}
	if hi != "" && s.To > hi {
		s.To = hi
	}
	return s, nil
}
