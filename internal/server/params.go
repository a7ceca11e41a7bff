package server

import (
	"net/http"
	"strconv"

	"github.com/wesm/queryview/internal/pipeline"
	"github.com/wesm/queryview/internal/timeutil"
)

// Row paging bounds for /api/v1/dataset/rows.
const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
	maxTopQueries   = 10000
)

// parseSelection extracts the filter params from a request.
// Dates must be YYYY-MM-DD when present; an inverted range is
// rejected later, against the dataset bounds.
func parseSelection(
	w http.ResponseWriter, r *http.Request,
) (pipeline.Selection, bool) {
	q := r.URL.Query()
	sel := pipeline.Selection{
		From: q.Get("from"),
		To:   q.Get("to"),
		Team: q.Get("team"),
		App:  q.Get("app"),
		Page: q.Get("page"),
	}
	for _, d := range []string{sel.From, sel.To} {
		if d != "" && !timeutil.IsValidDate(d) {
			writeError(w, http.StatusBadRequest,
				"invalid date format: use YYYY-MM-DD")
			return pipeline.Selection{}, false
		}
	}
	return sel.Normalize(), true
}

// parseIntParam reads a non-negative integer query param,
// returning def when absent. Values above max are rejected.
func parseIntParam(
	w http.ResponseWriter, r *http.Request,
	name string, def, lo, hi int,
) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		writeError(w, http.StatusBadRequest,
			name+" must be an integer between "+
				strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return v, true
}
