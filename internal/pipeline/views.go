package pipeline

import (
	"errors"

	"github.com/wesm/queryview/internal/dataset"
)

// ErrNoData means the selection matched no records. It is an
// expected outcome, distinct from views full of zeros; no
// aggregation runs when it is returned.
var ErrNoData = errors.New("no data to display")

// Views is everything the dashboard renders for one selection.
type Views struct {
	Selection      Selection       `json:"selection"`
	Records        int             `json:"records"`
	Summary        Summary         `json:"summary"`
	ViewersByDate  []DateViewers   `json:"viewers_by_date"`
	ViewersByPage  []PageViewers   `json:"viewers_by_page"`
	DailyQuantiles []DailyStats    `json:"daily_quantiles"`
	Performance    []QuantilePoint `json:"performance"`
	TopQueries     []TopQuery      `json:"top_queries"`
}

// ComputeViews filters ds by sel and derives every view from the
// filtered rows, listing DefaultTopN longest queries.
func ComputeViews(ds *dataset.Dataset, sel Selection) (Views, error) {
	return ComputeViewsN(ds, sel, DefaultTopN)
}

// ComputeViewsN is ComputeViews with a custom top-N size.
func ComputeViewsN(
	ds *dataset.Dataset, sel Selection, topN int,
) (Views, error) {
	lo, hi := ds.DateBounds()
	sel, err := sel.Resolve(lo, hi)
	if err != nil {
		return Views{}, err
	}
	if ds.Len() == 0 {
		return Views{Selection: sel}, ErrNoData
	}

	rows := Filter(ds.Records, sel)
	if len(rows) == 0 {
		return Views{Selection: sel}, ErrNoData
	}

	daily := DailyQuantiles(rows)
	return Views{
		Selection:      sel,
		Records:        len(rows),
		Summary:        Summarize(rows),
		ViewersByDate:  ViewersByDate(rows),
		ViewersByPage:  ViewersByPage(rows),
		DailyQuantiles: daily,
		Performance:    Melt(daily),
		TopQueries:     TopQueries(rows, topN),
	}, nil
}
