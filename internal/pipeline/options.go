package pipeline

import "github.com/wesm/queryview/internal/dataset"

// Options lists the choices a selection widget may offer. Teams
// come from the whole dataset; apps from the date and team
// filtered rows; pages from the date, team, and app filtered rows.
// Each list keeps first-seen order and excludes nulls.
type Options struct {
	MinDate      string   `json:"min_date"`
	MaxDate      string   `json:"max_date"`
	Teams        []string `json:"teams"`
	Apps         []string `json:"apps"`
	Pages        []string `json:"pages"`
	AppDisabled  bool     `json:"app_disabled"`
	PageDisabled bool     `json:"page_disabled"`
}

// BuildOptions computes the cascading options for sel over the
// full dataset.
func BuildOptions(ds *dataset.Dataset, sel Selection) (Options, error) {
	lo, hi := ds.DateBounds()
	sel, err := sel.Resolve(lo, hi)
	if err != nil {
		return Options{}, err
	}
	var records []dataset.Record
	if ds != nil {
		records = ds.Records
	}

	opts := Options{
		MinDate:      lo,
		MaxDate:      hi,
		Teams:        distinct(records, dataset.Record.Team),
		AppDisabled:  sel.Team == All,
		PageDisabled: sel.App == All,
	}

	subset := FilterTeam(FilterDateRange(records, sel.From, sel.To), sel.Team)
	opts.Apps = distinct(subset, dataset.Record.App)
	opts.Pages = distinct(FilterApp(subset, sel.App), dataset.Record.Page)
	return opts, nil
}

func distinct(
	records []dataset.Record, field func(dataset.Record) (string, bool),
) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		v, ok := field(r)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
