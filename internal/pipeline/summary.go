package pipeline

import "github.com/wesm/queryview/internal/dataset"

// Summary holds the hierarchy counts. The three counts are
// independent: a (team, app) pair without a page still counts as
// an app.
type Summary struct {
	TeamCount int `json:"team_count"`
	AppCount  int `json:"app_count"`
	PageCount int `json:"page_count"`
}

// Summarize counts distinct non-null teams, (team, app) pairs with
// both set, and (team, app, page) triples with all three set.
func Summarize(records []dataset.Record) Summary {
	type pair struct{ team, app string }
	type triple struct{ team, app, page string }

	teams := make(map[string]struct{})
	apps := make(map[pair]struct{})
	pages := make(map[triple]struct{})

	for _, r := range records {
		team, ok := r.Team()
		if !ok {
			continue
		}
		teams[team] = struct{}{}
		app, ok := r.App()
		if !ok {
			continue
		}
		apps[pair{team, app}] = struct{}{}
		if page, ok := r.Page(); ok {
			pages[triple{team, app, page}] = struct{}{}
		}
	}
	return Summary{
		TeamCount: len(teams),
		AppCount:  len(apps),
		PageCount: len(pages),
	}
}
