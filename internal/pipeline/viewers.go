package pipeline

import (
	"sort"

	"github.com/wesm/queryview/internal/dataset"
)

// DateViewers is the distinct viewers of one day.
type DateViewers struct {
	StartDate     string   `json:"start_date"`
	Viewers       []string `json:"viewers"`
	UniqueViewers int      `json:"unique_viewers"`
}

// PageViewers is the distinct viewers of one page on one day.
type PageViewers struct {
	StartDate     string   `json:"start_date"`
	AppName       string   `json:"app_name"`
	PageName      string   `json:"page_name"`
	Viewers       []string `json:"viewers"`
	UniqueViewers int      `json:"unique_viewers"`
}

// viewerKey is a grouping key; app and page are empty for the
// per-day grouping.
type viewerKey struct {
	date, app, page string
}

// groupViewers collects the viewer set of each key in first-seen
// key order.
func groupViewers(
	records []dataset.Record, keyOf func(dataset.Record) (viewerKey, bool),
) ([]viewerKey, map[viewerKey]map[string]struct{}) {
	var order []viewerKey
	sets := make(map[viewerKey]map[string]struct{})
	for _, r := range records {
		k, ok := keyOf(r)
		if !ok {
			continue
		}
		set, seen := sets[k]
		if !seen {
			set = make(map[string]struct{})
			sets[k] = set
			order = append(order, k)
		}
		set[r.ViewerName] = struct{}{}
	}
	return order, sets
}

// sortedSet returns the members of set in ascending order.
func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ViewersByDate groups records by start_date, most recent first.
func ViewersByDate(records []dataset.Record) []DateViewers {
	order, sets := groupViewers(records,
		func(r dataset.Record) (viewerKey, bool) {
			return viewerKey{date: r.StartDate}, true
		})

	out := make([]DateViewers, 0, len(order))
	for _, k := range order {
		v := sortedSet(sets[k])
		out = append(out, DateViewers{
			StartDate: k.date, Viewers: v, UniqueViewers: len(v),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate > out[j].StartDate
	})
	return out
}

// ViewersByPage groups records by (start_date, app_name,
// page_name). Records missing app or page form no group. Rows are
// ordered by date descending, then app and page ascending.
func ViewersByPage(records []dataset.Record) []PageViewers {
	order, sets := groupViewers(records,
		func(r dataset.Record) (viewerKey, bool) {
			app, ok := r.App()
			if !ok {
				return viewerKey{}, false
			}
			page, ok := r.Page()
			if !ok {
				return viewerKey{}, false
			}
			return viewerKey{date: r.StartDate, app: app, page: page}, true
		})

	out := make([]PageViewers, 0, len(order))
	for _, k := range order {
		v := sortedSet(sets[k])
		out = append(out, PageViewers{
			StartDate: k.date, AppName: k.app, PageName: k.page,
			Viewers: v, UniqueViewers: len(v),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartDate != b.StartDate {
			return a.StartDate > b.StartDate
		}
		if a.AppName != b.AppName {
			return a.AppName < b.AppName
		}
		return a.PageName < b.PageName
	})
	return out
}
