package pipeline

import "github.com/wesm/queryview/internal/dataset"

// Filter applies the selection in order: date range, team, app,
// page. Each stage reads the previous stage's output and row order
// is preserved. An empty From or To leaves that side unbounded.
func Filter(
	records []dataset.Record, sel Selection,
) []dataset.Record {
	sel = sel.Normalize()
	out := FilterDateRange(records, sel.From, sel.To)
	out = FilterTeam(out, sel.Team)
	out = FilterApp(out, sel.App)
	return FilterPage(out, sel.Page)
}

// FilterDateRange keeps records whose start_date is within
// [from, to], both inclusive.
func FilterDateRange(
	records []dataset.Record, from, to string,
) []dataset.Record {
	return keep(records, func(r dataset.Record) bool {
		if from != "" && r.StartDate < from {
			return false
		}
		return to == "" || r.StartDate <= to
	})
}

// FilterTeam keeps records of the given team. All keeps every
// record, including those without a team.
func FilterTeam(records []dataset.Record, team string) []dataset.Record {
	return keepEqual(records, team, dataset.Record.Team)
}

// FilterApp keeps records of the given app.
func FilterApp(records []dataset.Record, app string) []dataset.Record {
	return keepEqual(records, app, dataset.Record.App)
}

// FilterPage keeps records of the given page.
func FilterPage(records []dataset.Record, page string) []dataset.Record {
	return keepEqual(records, page, dataset.Record.Page)
}

func keepEqual(
	records []dataset.Record, want string,
	field func(dataset.Record) (string, bool),
) []dataset.Record {
	if isAll(want) {
		return clone(records)
	}
	return keep(records, func(r dataset.Record) bool {
		v, ok := field(r)
		return ok && v == want
	})
}

func keep(
	records []dataset.Record, pred func(dataset.Record) bool,
) []dataset.Record {
	out := make([]dataset.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func clone(records []dataset.Record) []dataset.Record {
	return append(make([]dataset.Record, 0, len(records)), records...)
}
