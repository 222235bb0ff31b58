package report

import "time"

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Window is the resolved reporting period. Start and End are inclusive
// calendar days in UTC.
type Window struct {
	Start      time.Time
	End        time.Time
	Resolution string
	units      string
	days       int
}

// ResolveWindow turns the time scope of f into concrete dates relative to now.
// Day scopes cover the last N days including today; month scope -1 is the
// current month and -2 the previous one.
func ResolveWindow(f Filter, now time.Time) Window {
	today := truncateDay(now)
	w := Window{Resolution: f.Resolution, units: f.TimeScopeUnits}

	switch f.TimeScopeUnits {
	case UnitsMonth:
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthStart = monthStart.AddDate(0, f.TimeScopeValue+1, 0)
		w.Start = monthStart
		w.End = monthStart.AddDate(0, 1, -1)
	default:
		n := -f.TimeScopeValue
		if n < 1 {
			n = 1
		}
		w.days = n
		w.Start = today.AddDate(0, 0, -(n - 1))
		w.End = today
	}
	return w
}

// Until returns the exclusive upper bound of the window.
func (w Window) Until() time.Time {
	return w.End.AddDate(0, 0, 1)
}

// Dates lists every interval date of the window in ascending order,
// formatted for the window resolution.
func (w Window) Dates() []string {
	var out []string
	if w.Resolution == ResolutionMonthly {
		for m := time.Date(w.Start.Year(), w.Start.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(w.End); m = m.AddDate(0, 1, 0) {
			out = append(out, m.Format(monthLayout))
		}
		return out
	}
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(dayLayout))
	}
	return out
}

// Previous returns the comparison period used for deltas: the preceding
// month for month scopes, the preceding N days for day scopes.
func (w Window) Previous() Window {
	p := w
	if w.units == UnitsMonth {
		p.Start = w.Start.AddDate(0, -1, 0)
		p.End = w.Start.AddDate(0, 0, -1)
		return p
	}
	p.Start = w.Start.AddDate(0, 0, -w.days)
	p.End = w.End.AddDate(0, 0, -w.days)
	return p
}

// AlignPrevious maps a date of the Previous window onto the matching date of
// w so rows of both periods share a key. Unparseable dates are returned as is.
func (w Window) AlignPrevious(date string) string {
	if w.Resolution == ResolutionMonthly {
		t, err := time.Parse(monthLayout, date)
		if err != nil {
			return date
		}
		return t.AddDate(0, 1, 0).Format(monthLayout)
	}
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return date
	}
	if w.units == UnitsMonth {
		return t.AddDate(0, 1, 0).Format(dayLayout)
	}
	return t.AddDate(0, 0, w.days).Format(dayLayout)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
