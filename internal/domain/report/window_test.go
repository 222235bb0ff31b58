package report_test

import (
	"slices"
	"testing"
	"time"

	"github.com/Strob0t/costreport/internal/domain/report"
)

var now = time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC)

func TestResolveWindowDays(t *testing.T) {
	w := report.ResolveWindow(report.Filter{TimeScopeUnits: report.UnitsDay, TimeScopeValue: -10, Resolution: report.ResolutionDaily}, now)
	if got := w.Start.Format("2006-01-02"); got != "2024-03-06" {
		t.Errorf("start = %s", got)
	}
	if got := w.End.Format("2006-01-02"); got != "2024-03-15" {
		t.Errorf("end = %s", got)
	}
	dates := w.Dates()
	if len(dates) != 10 || dates[0] != "2024-03-06" || dates[9] != "2024-03-15" {
		t.Errorf("dates = %v", dates)
	}
	if got := w.Until().Format("2006-01-02"); got != "2024-03-16" {
		t.Errorf("until = %s", got)
	}
}

func TestResolveWindowMonths(t *testing.T) {
	tests := []struct {
		value      int
		start, end string
	}{
		{-1, "2024-03-01", "2024-03-31"},
		{-2, "2024-02-01", "2024-02-29"},
	}
	for _, tt := range tests {
		w := report.ResolveWindow(report.Filter{TimeScopeUnits: report.UnitsMonth, TimeScopeValue: tt.value, Resolution: report.ResolutionMonthly}, now)
		if got := w.Start.Format("2006-01-02"); got != tt.start {
			t.Errorf("value %d start = %s, want %s", tt.value, got, tt.start)
		}
		if got := w.End.Format("2006-01-02"); got != tt.end {
			t.Errorf("value %d end = %s, want %s", tt.value, got, tt.end)
		}
		if got := w.Dates(); len(got) != 1 || got[0] != tt.start[:7] {
			t.Errorf("value %d dates = %v", tt.value, got)
		}
	}
}

func TestWindowPreviousAlignment(t *testing.T) {
	w := report.ResolveWindow(report.Filter{TimeScopeUnits: report.UnitsDay, TimeScopeValue: -10, Resolution: report.ResolutionDaily}, now)
	prev := w.Previous()
	if got := prev.Start.Format("2006-01-02"); got != "2024-02-25" {
		t.Errorf("previous start = %s", got)
	}
	if got := w.AlignPrevious("2024-02-25"); got != "2024-03-06" {
		t.Errorf("aligned = %s", got)
	}

	m := report.ResolveWindow(report.Filter{TimeScopeUnits: report.UnitsMonth, TimeScopeValue: -1, Resolution: report.ResolutionMonthly}, now)
	if got := m.Previous().Dates(); !slices.Equal(got, []string{"2024-02"}) {
		t.Errorf("previous month dates = %v", got)
	}
	if got := m.AlignPrevious("2024-02"); got != "2024-03" {
		t.Errorf("aligned month = %s", got)
	}
}
