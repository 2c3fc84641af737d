package stats

import (
	"slices"
	"testing"
	"time"

	"smartbiz-ml/internal/business"
)

func TestExtractSeasonality(t *testing.T) {
	at := func(day, hour int) time.Time { return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC) }
	sales := []business.SalesRecord{
		{Date: at(1, 10), Amount: 100, ProductID: "rice"}, // Monday
		{Date: at(2, 18), Amount: 100, ProductID: "rice"}, // Tuesday
		{Date: at(6, 18), Amount: 300, ProductID: "ghee"}, // Saturday
		{Date: time.Date(2024, 2, 3, 11, 0, 0, 0, time.UTC), Amount: 100, ProductID: "dal"},
	}

	s := ExtractSeasonality(sales)

	if s.Monthly[1] != 500 || s.Monthly[2] != 100 {
		t.Errorf("monthly = %v", s.Monthly)
	}
	if s.Weekly[int(time.Saturday)] != 400 || s.Weekly[int(time.Monday)] != 100 {
		t.Errorf("weekly = %v", s.Weekly)
	}
	if got := s.WeekendLift(); got != 3 {
		t.Errorf("WeekendLift() = %v, want 3", got)
	}
	if got := s.PeakHours(2); !slices.Equal(got, []int{18, 10}) {
		t.Errorf("PeakHours(2) = %v, want [18 10]", got)
	}
}

func TestSeasonality_Empty(t *testing.T) {
	s := ExtractSeasonality(nil)
	if !s.IsEmpty() {
		t.Error("expected empty seasonality")
	}
	if s.WeekendLift() != 0 || len(s.PeakHours(3)) != 0 {
		t.Error("empty seasonality should report no lift and no peaks")
	}
}
