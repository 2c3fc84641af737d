package stats

import (
	"slices"
	"time"

	"smartbiz-ml/internal/business"
)

// Seasonality holds summed sales amounts bucketed by calendar position.
// Keys are time.Month (1-12), time.Weekday (0=Sunday) and hour of day (0-23).
// Buckets are sparse and not normalised.
type Seasonality struct {
	Monthly map[int]float64 `json:"monthly"`
	Weekly  map[int]float64 `json:"weekly"`
	Hourly  map[int]float64 `json:"hourly"`
}

// ExtractSeasonality buckets sales amounts by month, weekday and hour.
func ExtractSeasonality(sales []business.SalesRecord) Seasonality {
	s := Seasonality{
		Monthly: make(map[int]float64),
		Weekly:  make(map[int]float64),
		Hourly:  make(map[int]float64),
	}
	for _, sale := range sales {
		s.Monthly[int(sale.Date.Month())] += sale.Amount
		s.Weekly[int(sale.Date.Weekday())] += sale.Amount
		s.Hourly[sale.Date.Hour()] += sale.Amount
	}
	return s
}

// IsEmpty reports whether no sales were bucketed.
func (s Seasonality) IsEmpty() bool {
	return len(s.Monthly) == 0 && len(s.Weekly) == 0 && len(s.Hourly) == 0
}

// WeekendLift compares the mean weekend-day bucket to the mean weekday bucket.
// It returns 0 when either side has no data.
func (s Seasonality) WeekendLift() float64 {
	var weekend, weekday []float64
	for day, amount := range s.Weekly {
		if time.Weekday(day) == time.Saturday || time.Weekday(day) == time.Sunday {
			weekend = append(weekend, amount)
		} else {
			weekday = append(weekday, amount)
		}
	}
	if len(weekend) == 0 || len(weekday) == 0 {
		return 0
	}
	wd := Mean(weekday)
	if wd == 0 {
		return 0
	}
	return Mean(weekend)/wd - 1
}

// PeakHours returns up to n hours with the highest summed amount, highest first.
func (s Seasonality) PeakHours(n int) []int {
	hours := make([]int, 0, len(s.Hourly))
	for h := range s.Hourly {
		hours = append(hours, h)
	}
	slices.SortFunc(hours, func(a, b int) int {
		if s.Hourly[a] != s.Hourly[b] {
			if s.Hourly[a] > s.Hourly[b] {
				return -1
			}
			return 1
		}
		return a - b
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}
