package weather

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxForecastDays bounds the number of DaySummary entries AggregateForecast returns.
const MaxForecastDays = 5

// AggregateForecast buckets time-ordered 3-hour samples into daily summaries.
//
// Samples are grouped by the date part of Sample.Time as provided by the
// source; no timezone conversion happens here. The group for today is
// dropped, groups keep first-encounter order and the icon of each day is the
// icon of its first sample. At most MaxForecastDays summaries are returned.
//
// A sample with an unparsable date, a missing or non-finite temperature or an
// empty icon makes the whole call fail with ErrMalformedSample.
func AggregateForecast(samples []Sample, today time.Time) ([]DaySummary, error) {
	todayKey := today.Format(DateLayout)

	var (
		order  []string
		groups = make(map[string][]float64)
		icons  = make(map[string]string)
	)

	for i, s := range samples {
		day, err := sampleDay(s)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d: %v", ErrMalformedSample, i, err)
		}
		if s.Temperature == nil {
			return nil, fmt.Errorf("%w: sample %d (%s): missing temperature", ErrMalformedSample, i, s.Time)
		}
		temp := *s.Temperature
		if math.IsNaN(temp) || math.IsInf(temp, 0) {
			return nil, fmt.Errorf("%w: sample %d (%s): temperature is not finite", ErrMalformedSample, i, s.Time)
		}
		if s.Icon == "" {
			return nil, fmt.Errorf("%w: sample %d (%s): missing icon", ErrMalformedSample, i, s.Time)
		}

		if day == todayKey {
			continue
		}
		if _, seen := groups[day]; !seen {
			order = append(order, day)
			icons[day] = s.Icon
		}
		groups[day] = append(groups[day], temp)
	}

	if len(order) > MaxForecastDays {
		order = order[:MaxForecastDays]
	}

	out := make([]DaySummary, 0, len(order))
	for _, day := range order {
		maxT, minT := extremes(groups[day])
		out = append(out, DaySummary{
			Date:    day,
			MaxTemp: maxT,
			MinTemp: minT,
			Icon:    icons[day],
		})
	}
	return out, nil
}

// sampleDay returns the calendar-day key of a sample timestamp.
func sampleDay(s Sample) (string, error) {
	ts := strings.TrimSpace(s.Time)
	day, _, found := strings.Cut(ts, " ")
	if !found {
		day, _, _ = strings.Cut(ts, "T")
	}
	if _, err := time.Parse(DateLayout, day); err != nil {
		return "", fmt.Errorf("invalid timestamp %q", s.Time)
	}
	return day, nil
}

func extremes(temps []float64) (maxT, minT *float64) {
	if len(temps) == 0 {
		return nil, nil
	}
	hi, lo := temps[0], temps[0]
	for _, t := range temps[1:] {
		hi = math.Max(hi, t)
		lo = math.Min(lo, t)
	}
	return &hi, &lo
}
