package weather

import (
	"errors"
	"math"
	"testing"
	"time"
)

func temp(v float64) *float64 { return &v }

func sample(ts string, t float64, icon string) Sample {
	return Sample{Time: ts, Temperature: temp(t), Icon: icon, Condition: "Clear"}
}

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAggregateForecastSingleDay(t *testing.T) {
	samples := []Sample{
		sample("2024-01-02 00:00:00", 5, "01d"),
		sample("2024-01-02 03:00:00", 8, "02d"),
	}

	got, err := AggregateForecast(samples, day("2024-01-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 day, got %d", len(got))
	}
	d := got[0]
	if d.Date != "2024-01-02" || *d.MaxTemp != 8 || *d.MinTemp != 5 || d.Icon != "01d" {
		t.Fatalf("unexpected summary: date=%s max=%v min=%v icon=%s", d.Date, *d.MaxTemp, *d.MinTemp, d.Icon)
	}
}

func TestAggregateForecastMinMax(t *testing.T) {
	samples := []Sample{
		sample("2024-03-10 06:00:00", 3.0, "10d"),
		sample("2024-03-10 09:00:00", 7.2, "04d"),
		sample("2024-03-10 12:00:00", -1.0, "13d"),
	}

	got, err := AggregateForecast(samples, day("2024-03-09"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got[0].MaxTemp != 7.2 {
		t.Fatalf("expected max 7.2, got %v", *got[0].MaxTemp)
	}
	if *got[0].MinTemp != -1.0 {
		t.Fatalf("expected min -1.0, got %v", *got[0].MinTemp)
	}
	if got[0].Icon != "10d" {
		t.Fatalf("expected icon of first sample, got %s", got[0].Icon)
	}
}

func TestAggregateForecastEmpty(t *testing.T) {
	got, err := AggregateForecast(nil, day("2024-01-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no days, got %d", len(got))
	}
}

func TestAggregateForecastExcludesTodayAndTruncates(t *testing.T) {
	var samples []Sample
	start := day("2024-05-01")
	// 7 days, 8 samples each, starting today.
	for i := 0; i < 7*8; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		samples = append(samples, sample(ts.Format("2006-01-02 15:04:05"), float64(i), "01d"))
	}

	got, err := AggregateForecast(samples, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != MaxForecastDays {
		t.Fatalf("expected %d days, got %d", MaxForecastDays, len(got))
	}
	for i, d := range got {
		if d.Date == "2024-05-01" {
			t.Fatalf("today must not appear in output")
		}
		if i > 0 && got[i-1].Date >= d.Date {
			t.Fatalf("dates not strictly ascending: %s then %s", got[i-1].Date, d.Date)
		}
	}
	if got[0].Date != "2024-05-02" || got[4].Date != "2024-05-06" {
		t.Fatalf("unexpected range %s..%s", got[0].Date, got[4].Date)
	}
	// Day 2024-05-02 holds samples 8..15.
	if *got[0].MinTemp != 8 || *got[0].MaxTemp != 15 {
		t.Fatalf("unexpected extremes for first day: min=%v max=%v", *got[0].MinTemp, *got[0].MaxTemp)
	}
}

func TestAggregateForecastFewerThanFiveDays(t *testing.T) {
	samples := []Sample{
		sample("2024-01-01 21:00:00", 1, "01n"),
		sample("2024-01-02 00:00:00", 2, "02n"),
		sample("2024-01-03 00:00:00", 3, "03n"),
	}

	got, err := AggregateForecast(samples, day("2024-01-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
}

func TestAggregateForecastGroupsByDateSubstring(t *testing.T) {
	// No timezone conversion: the offset in the ISO form is ignored for grouping.
	samples := []Sample{
		sample("2024-10-27T23:00:00+02:00", 10, "01n"),
		sample("2024-10-28 00:00:00", 4, "02n"),
	}

	got, err := AggregateForecast(samples, day("2024-10-26"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-10-27" || got[1].Date != "2024-10-28" {
		t.Fatalf("unexpected grouping: %+v", got)
	}
}

func TestAggregateForecastMalformed(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
	}{
		{"missing temperature", Sample{Time: "2024-01-02 00:00:00", Icon: "01d"}},
		{"nan temperature", Sample{Time: "2024-01-02 00:00:00", Temperature: temp(math.NaN()), Icon: "01d"}},
		{"missing icon", Sample{Time: "2024-01-02 00:00:00", Temperature: temp(1)}},
		{"bad timestamp", Sample{Time: "yesterday", Temperature: temp(1), Icon: "01d"}},
		{"empty timestamp", Sample{Temperature: temp(1), Icon: "01d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := []Sample{sample("2024-01-02 03:00:00", 4, "01d"), tt.sample}
			got, err := AggregateForecast(samples, day("2024-01-01"))
			if !errors.Is(err, ErrMalformedSample) {
				t.Fatalf("expected ErrMalformedSample, got %v", err)
			}
			if got != nil {
				t.Fatalf("expected no partial output, got %+v", got)
			}
		})
	}
}
