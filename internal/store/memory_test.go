package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var paris = weather.Location{City: "Paris", Country: "FR"}

func viewAt(ts time.Time, temp float64) weather.WeatherView {
	return weather.WeatherView{
		Current:   weather.CurrentConditions{Location: paris, Temperature: temp},
		FetchedAt: ts,
	}
}

func TestMemoryStoreLatestIsCaseInsensitive(t *testing.T) {
	s := NewMemoryStore(10, 0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s.SaveView(paris, viewAt(base, 1))
	s.SaveView(paris, viewAt(base.Add(time.Hour), 2))

	got, err := s.GetLatest(weather.Location{City: "paris", Country: "fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Current.Temperature != 2 {
		t.Fatalf("expected latest view, got temperature %v", got.Current.Temperature)
	}

	if _, err := s.GetLatest(weather.Location{City: "Berlin", Country: "DE"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.SaveView(paris, viewAt(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	got, err := s.GetRange(paris, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Current.Temperature != 3 || got[1].Current.Temperature != 4 {
		t.Fatalf("unexpected retained views: %+v", got)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.SaveView(paris, viewAt(now.Add(-3*time.Hour), 1))
	s.SaveView(paris, viewAt(now.Add(-10*time.Minute), 2))

	got, err := s.GetRange(paris, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Current.Temperature != 2 {
		t.Fatalf("expected only the fresh view, got %+v", got)
	}
}

func TestMemoryStoreRangeEmpty(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SaveView(paris, viewAt(base, 1))

	if _, err := s.GetRange(paris, base.Add(time.Hour), base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreKeepsFetchOrder(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s.SaveView(paris, viewAt(base.Add(2*time.Minute), 2))
	s.SaveView(paris, viewAt(base, 0))
	s.SaveView(paris, viewAt(base.Add(time.Minute), 1))

	got, err := s.GetRange(paris, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v.Current.Temperature != float64(i) {
			t.Fatalf("views out of order: %+v", got)
		}
	}

	latest, err := s.GetLatest(paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Current.Temperature != 2 {
		t.Fatalf("expected the latest fetched view, got temperature %v", latest.Current.Temperature)
	}
}

func TestMemoryStoreLatestAgesOut(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.SaveView(paris, viewAt(now.Add(-10*time.Minute), 1))

	now = now.Add(2 * time.Hour)
	if _, err := s.GetLatest(paris); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected aged-out view to be gone, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	high := 7.0
	v := viewAt(base, 1)
	v.Forecast = []weather.DaySummary{{Date: "2024-01-02", MaxTemp: &high, Icon: "01d"}}
	v.AirQuality = &weather.AirQuality{Index: 2, Components: map[string]float64{"pm2_5": 3}}
	s.SaveView(paris, v)

	high = 99
	v.AirQuality.Index = 5

	got, err := s.GetLatest(paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Forecast[0].MaxTemp != 7 || got.AirQuality.Index != 2 {
		t.Fatalf("stored view changed through the caller's copy: %+v", got)
	}

	got.AirQuality.Components["pm2_5"] = 100
	again, _ := s.GetLatest(paris)
	if again.AirQuality.Components["pm2_5"] != 3 {
		t.Fatalf("stored view changed through a returned copy")
	}
}
