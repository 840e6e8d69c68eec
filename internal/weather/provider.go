package weather

import (
	"context"
	"time"
)

// Source abstracts the weather API a session talks to (e.g. OpenWeatherMap).
// Lookups that match no location return an error wrapping ErrCityNotFound.
type Source interface {
	CurrentByCity(ctx context.Context, city string) (CurrentConditions, error)
	CurrentByCoordinates(ctx context.Context, c Coordinates) (CurrentConditions, error)
	ForecastByCity(ctx context.Context, city string) ([]Sample, error)
	AirQuality(ctx context.Context, c Coordinates) (AirQuality, error)
}

// Locator resolves the user's position. It is consulted once per geolocated session.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (Coordinates, error) {
	return f(ctx)
}

// FixedLocator reports a position that was already obtained elsewhere,
// typically by the client device.
type FixedLocator Coordinates

func (l FixedLocator) Locate(context.Context) (Coordinates, error) {
	return Coordinates(l), nil
}

// Store is the contract the in-memory history store must satisfy.
type Store interface {
	SaveView(loc Location, view WeatherView)
	GetLatest(loc Location) (WeatherView, error)
	GetRange(loc Location, from, to time.Time) ([]WeatherView, error)
}
