package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// geocoder keeps its API key in a package variable.
var geocoderMu sync.Mutex

// GeocoderLocator resolves a configured home address to coordinates with the
// Google geocoding API. It stands in for device geolocation when the client
// does not report a position.
type GeocoderLocator struct {
	address geocoder.Address
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

// googleLookup geocodes with the package-level key of the geocoder library.
func googleLookup(apiKey string) func(geocoder.Address) (geocoder.Location, error) {
	return func(addr geocoder.Address) (geocoder.Location, error) {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()
		geocoder.ApiKey = apiKey
		return geocoder.Geocoding(addr)
	}
}

// NewGeocoderLocator returns nil when either the key or the city is missing,
// which the orchestrator treats as geolocation being unsupported.
func NewGeocoderLocator(apiKey, city, country string) *GeocoderLocator {
	if apiKey == "" || city == "" {
		return nil
	}
	return &GeocoderLocator{
		address: geocoder.Address{
			City:    city,
			Country: country,
		},
		lookup: googleLookup(apiKey),
	}
}

// Locate geocodes the address. The library has no context support, so the
// lookup runs in its own goroutine and is abandoned when ctx ends.
func (l *GeocoderLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)

	go func() {
		loc, err := l.lookup(l.address)
		ch <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, fmt.Errorf("%w: %w", weather.ErrLocationUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return weather.Coordinates{}, fmt.Errorf("%w: geocoding %s: %v", weather.ErrLocationUnavailable, l.address.City, r.err)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}
