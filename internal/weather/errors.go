package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationUnavailable is the kind of every location-resolution failure.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrLocationDenied means the user refused to share their position.
	ErrLocationDenied = fmt.Errorf("%w: permission denied", ErrLocationUnavailable)
	// ErrLocationUnsupported means no geolocation source exists.
	ErrLocationUnsupported = fmt.Errorf("%w: geolocation not supported", ErrLocationUnavailable)

	// ErrCityNotFound is returned by sources when the location lookup has no match.
	ErrCityNotFound = errors.New("city not found")
	// ErrFetchFailed covers any other failed current-weather or forecast call.
	ErrFetchFailed = errors.New("weather fetch failed")
	// ErrAirQualityUnavailable is non-fatal: the session still becomes ready.
	ErrAirQualityUnavailable = errors.New("air quality unavailable")
	// ErrMalformedSample signals forecast data that violates the aggregator's input contract.
	ErrMalformedSample = errors.New("malformed forecast sample")

	// ErrNoSession is returned by Refresh before any session has been started.
	ErrNoSession = errors.New("no session to refresh")
)

// Step names the stage of a session that failed.
type Step string

const (
	StepLocation   Step = "location"
	StepCurrent    Step = "current"
	StepForecast   Step = "forecast"
	StepAggregate  Step = "aggregate"
	StepAirQuality Step = "air_quality"
)

// SessionError records which step of a session failed, the taxonomy kind
// and the underlying cause. errors.Is matches both Kind and Err.
type SessionError struct {
	Step Step
	Kind error
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *SessionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// classifyFetch maps a source error for the current or forecast step to its taxonomy kind.
func classifyFetch(step Step, err error) *SessionError {
	kind := ErrFetchFailed
	if errors.Is(err, ErrCityNotFound) {
		kind = ErrCityNotFound
	}
	return &SessionError{Step: step, Kind: kind, Err: err}
}

// reason returns the user-facing message for a failed session.
func reason(err error, q LocationQuery, geolocated bool) string {
	switch {
	case errors.Is(err, ErrLocationUnsupported):
		return "Geolocation not supported"
	case errors.Is(err, ErrLocationUnavailable):
		return "Location permission denied or unavailable"
	case errors.Is(err, ErrMalformedSample):
		return "Forecast data could not be read"
	case geolocated || q.IsCoordinates():
		return "Could not fetch weather for your location"
	case errors.Is(err, ErrCityNotFound):
		return "City not found"
	default:
		return "Could not fetch weather data"
	}
}

func formatCoordinates(c Coordinates) string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}
