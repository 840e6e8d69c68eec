package weather

import (
	"errors"
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// DateLayout is the calendar-day format used for forecast grouping and DaySummary dates.
const DateLayout = "2006-01-02"

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location represents a resolved place as reported by the weather source.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical, case-insensitive key for indexing this location in stores.
func (l Location) Key() string {
	return strings.ToLower(strings.TrimSpace(l.City)) + ":" + strings.ToLower(strings.TrimSpace(l.Country))
}

// LocationQuery identifies what a session should fetch: either a city name
// or a pair of coordinates, never both.
type LocationQuery struct {
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// CityQuery builds a query for a typed city name.
func CityQuery(city string) LocationQuery {
	return LocationQuery{City: strings.TrimSpace(city)}
}

// CoordinatesQuery builds a query for a resolved position.
func CoordinatesQuery(c Coordinates) LocationQuery {
	return LocationQuery{Coordinates: &c}
}

// IsCoordinates reports whether the query is keyed by coordinates.
func (q LocationQuery) IsCoordinates() bool {
	return q.Coordinates != nil
}

// Validate checks that exactly one representation is active.
func (q LocationQuery) Validate() error {
	switch {
	case q.City == "" && q.Coordinates == nil:
		return errors.New("location query is empty")
	case q.City != "" && q.Coordinates != nil:
		return errors.New("location query must be either a city or coordinates")
	}
	return nil
}

func (q LocationQuery) String() string {
	if q.Coordinates != nil {
		return formatCoordinates(*q.Coordinates)
	}
	return q.City
}

// Sample is one 3-hour forecast entry. Time is kept exactly as the source
// provides it ("2006-01-02 15:04:05"); Temperature is nil when the source
// omitted it.
type Sample struct {
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature"`
	Icon        string   `json:"icon"`
	Condition   string   `json:"condition"`
}

// DaySummary aggregates the samples of one calendar day.
type DaySummary struct {
	Date    string   `json:"date"`
	MaxTemp *float64 `json:"maxTemp"`
	MinTemp *float64 `json:"minTemp"`
	Icon    string   `json:"icon"`
}

// CurrentConditions is the current-weather snapshot for a resolved location.
type CurrentConditions struct {
	Location    Location    `json:"location"`
	Coordinates Coordinates `json:"coordinates"`
	Temperature float64     `json:"temperatureC"`
	FeelsLike   float64     `json:"feelsLikeC"`
	TempMin     float64     `json:"tempMinC"`
	TempMax     float64     `json:"tempMaxC"`
	Humidity    float64     `json:"humidityPercent"`
	WindSpeed   float64     `json:"windSpeed"`
	Condition   Condition   `json:"condition"`
	Main        string      `json:"main"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	ObservedAt  time.Time   `json:"observedAt"` // always UTC
}

// AirQuality is the air-quality reading for a position. Index is the
// source's 1 (good) to 5 (very poor) scale.
type AirQuality struct {
	Index      int                `json:"aqi"`
	Components map[string]float64 `json:"components,omitempty"`
	MeasuredAt time.Time          `json:"measuredAt"`
}

// WeatherView is the merged result of one successful session.
// AirQuality is nil when the air-quality fetch failed.
type WeatherView struct {
	Current    CurrentConditions `json:"current"`
	Forecast   []DaySummary      `json:"forecast"`
	AirQuality *AirQuality       `json:"airQuality"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}

// Clone returns a deep copy of v, so a recorded view cannot be changed
// through a copy handed to a caller.
func (v WeatherView) Clone() WeatherView {
	out := v
	if v.Forecast != nil {
		out.Forecast = make([]DaySummary, len(v.Forecast))
		for i, d := range v.Forecast {
			d.MaxTemp = cloneFloat(d.MaxTemp)
			d.MinTemp = cloneFloat(d.MinTemp)
			out.Forecast[i] = d
		}
	}
	if v.AirQuality != nil {
		aq := *v.AirQuality
		if aq.Components != nil {
			aq.Components = make(map[string]float64, len(v.AirQuality.Components))
			for k, c := range v.AirQuality.Components {
				aq.Components[k] = c
			}
		}
		out.AirQuality = &aq
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
