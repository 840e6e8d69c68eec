package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

/*
	OpenWeather response codes handled here:
	200  success
	400  bad request (e.g. empty q)        -> permanent
	401  invalid API key                   -> permanent
	404  city not found                    -> weather.ErrCityNotFound, permanent
	429  rate limited                      -> retried
	5xx  upstream failure                  -> retried
*/

// OpenWeatherProvider implements weather.Source for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   string
	httpCfg HTTPClientConfig

	// Air quality has its own breaker so its outages never block weather calls.
	circuit   *gobreaker.CircuitBreaker
	aqCircuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates a provider. Empty baseURL and units fall
// back to the public API and metric units.
func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL, units string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	if units == "" {
		units = "metric"
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		units:   units,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit:   newCircuitBreaker("openweather"),
		aqCircuit: newCircuitBreaker("openweather-air-quality"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owWeatherItem struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owCurrentPayload struct {
	Dt    int64  `json:"dt"`
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owWeatherItem `json:"weather"`
}

type owForecastPayload struct {
	List []struct {
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Weather []owWeatherItem `json:"weather"`
		DtTxt   string          `json:"dt_txt"`
	} `json:"list"`
}

type owAirPollutionPayload struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Aqi int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}

func (p *OpenWeatherProvider) CurrentByCity(ctx context.Context, city string) (weather.CurrentConditions, error) {
	values := url.Values{}
	values.Set("q", city)
	return p.current(ctx, values)
}

func (p *OpenWeatherProvider) CurrentByCoordinates(ctx context.Context, c weather.Coordinates) (weather.CurrentConditions, error) {
	values := url.Values{}
	setCoordinates(values, c)
	return p.current(ctx, values)
}

func (p *OpenWeatherProvider) current(ctx context.Context, values url.Values) (weather.CurrentConditions, error) {
	var payload owCurrentPayload
	if err := p.getJSON(ctx, p.circuit, "weather", values, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	out := weather.CurrentConditions{
		Location: weather.Location{
			City:    payload.Name,
			Country: payload.Sys.Country,
		},
		Coordinates: weather.Coordinates{Lat: payload.Coord.Lat, Lon: payload.Coord.Lon},
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		TempMin:     payload.Main.TempMin,
		TempMax:     payload.Main.TempMax,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Condition:   weather.ConditionUnknown,
		ObservedAt:  ts,
	}
	if len(payload.Weather) > 0 {
		w := payload.Weather[0]
		out.Main = w.Main
		out.Condition = mapOpenWeatherCondition(w.Main)
		out.Description = cases.Title(language.English).String(w.Description)
		out.Icon = w.Icon
	}
	return out, nil
}

// ForecastByCity returns the 3-hour samples of the 5-day forecast in source order.
// Missing fields stay missing so the aggregator can reject them.
func (p *OpenWeatherProvider) ForecastByCity(ctx context.Context, city string) ([]weather.Sample, error) {
	values := url.Values{}
	values.Set("q", city)

	var payload owForecastPayload
	if err := p.getJSON(ctx, p.circuit, "forecast", values, &payload); err != nil {
		return nil, err
	}

	samples := make([]weather.Sample, 0, len(payload.List))
	for _, item := range payload.List {
		s := weather.Sample{
			Time:        item.DtTxt,
			Temperature: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			s.Icon = item.Weather[0].Icon
			s.Condition = item.Weather[0].Main
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (p *OpenWeatherProvider) AirQuality(ctx context.Context, c weather.Coordinates) (weather.AirQuality, error) {
	values := url.Values{}
	setCoordinates(values, c)

	var payload owAirPollutionPayload
	if err := p.getJSON(ctx, p.aqCircuit, "air_pollution", values, &payload); err != nil {
		return weather.AirQuality{}, err
	}
	if len(payload.List) == 0 {
		return weather.AirQuality{}, fmt.Errorf("air_pollution: empty list")
	}

	entry := payload.List[0]
	if entry.Main.Aqi < 1 || entry.Main.Aqi > 5 {
		return weather.AirQuality{}, fmt.Errorf("air_pollution: aqi %d out of range", entry.Main.Aqi)
	}
	return weather.AirQuality{
		Index:      entry.Main.Aqi,
		Components: entry.Components,
		MeasuredAt: time.Unix(entry.Dt, 0).UTC(),
	}, nil
}

func (p *OpenWeatherProvider) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, endpoint string, values url.Values, target interface{}) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		q := url.Values{}
		for k, v := range values {
			q[k] = v
		}
		q.Set("appid", p.apiKey)
		q.Set("units", p.units)

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, q.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, cb, buildRequest)
	if err != nil {
		return fmt.Errorf("openweather %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("openweather %s: decode: %w", endpoint, err)
	}
	return nil
}

func setCoordinates(values url.Values, c weather.Coordinates) {
	values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch {
	case main == "Clear":
		return weather.ConditionClear
	case main == "Clouds":
		return weather.ConditionCloudy
	case main == "Rain" || main == "Drizzle":
		return weather.ConditionRain
	case main == "Snow":
		return weather.ConditionSnow
	case main == "Thunderstorm" || main == "Tornado" || main == "Squall":
		return weather.ConditionStorm
	case common.HasAny(main, "Mist", "Haze", "Fog", "Smoke", "Dust", "Sand", "Ash"):
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
