package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. home is the
// server-side locator, consulted only by locate requests that set useHome;
// it may be nil. A locate request that reports nothing fails as unsupported
// rather than falling back to home.
func RegisterRoutes(app *fiber.App, orch *weather.Orchestrator, home weather.Locator) {
	v1 := app.Group("/api/v1")

	v1.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(orch.Snapshot())
	})

	v1.Post("/session/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(orch.Search(c.UserContext(), req.City))
	})

	v1.Post("/session/locate", func(c *fiber.Ctx) error {
		var req locateRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(orch.Locate(c.UserContext(), req.locator(home)))
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := locReq.toLocation()
		view, err := orch.Latest(loc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, weather.ErrNoHistory) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(view)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		views, err := orch.Range(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, weather.ErrNoHistory) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"from":     req.From,
			"to":       req.To,
			"views":    views,
		})
	})
}

// searchRequest is the body (or query) of a manual search.
type searchRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

func (r *searchRequest) bind(c *fiber.Ctx) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(r); err != nil {
			return errors.New("invalid request body")
		}
	}
	if r.City == "" {
		r.City = c.Query("city")
	}
	r.City = strings.TrimSpace(r.City)
	return validate.Struct(r)
}

// locateRequest carries what the client's geolocation produced: a position,
// an error kind, or an explicit request for the server-side locator.
type locateRequest struct {
	Lat     *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon     *float64 `json:"lon" validate:"omitempty,longitude"`
	Error   string   `json:"error" validate:"omitempty,oneof=denied unsupported unavailable"`
	UseHome bool     `json:"useHome"`
}

func (r *locateRequest) bind(c *fiber.Ctx) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(r); err != nil {
			return errors.New("invalid request body")
		}
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return errors.New("lat and lon must be given together")
	}
	if r.UseHome && (r.Lat != nil || r.Error != "") {
		return errors.New("useHome cannot be combined with a position or an error")
	}
	return validate.Struct(r)
}

func (r locateRequest) locator(home weather.Locator) weather.Locator {
	switch r.Error {
	case "denied":
		return failingLocator(weather.ErrLocationDenied)
	case "unavailable":
		return failingLocator(weather.ErrLocationUnavailable)
	case "unsupported":
		return nil
	}
	if r.Lat != nil && r.Lon != nil {
		return weather.FixedLocator{Lat: *r.Lat, Lon: *r.Lon}
	}
	if r.UseHome {
		return home
	}
	return nil
}

func failingLocator(err error) weather.Locator {
	return weather.LocatorFunc(func(context.Context) (weather.Coordinates, error) {
		return weather.Coordinates{}, err
	})
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
