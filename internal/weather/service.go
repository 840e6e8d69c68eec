package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage of the current session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// ErrNoHistory is returned by history reads when the orchestrator has no store.
var ErrNoHistory = errors.New("history store not configured")

// Snapshot is a read-only copy of the session state. View is set only when
// State is StateReady; Reason and Step only when State is StateFailed.
type Snapshot struct {
	Generation uint64        `json:"generation"`
	SessionID  string        `json:"sessionId,omitempty"`
	State      State         `json:"state"`
	Query      LocationQuery `json:"query"`
	View       *WeatherView  `json:"view,omitempty"`
	Step       Step          `json:"step,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Err        error         `json:"-"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Orchestrator drives weather sessions from trigger to a terminal state.
//
// Sessions may overlap (several HTTP requests, the refresh scheduler). Each
// one takes a new generation and cancels the previous one; only the newest
// generation may publish Ready or Failed.
type Orchestrator struct {
	source       Source
	store        Store
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	current Snapshot
	cancel  context.CancelFunc
	last    *LocationQuery
}

// NewOrchestrator creates an idle Orchestrator. store may be nil, in which
// case Ready views are not recorded. fetchTimeout bounds each upstream call
// (0 disables the per-call timeout).
func NewOrchestrator(source Source, store Store, fetchTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		source:       source,
		store:        store,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		current: Snapshot{
			State:     StateIdle,
			UpdatedAt: time.Now().UTC(),
		},
	}
}

// Snapshot returns the latest session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Search starts a session for a typed city name and waits for it to settle.
func (o *Orchestrator) Search(ctx context.Context, city string) Snapshot {
	return o.Run(ctx, CityQuery(city))
}

// Run starts a session for q and waits for it to settle. The returned
// snapshot is the orchestrator's state afterwards, which belongs to a newer
// session if this one was superseded meanwhile.
func (o *Orchestrator) Run(ctx context.Context, q LocationQuery) Snapshot {
	o.mu.Lock()
	ctx, gen := o.beginLocked(ctx, q)
	o.mu.Unlock()

	view, err := o.fetch(ctx, q)
	return o.finish(gen, q, view, err, false)
}

// Locate starts a geolocated session. The locator is consulted exactly
// once; if it fails the session fails, there is no fallback city.
func (o *Orchestrator) Locate(ctx context.Context, locator Locator) Snapshot {
	o.mu.Lock()
	ctx, gen := o.beginLocked(ctx, LocationQuery{})
	o.mu.Unlock()

	coords, err := o.locate(ctx, locator)
	if err != nil {
		return o.finish(gen, LocationQuery{}, nil, err, true)
	}

	q := CoordinatesQuery(coords)
	view, err := o.fetch(ctx, q)
	return o.finish(gen, q, view, err, true)
}

// Refresh re-runs the query of the current Ready session. A geolocated
// session is refreshed by its resolved coordinates; the locator is not
// consulted again. A session that is loading or failed is left alone, so a
// refresh never replaces the outcome of the latest query.
func (o *Orchestrator) Refresh(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	if o.last == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}
	if o.current.State != StateReady {
		snap := o.current
		o.mu.Unlock()
		return snap, nil
	}
	q := *o.last
	ctx, gen := o.beginLocked(ctx, q)
	o.mu.Unlock()

	view, err := o.fetch(ctx, q)
	return o.finish(gen, q, view, err, false), nil
}

// Latest returns the most recent Ready view recorded for loc.
func (o *Orchestrator) Latest(loc Location) (WeatherView, error) {
	if o.store == nil {
		return WeatherView{}, ErrNoHistory
	}
	return o.store.GetLatest(loc)
}

// Range returns the Ready views recorded for loc between from and to.
func (o *Orchestrator) Range(loc Location, from, to time.Time) ([]WeatherView, error) {
	if o.store == nil {
		return nil, ErrNoHistory
	}
	return o.store.GetRange(loc, from, to)
}

// beginLocked moves to Loading under a new generation. o.mu must be held.
func (o *Orchestrator) beginLocked(parent context.Context, q LocationQuery) (context.Context, uint64) {
	if o.cancel != nil {
		o.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	o.cancel = cancel

	gen := o.current.Generation + 1
	o.current = Snapshot{
		Generation: gen,
		SessionID:  uuid.NewString(),
		State:      StateLoading,
		Query:      q,
		UpdatedAt:  o.now().UTC(),
	}
	log.Printf("DEBUG: session %d started for %q", gen, q.String())
	return ctx, gen
}

// finish publishes the terminal state of generation gen unless a newer
// session has started since.
func (o *Orchestrator) finish(gen uint64, q LocationQuery, view *WeatherView, err error, geolocated bool) Snapshot {
	o.mu.Lock()
	if gen != o.current.Generation {
		snap := o.current
		o.mu.Unlock()
		log.Printf("DEBUG: session %d superseded by %d; result dropped", gen, snap.Generation)
		return snap
	}

	o.cancel()
	o.cancel = nil

	next := o.current
	next.Query = q
	next.UpdatedAt = o.now().UTC()

	if err != nil {
		next.State = StateFailed
		next.View = nil
		next.Err = err
		next.Reason = reason(err, q, geolocated)
		var se *SessionError
		if errors.As(err, &se) {
			next.Step = se.Step
		}
	} else {
		next.State = StateReady
		next.View = view
		last := q
		o.last = &last
	}
	o.current = next
	o.mu.Unlock()

	switch {
	case err == nil:
		log.Printf("INFO: session %d ready for %s", gen, view.Current.Location.Key())
		if o.store != nil {
			o.store.SaveView(view.Current.Location, *view)
		}
	case errors.Is(err, ErrMalformedSample):
		log.Printf("ERROR: session %d: forecast data violates aggregator contract: %v", gen, err)
	default:
		log.Printf("INFO: session %d failed: %v", gen, err)
	}
	return next
}

func (o *Orchestrator) locate(ctx context.Context, locator Locator) (Coordinates, error) {
	if locator == nil {
		return Coordinates{}, &SessionError{Step: StepLocation, Kind: ErrLocationUnavailable, Err: ErrLocationUnsupported}
	}
	coords, err := withTimeout(ctx, o.fetchTimeout, locator.Locate)
	if err != nil {
		return Coordinates{}, &SessionError{Step: StepLocation, Kind: ErrLocationUnavailable, Err: err}
	}
	return coords, nil
}

// fetch runs the sequential chain current -> forecast -> aggregate -> air
// quality. Only the air-quality step may fail without failing the session.
func (o *Orchestrator) fetch(ctx context.Context, q LocationQuery) (*WeatherView, error) {
	if err := q.Validate(); err != nil {
		return nil, &SessionError{Step: StepCurrent, Kind: ErrCityNotFound, Err: err}
	}

	current, err := withTimeout(ctx, o.fetchTimeout, func(ctx context.Context) (CurrentConditions, error) {
		if q.IsCoordinates() {
			return o.source.CurrentByCoordinates(ctx, *q.Coordinates)
		}
		return o.source.CurrentByCity(ctx, q.City)
	})
	if err != nil {
		return nil, classifyFetch(StepCurrent, err)
	}

	// A coordinates query forecasts by the city name the source resolved.
	city := q.City
	if q.IsCoordinates() {
		city = current.Location.City
	}
	if city == "" {
		return nil, classifyFetch(StepForecast, fmt.Errorf("%w: current weather returned no city name", ErrCityNotFound))
	}

	samples, err := withTimeout(ctx, o.fetchTimeout, func(ctx context.Context) ([]Sample, error) {
		return o.source.ForecastByCity(ctx, city)
	})
	if err != nil {
		return nil, classifyFetch(StepForecast, err)
	}

	days, err := AggregateForecast(samples, o.now().UTC())
	if err != nil {
		return nil, &SessionError{Step: StepAggregate, Kind: ErrMalformedSample, Err: err}
	}

	view := &WeatherView{
		Current:   current,
		Forecast:  days,
		FetchedAt: o.now().UTC(),
	}

	aqAt := current.Coordinates
	if q.IsCoordinates() {
		aqAt = *q.Coordinates
	}
	aq, err := withTimeout(ctx, o.fetchTimeout, func(ctx context.Context) (AirQuality, error) {
		return o.source.AirQuality(ctx, aqAt)
	})
	if err != nil {
		log.Printf("INFO: %v", &SessionError{Step: StepAirQuality, Kind: ErrAirQualityUnavailable, Err: err})
	} else {
		view.AirQuality = &aq
	}

	return view, nil
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}
