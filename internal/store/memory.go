package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no view has been recorded for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// viewHistory holds the Ready views of one location sorted by FetchedAt.
type viewHistory struct {
	views []weather.WeatherView
}

// insert places v after every view fetched at or before it. A refresh
// that started earlier can settle later, so appends are not always ordered.
func (h *viewHistory) insert(v weather.WeatherView) {
	i := sort.Search(len(h.views), func(i int) bool {
		return h.views[i].FetchedAt.After(v.FetchedAt)
	})
	h.views = append(h.views, weather.WeatherView{})
	copy(h.views[i+1:], h.views[i:])
	h.views[i] = v
}

// since returns the index of the first view fetched at or after t.
func (h *viewHistory) since(t time.Time) int {
	return sort.Search(len(h.views), func(i int) bool {
		return !h.views[i].FetchedAt.Before(t)
	})
}

// MemoryStore is a concurrency-safe in-memory history of session results,
// keyed by weather.Location.Key. Views are copied on the way in and out.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*viewHistory

	maxHistory int           // max number of views per location
	maxAge     time.Duration // optional max age for views

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*viewHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveView records a Ready view for a location and enforces retention.
func (s *MemoryStore) SaveView(loc weather.Location, view weather.WeatherView) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &viewHistory{}
		s.data[key] = history
	}
	history.insert(view.Clone())

	if s.maxHistory > 0 && len(history.views) > s.maxHistory {
		history.views = history.views[len(history.views)-s.maxHistory:]
	}
	if s.maxAge > 0 {
		history.views = history.views[history.since(s.cutoff()):]
	}
	if len(history.views) == 0 {
		delete(s.data, key)
	}
}

// GetLatest returns the most recent view for a location that is still
// within the retention age.
func (s *MemoryStore) GetLatest(loc weather.Location) (weather.WeatherView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := s.live(loc)
	if len(views) == 0 {
		return weather.WeatherView{}, ErrNotFound
	}
	return views[len(views)-1].Clone(), nil
}

// GetRange returns all views for a location fetched between from and to (inclusive).
func (s *MemoryStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.WeatherView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := s.live(loc)
	h := viewHistory{views: views}
	lo := h.since(from)
	hi := sort.Search(len(views), func(i int) bool {
		return views[i].FetchedAt.After(to)
	})
	if lo >= hi {
		return nil, ErrNotFound
	}

	result := make([]weather.WeatherView, 0, hi-lo)
	for _, v := range views[lo:hi] {
		result = append(result, v.Clone())
	}
	return result, nil
}

// live returns the views of loc that have not aged out. Age retention is
// also applied on reads, since a location is only pruned when it is saved
// again. s.mu must be held.
func (s *MemoryStore) live(loc weather.Location) []weather.WeatherView {
	history, ok := s.data[loc.Key()]
	if !ok {
		return nil
	}
	if s.maxAge <= 0 {
		return history.views
	}
	return history.views[history.since(s.cutoff()):]
}

func (s *MemoryStore) cutoff() time.Time {
	return s.now().Add(-s.maxAge)
}
