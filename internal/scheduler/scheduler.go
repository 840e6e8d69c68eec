package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Refresher re-runs the active weather session.
type Refresher interface {
	Refresh(ctx context.Context) (weather.Snapshot, error)
}

// Scheduler periodically refreshes the active weather session.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. timeout bounds one whole refresh (default 1m).
func New(interval, timeout time.Duration, refresher Refresher) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// A non-positive interval disables refreshing.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("INFO: scheduler: refresh disabled")
		return nil
	}

	// The first run happens one interval after start; the session is started by a user.
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	snap, err := s.refresher.Refresh(ctx)
	switch {
	case errors.Is(err, weather.ErrNoSession):
		log.Println("INFO: scheduler: no session yet; nothing to refresh")
	case err != nil:
		log.Printf("ERROR: scheduler: refresh failed: %v", err)
	default:
		log.Printf("DEBUG: scheduler: session %d is %s", snap.Generation, snap.State)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
