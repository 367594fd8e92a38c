package scheduler

import (
	"context"
	"time"

	"NewsPulse/internal/ports"
)

// HourlyScheduler fires the job at the top of every hour inside the active
// window (startHour..endHour inclusive, in the configured location). Runs
// outside the window are skipped, not queued.
type HourlyScheduler struct {
	startHour int
	endHour   int
	location  *time.Location
	stop      chan struct{}
}

var _ ports.Scheduler = (*HourlyScheduler)(nil)

// NewHourlyScheduler builds a scheduler for the given active-hours window.
func NewHourlyScheduler(startHour, endHour int, loc *time.Location) *HourlyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &HourlyScheduler{startHour: startHour, endHour: endHour, location: loc}
}

// Start launches the ticking goroutine. The first tick is aligned to the next
// top of the hour; there is no immediate run on start.
func (s *HourlyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		for {
			now := time.Now().In(s.location)
			next := now.Truncate(time.Hour).Add(time.Hour)
			timer := time.NewTimer(next.Sub(now))

			select {
			case t := <-timer.C:
				if s.inWindow(t.In(s.location)) {
					job(t)
				}
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticking goroutine.
func (s *HourlyScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}

func (s *HourlyScheduler) inWindow(t time.Time) bool {
	hour := t.Hour()
	return hour >= s.startHour && hour <= s.endHour
}
