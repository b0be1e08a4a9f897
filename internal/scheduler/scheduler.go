// internal/scheduler/scheduler.go
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/unclebandit/mailpacer-backend/internal/model"
)

// Clock abstracts timer creation so the scheduler can be driven by a
// virtual clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a one-shot timer handle.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns a Clock backed by wall-clock timers.
func RealClock() Clock { return realClock{} }

// RunFunc fires one follow-up step of a campaign and returns the fresh
// session id of the resulting delivery run.
type RunFunc func(campaign *model.Campaign, step model.Step) string

// Scheduler arms one-shot timers for the follow-up steps of a multi-step
// campaign. Timers live in the process only: a restart loses every pending
// follow-up.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	run    RunFunc
	timers map[string][]Timer // keyed by campaign id
}

func New(clock Clock, run RunFunc) *Scheduler {
	return &Scheduler{
		clock:  clock,
		run:    run,
		timers: make(map[string][]Timer),
	}
}

// Arm schedules every step with index > 1 at its day offset from now. Each
// fired step is an independent delivery run with its own session.
func (s *Scheduler) Arm(c *model.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, step := range c.Steps {
		if step.Index <= 1 {
			continue
		}

		step := step
		delay := time.Duration(step.DelayDays) * 24 * time.Hour
		fireAt := s.clock.Now().Add(delay)

		t := s.clock.AfterFunc(delay, func() {
			sessionID := s.run(c, step)
			log.Printf("⏰ Fired step %d of campaign %s (session %s)", step.Index, c.ID, sessionID)
		})
		s.timers[c.ID] = append(s.timers[c.ID], t)

		log.Printf("📅 Armed step %d of campaign %s for %s", step.Index, c.ID, fireAt.Format(time.RFC3339))
	}
}

// Disarm stops every pending timer of the campaign.
func (s *Scheduler) Disarm(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.timers[campaignID] {
		t.Stop()
	}
	delete(s.timers, campaignID)
}

// Pending reports how many timers are still registered for the campaign.
func (s *Scheduler) Pending(campaignID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[campaignID])
}
