package listview

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a function on a fixed interval until the returned cancel
// func is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// CronScheduler schedules interval jobs on a shared cron runner. Intervals
// are rounded down to whole seconds, with a one second minimum.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewCronScheduler builds a scheduler; the runner starts with the first job.
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{cron: cron.New()}
}

// Every schedules fn every interval.
func (s *CronScheduler) Every(interval time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(fn))
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	return func() {
		s.cron.Remove(id)
	}
}

// Stop halts the runner and waits for running jobs to finish.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
}
