package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a periodic housekeeping task. Run reports how many items it touched.
type Job struct {
	Name string
	Spec string
	Run  func() int
}

// Scheduler runs housekeeping jobs on cron schedules.
type Scheduler struct {
	Cron *cron.Cron
	jobs []Job
	log  *zap.Logger
}

// New creates a Scheduler. Specs use the standard five-field syntax or
// descriptors such as "@every 5m".
func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron: cron.New(),
		log:  log,
	}
}

// RegisterAll adds every job; jobs with an empty spec are skipped.
func (s *Scheduler) RegisterAll(jobs ...Job) error {
	for _, j := range jobs {
		if j.Spec == "" {
			s.log.Info("job disabled", zap.String("job", j.Name))
			continue
		}
		if _, err := s.Cron.AddFunc(j.Spec, s.wrap(j)); err != nil {
			return fmt.Errorf("register %s task: %w", j.Name, err)
		}
		s.jobs = append(s.jobs, j)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.Cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// RunNow executes every registered job once, in registration order.
func (s *Scheduler) RunNow() {
	for _, j := range s.jobs {
		s.wrap(j)()
	}
}

func (s *Scheduler) wrap(j Job) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("job panicked", zap.String("job", j.Name), zap.Any("panic", r))
			}
		}()
		n := j.Run()
		s.log.Debug("job finished", zap.String("job", j.Name), zap.Int("removed", n))
	}
}
