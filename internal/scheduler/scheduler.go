package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gamelog/ingestion/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning is returned when a refresh is requested while one is in progress
var ErrAlreadyRunning = errors.New("refresh already running")

// Task is one step of the nightly refresh
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs the nightly refresh: game enrichment, then Statcast
// ingestion, then the JSON export. Steps run in order and a failed step does
// not stop the ones after it.
type Scheduler struct {
	schedule string
	tasks    []Task
	cron     *cron.Cron
	running  sync.Mutex
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(schedule string, tasks ...Task) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		tasks:    tasks,
		cron:     cron.New(),
	}
}

// Start registers the nightly refresh and starts the cron loop. With
// runNow, one refresh is also started immediately in the background.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.schedule, func() {
		log.Info().Msg("Running nightly refresh...")
		if err := s.RunNow(ctx); err != nil {
			log.Error().Err(err).Msg("Nightly refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.schedule).
		Int("tasks", len(s.tasks)).
		Msg("Nightly refresh scheduled")

	if runNow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Info().Msg("Running initial sync...")
			if err := s.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("Initial sync failed")
			}
		}()
	}

	return nil
}

// Stop stops the cron loop and waits for a running refresh to return
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()

	log.Info().Msg("Scheduler stopped")
}

// RunNow runs every task once, in order
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.running.TryLock() {
		return ErrAlreadyRunning
	}
	defer s.running.Unlock()

	start := time.Now()
	var errs []error
	for _, task := range s.tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		taskStart := time.Now()
		if err := task.Run(ctx); err != nil {
			metrics.RecordError("scheduler", task.Name)
			log.Error().
				Err(err).
				Str("task", task.Name).
				Dur("duration", time.Since(taskStart)).
				Msg("Refresh task failed")
			errs = append(errs, fmt.Errorf("%s: %w", task.Name, err))
			continue
		}

		log.Info().
			Str("task", task.Name).
			Dur("duration", time.Since(taskStart)).
			Msg("Refresh task complete")
	}

	status := "success"
	if len(errs) > 0 {
		status = "error"
	}
	metrics.RecordSync("nightly", status, time.Since(start).Seconds())

	return errors.Join(errs...)
}
