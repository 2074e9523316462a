package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/blocklist-crawler/crawler/internal/crawler"
	"github.com/blocklist-crawler/crawler/internal/source"
	"github.com/blocklist-crawler/crawler/pkg/logger"
)

var ErrNotStarted = errors.New("scheduler not started")

type Runner interface {
	RunAll(ctx context.Context) map[source.Source]crawler.Outcome
}

type Scheduler struct {
	scheduler  gocron.Scheduler
	runner     Runner
	interval   time.Duration
	runOnStart bool
	job        gocron.Job
	log        zerolog.Logger
}

func New(runner Runner, interval time.Duration, runOnStart bool, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		log:        logger.Component("scheduler"),
	}, nil
}

// Start registers the crawl job. Runs never overlap: a trigger that fires
// while a crawl is still going is dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	opts := []gocron.JobOption{
		gocron.WithName("crawl"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.runOnStart {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.run(ctx)
		}),
		opts...,
	)
	if err != nil {
		return err
	}
	s.job = job

	s.scheduler.Start()
	s.log.Info().Dur("interval", s.interval).Bool("run_on_start", s.runOnStart).Msg("scheduler started")

	return nil
}

// RunNow triggers the crawl job outside its schedule.
func (s *Scheduler) RunNow() error {
	if s.job == nil {
		return ErrNotStarted
	}
	s.log.Info().Msg("crawl triggered manually")
	return s.job.RunNow()
}

// NextRun returns when the crawl job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	if s.job == nil {
		return time.Time{}, ErrNotStarted
	}
	return s.job.NextRun()
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.log.Error().Err(err).Msg("scheduler shutdown error")
		return
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.log.Info().Msg("starting scheduled crawl")
	results := s.runner.RunAll(ctx)

	ev := s.log.Info()
	for src, outcome := range results {
		ev = ev.Str(src.String(), string(outcome))
	}
	ev.Msg("scheduled crawl finished")
}
