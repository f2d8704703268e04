package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// JobTimeout bounds a single job run
const JobTimeout = 30 * time.Second

// Scheduler manages periodic tasks
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	logger *zap.Logger

	mu   sync.Mutex
	base context.Context
}

// New creates a new scheduler in the local timezone. Overlapping runs of
// the same job are skipped.
func New(logger *zap.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})),
	)

	return &Scheduler{
		cron:   c,
		jobs:   make(map[string]cron.EntryID),
		logger: logger,
		base:   context.Background(),
	}
}

// AddJob adds a job with a cron schedule.
// schedule format: "0 7 * * *" (at 7:00 AM daily) or "@every 5s"
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(s.baseContext(), JobTimeout)
		defer cancel()

		s.logger.Debug("Starting job", zap.String("job", name))
		start := time.Now()

		if err := job(ctx); err != nil {
			s.logger.Warn("Job failed", zap.String("job", name), zap.Error(err))
		} else {
			s.logger.Debug("Job completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("Added job", zap.String("job", name), zap.String("schedule", schedule))

	return nil
}

// AddHeartbeat adds a job that runs every interval. cron schedules have
// one-second resolution, so shorter intervals are rejected.
func (s *Scheduler) AddHeartbeat(name string, interval time.Duration, job Job) error {
	if interval < time.Second {
		return fmt.Errorf("heartbeat interval %s is below one second", interval)
	}
	return s.AddJob(name, "@every "+interval.String(), job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("Removed job", zap.String("job", name))
	}
}

// Start begins running scheduled jobs. Job contexts derive from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow runs job once, outside the schedule, bounded by JobTimeout.
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(s.baseContext(), JobTimeout)
	defer cancel()

	s.logger.Info("Running job now", zap.String("job", name))
	return job(ctx)
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
