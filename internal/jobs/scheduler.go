// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one unit of periodic work.
type Job struct {
	Name     string
	Schedule string // cron spec or "@every <duration>"
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs Jobs on their schedules. Runs of the same job never
// overlap; a run that is still going when the next one fires is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

func NewScheduler(log logrus.FieldLogger) *Scheduler {
	log = log.WithField("component", "jobs")
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log}))),
		log:  log,
	}
}

// Add registers job. It fails on an invalid schedule.
func (s *Scheduler) Add(job Job) error {
	_, err := s.cron.AddFunc(job.Schedule, func() { s.runOnce(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	s.log.WithFields(logrus.Fields{"job": job.Name, "schedule": job.Schedule}).Info("job scheduled")
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	log := s.log.WithField("job", job.Name)
	if err := job.Run(ctx); err != nil {
		log.WithError(err).Warn("job failed")
		return
	}
	log.WithField("elapsed", time.Since(start)).Debug("job finished")
}

// RunNow runs every job immediately, in registration order.
func (s *Scheduler) RunNow(jobs ...Job) {
	for _, job := range jobs {
		s.runOnce(job)
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct{ log logrus.FieldLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(pairs(keysAndValues)).WithError(err).Error(msg)
}

func pairs(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
