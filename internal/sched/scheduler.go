package sched

import (
	"github.com/robfig/cron/v3"
	"github.com/yanun0323/logs"
)

// Job is a named background task.
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
}

// New creates a stopped scheduler. Schedules use six fields, seconds first.
func New() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithSeconds())}
}

// AddJob registers a job with a cron schedule, e.g. "0 0 17 * * MON-FRI".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			logs.Errorf("job %s failed: %v", job.Name(), err)
			return
		}
		logs.Debugf("job %s completed", job.Name())
	})
	return err
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	logs.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logs.Info("scheduler stopped")
}
