// Package jobs runs periodic background maintenance: JWKS warmup and
// rate-limiter sweeps.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	jwtkit "github.com/watercooler-app/watercooler-api/jwt"
)

// Refresher forces a key-set fetch. *jwtkit.KeySetCache implements it.
type Refresher interface {
	Refresh(ctx context.Context) (jwtkit.Material, error)
}

// KeySetWarmup keeps the trust material fresh so requests rarely pay for a fetch.
// Failures are logged and never stop the scheduler.
type KeySetWarmup struct {
	src     Refresher
	log     logrus.FieldLogger
	timeout time.Duration
}

func NewKeySetWarmup(src Refresher, log logrus.FieldLogger) *KeySetWarmup {
	return &KeySetWarmup{src: src, log: log, timeout: jwtkit.DefaultFetchTimeout * 2}
}

// Run implements cron.Job.
func (j *KeySetWarmup) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	m, err := j.src.Refresh(ctx)
	if err != nil {
		j.log.WithError(err).Warn("jwks warmup failed")
		return
	}
	j.log.WithField("kids", m.KeyIDs()).Debug("jwks warmed")
}

// Sweeper drops idle state. The in-memory limiter implements it.
type Sweeper interface {
	Sweep()
}

type sweepJob struct{ s Sweeper }

func (j sweepJob) Run() { j.s.Sweep() }

// SweepJob adapts a Sweeper to cron.Job.
func SweepJob(s Sweeper) cron.Job { return sweepJob{s: s} }

// Scheduler wraps a cron runner with logrus logging, panic recovery and
// overlap protection.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

func NewScheduler(log logrus.FieldLogger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Add schedules job on spec (standard 5-field cron or "@every 5m").
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"job": name, "schedule": spec}).Info("job scheduled")
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs or ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

type cronLogger struct{ log logrus.FieldLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.WithFields(fields(kv)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.WithFields(fields(kv)).WithError(err).Error("cron: " + msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}
