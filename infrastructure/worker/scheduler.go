package worker

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepTimeout bounds one sweep run.
const DefaultSweepTimeout = 5 * time.Minute

// Sweeper publishes every post that is due.
type Sweeper interface {
	ProcessDue(ctx context.Context) (*model.SweepReport, error)
}

// Scheduler triggers the sweep on a cron spec. A run that is still going when the next tick
// fires makes that tick a no-op.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler validates spec ("@every 1m", "*/5 * * * *") and registers the sweep job.
func NewScheduler(spec string, sweeper Sweeper, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = DefaultSweepTimeout
	}
	cl := cronLogger{entry: logger.GetLogger().WithField("component", "scheduler")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		timeout: timeout,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.GetLogger().Info("Post scheduler started")
}

// Stop cancels an in-flight sweep and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.GetLogger().Info("Post scheduler stopped")
}

// Run starts the scheduler and stops it when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunOnce performs a single sweep under the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) *model.SweepReport {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.sweeper.ProcessDue(runCtx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Scheduled post sweep failed")
		return nil
	}
	if report.Processed > 0 {
		logger.GetLogger().
			WithField("processed", report.Processed).
			WithField("successful", report.Successful).
			WithField("failed", report.Failed).
			Info("Scheduled post sweep finished")
	}
	return report
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithField("error", err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	out := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
