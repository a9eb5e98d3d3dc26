package activity

import (
	"context"
	"sync"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"
)

// DefaultWriteTimeout bounds each sink write.
const DefaultWriteTimeout = 5 * time.Second

// Sink names a destination so failures can be attributed.
type Sink struct {
	Name string
	repository.IActivitySink
}

// Fanout delivers every event to all sinks in the background. Log never blocks on a sink.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewFanout(sinks ...Sink) *Fanout {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.IActivitySink != nil {
			active = append(active, s)
		}
	}
	return &Fanout{sinks: active, timeout: DefaultWriteTimeout}
}

var _ repository.IActivityLogger = (*Fanout)(nil)

func (f *Fanout) Log(ctx context.Context, event *model.ActivityEvent) {
	if event == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	logger.GetLogger().
		WithField("workspace_id", event.WorkspaceID).
		WithField("action", event.Action).
		WithField("platform", event.Platform).
		WithField("success", event.Success).
		Info("Activity")

	detached := context.WithoutCancel(ctx)
	for _, s := range f.sinks {
		f.wg.Add(1)
		go func(s Sink) {
			defer f.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.GetLogger().WithField("sink", s.Name).WithField("panic", r).Error("Activity sink panicked")
				}
			}()
			writeCtx, cancel := context.WithTimeout(detached, f.timeout)
			defer cancel()
			if err := s.Write(writeCtx, event); err != nil {
				metrics.RecordActivityFailure(s.Name)
				logger.GetLogger().WithField("sink", s.Name).WithField("error", err).Warn("Activity sink write failed")
			}
		}(s)
	}
}

// Wait blocks until in-flight writes finish or ctx ends.
func (f *Fanout) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
