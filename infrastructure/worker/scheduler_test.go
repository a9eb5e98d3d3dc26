package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls  int32
	report *model.SweepReport
	err    error
	block  chan struct{}
}

func (f *fakeSweeper) ProcessDue(ctx context.Context) (*model.SweepReport, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.report, f.err
}

func TestNewScheduler_RejectsInvalidSpec(t *testing.T) {
	_, err := NewScheduler("every now and then", &fakeSweeper{}, 0)
	assert.Error(t, err)
}

func TestScheduler_RunOnce(t *testing.T) {
	sweeper := &fakeSweeper{report: &model.SweepReport{Processed: 2, Successful: 1, Failed: 1}}
	s, err := NewScheduler("@every 1m", sweeper, time.Second)
	require.NoError(t, err)

	report := s.RunOnce(context.Background())
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Processed)
	assert.EqualValues(t, 1, atomic.LoadInt32(&sweeper.calls))
}

func TestScheduler_RunOnceSweepError(t *testing.T) {
	s, err := NewScheduler("@every 1m", &fakeSweeper{err: errors.New("db down")}, time.Second)
	require.NoError(t, err)
	assert.Nil(t, s.RunOnce(context.Background()))
}

func TestScheduler_RunOnceTimesOut(t *testing.T) {
	sweeper := &fakeSweeper{block: make(chan struct{})}
	s, err := NewScheduler("@every 1m", sweeper, 20*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	assert.Nil(t, s.RunOnce(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestScheduler_RunTriggersSweepUntilCancelled(t *testing.T) {
	sweeper := &fakeSweeper{report: &model.SweepReport{}}
	s, err := NewScheduler("@every 1s", sweeper, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sweeper.calls) > 0 }, 3*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
