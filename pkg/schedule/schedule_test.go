package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/pkg/schedule"
)

func TestRunsImmediatelyThenOnTicks(t *testing.T) {
	var n atomic.Int32
	job := schedule.Interval(20 * time.Millisecond).Name("t:ticks").Start(context.Background(), func(context.Context) {
		n.Add(1)
	})
	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
	job.Stop()

	after := n.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, n.Load())
	assert.NotContains(t, schedule.List(), "t:ticks  [20ms]")
}

func TestStopCancelsTaskContext(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	job := schedule.Every(1).Minutes().Start(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	<-started
	job.Stop()
	assert.True(t, cancelled.Load())
	job.Stop()
}

func TestParentContextStopsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := schedule.Interval(time.Hour).Delayed().Start(ctx, func(context.Context) {})
	assert.Contains(t, schedule.List(), job.ID()+"  [1h0m0s]")
	cancel()

	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
	assert.Zero(t, job.Runs())
}

func TestWithoutOverlappingSkipsBusyTicks(t *testing.T) {
	release := make(chan struct{})
	var n atomic.Int32
	job := schedule.Interval(10*time.Millisecond).WithoutOverlapping().Start(context.Background(), func(ctx context.Context) {
		n.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
	close(release)
	job.Stop()
}

func TestPanicIsRecovered(t *testing.T) {
	var after atomic.Bool
	job := schedule.Interval(time.Hour).
		After(func(context.Context) { after.Store(true) }).
		Start(context.Background(), func(context.Context) { panic("boom") })
	require.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
	job.Stop()
}
