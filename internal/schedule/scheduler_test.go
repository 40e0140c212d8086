package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countJob) Name() string { return j.name }

func (j *countJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestAddJob(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.AddJob(&countJob{name: "a"}, "*/5 * * * *"))
	require.NoError(t, s.AddJob(&countJob{name: "b"}, "@every 10m"))
	require.Error(t, s.AddJob(&countJob{name: "a"}, "@hourly"))
	require.Error(t, s.AddJob(&countJob{name: "c"}, "not a spec"))
	require.Equal(t, 2, s.Len())
}

func TestWrapRunsJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{name: "a", err: errors.New("fail")}
	run := s.wrap(job, "@hourly")
	run()
	run()
	require.Equal(t, int32(2), job.runs.Load())
}

func TestWrapSkipsOverlappingRun(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{name: "slow", block: make(chan struct{})}
	run := s.wrap(job, "@hourly")
	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, timeout, tick)
	run()
	close(job.block)
	<-done
	require.Equal(t, int32(1), job.runs.Load())
}

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)
