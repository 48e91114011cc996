package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresher struct {
	calls int32
	err   error
}

func (r *refresher) Refresh(ctx context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

type pruner struct{ n int64 }

func (p pruner) Prune(ctx context.Context) (int64, error) { return p.n, nil }

func TestScheduler_RunsJobs(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewScheduler(log)
	r := &refresher{}

	require.NoError(t, s.Add(KeyRefreshJob("@every 1s", r, nil)))
	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&r.calls) >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	err := NewScheduler(log).Add(Job{Name: "bad", Schedule: "every now and then", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_RunNowLogsFailures(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := NewScheduler(log)

	var observed error
	r := &refresher{err: errors.New("all keys rejected")}
	s.RunNow(KeyRefreshJob("@every 10m", r, func(err error) { observed = err }))

	assert.EqualError(t, observed, "all keys rejected")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "key-refresh", hook.LastEntry().Data["job"])
}

func TestCachePruneJob(t *testing.T) {
	log, hook := test.NewNullLogger()
	job := CachePruneJob("@daily", pruner{n: 3}, log)

	require.NoError(t, job.Run(context.Background()))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, int64(3), hook.LastEntry().Data["rows"])
}
