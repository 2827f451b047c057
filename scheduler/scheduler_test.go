package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/enumerator/enumtest"
	"github.com/ygrebnov/enumerator/loop"
)

func newScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	s, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
		return nil
	}
}

func TestScheduler_RunsJobAndNotifiesOnLoop(t *testing.T) {
	s := newScheduler(t)
	l := loop.New()
	t.Cleanup(l.Close)

	errBoom := errors.New("boom")
	done := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Run:    func(context.Context) error { return errBoom },
		Done:   func(err error) { done <- err },
		Notify: l,
	}))
	require.ErrorIs(t, waitErr(t, done), errBoom)
}

func TestScheduler_FixedPoolHonoursPriority(t *testing.T) {
	s := newScheduler(t, WithFixedPool(1))

	started := make(chan struct{})
	release := make(chan struct{})
	blockerDone := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Priority: 100,
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
		Done: func(err error) { blockerDone <- err },
	}))
	<-started

	var (
		mu    sync.Mutex
		order []string
		wg    sync.WaitGroup
	)
	submit := func(name string, prio int) {
		wg.Add(1)
		require.NoError(t, s.Submit(Job{
			Priority: prio,
			Run: func(context.Context) error {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil
			},
			Done: func(error) { wg.Done() },
		}))
	}
	submit("low", 10)
	submit("high-a", -5)
	submit("mid", 3)
	submit("high-b", -5)

	close(release)
	require.NoError(t, waitErr(t, blockerDone))
	wg.Wait()

	require.Equal(t, []string{"high-a", "high-b", "mid", "low"}, order)
}

func TestScheduler_FixedPoolBoundsConcurrency(t *testing.T) {
	s := newScheduler(t, WithFixedPool(2))

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, s.Submit(Job{
			Run: func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			},
			Done: func(error) { wg.Done() },
		}))
	}
	wg.Wait()
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScheduler_RecoversPanics(t *testing.T) {
	m := enumtest.NewMetrics()
	s := newScheduler(t, WithMetrics(m.Provider))

	done := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Run:  func(context.Context) error { panic("kaboom") },
		Done: func(err error) { done <- err },
	}))
	err := waitErr(t, done)
	require.ErrorIs(t, err, ErrJobPanicked)
	require.True(t, strings.Contains(err.Error(), "kaboom"))
	require.EqualValues(t, 1, m.Int64("scheduler_jobs_panicked_total"))
}

func TestScheduler_JobSeesItsOwnContext(t *testing.T) {
	s := newScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Ctx:  ctx,
		Run:  func(ctx context.Context) error { return ctx.Err() },
		Done: func(err error) { done <- err },
	}))
	require.ErrorIs(t, waitErr(t, done), context.Canceled)
}

func TestScheduler_SubmitValidation(t *testing.T) {
	s := newScheduler(t)
	require.ErrorIs(t, s.Submit(Job{}), ErrInvalidJob)

	s.Close()
	err := s.Submit(Job{Run: func(context.Context) error { return nil }})
	require.ErrorIs(t, err, ErrClosed)
}

func TestScheduler_CloseCompletesQueuedJobs(t *testing.T) {
	m := enumtest.NewMetrics()
	s, err := New(context.Background(), WithFixedPool(1), WithMetrics(m.Provider))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
		Done: func(err error) { first <- err },
	}))
	<-started

	queued := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Run:  func(context.Context) error { t.Error("queued job must not run after Close"); return nil },
		Done: func(err error) { queued <- err },
	}))

	closed := make(chan struct{})
	go func() { s.Close(); close(closed) }()

	select {
	case <-closed:
		t.Fatal("Close returned before the running job finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	require.NoError(t, waitErr(t, first))
	require.ErrorIs(t, waitErr(t, queued), ErrClosed)
	<-closed

	require.EqualValues(t, 2, m.Int64("scheduler_jobs_submitted_total"))
	require.EqualValues(t, 1, m.Int64("scheduler_jobs_completed_total"))
	require.EqualValues(t, 0, m.Int64("scheduler_queue_depth"))
	require.EqualValues(t, 0, m.Int64("scheduler_jobs_running"))
	require.EqualValues(t, 1, m.HistogramCount("scheduler_job_duration_seconds"))
}

func TestScheduler_Options(t *testing.T) {
	_, err := New(context.Background(), WithFixedPool(0))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(context.Background(), WithMetrics(nil))
	require.ErrorIs(t, err, ErrInvalidConfig)

	s, err := New(context.Background(), nil, WithFixedPool(3), WithDynamicPool())
	require.NoError(t, err)
	defer s.Close()
	require.Nil(t, s.slots)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		key  string
		want Config
	}{
		{
			name: "root",
			data: map[string]any{"max_workers": 4},
			want: Config{MaxWorkers: 4},
		},
		{
			name: "nested key",
			data: map[string]any{"enumerator": map[string]any{"scheduler": map[string]any{"max_workers": 2}}},
			key:  "enumerator.scheduler",
			want: Config{MaxWorkers: 2},
		},
		{
			name: "missing key yields defaults",
			data: map[string]any{},
			key:  "enumerator.scheduler",
			want: Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.data {
				v.Set(k, val)
			}
			got, err := LoadConfig(v, tt.key)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			s, err := New(context.Background(), WithConfig(got))
			require.NoError(t, err)
			s.Close()
		})
	}

	_, err := LoadConfig(nil, "")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefault_IsShared(t *testing.T) {
	require.Same(t, Default(), Default())

	done := make(chan error, 1)
	require.NoError(t, Default().Submit(Job{
		Run:  func(context.Context) error { return nil },
		Done: func(err error) { done <- err },
	}))
	require.NoError(t, waitErr(t, done))
}

func TestScheduler_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, WithFixedPool(1))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	started := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
		Done: func(err error) { first <- err },
	}))
	<-started

	queued := make(chan error, 1)
	require.NoError(t, s.Submit(Job{
		Run:  func(context.Context) error { t.Error("queued job must not run after cancellation"); return nil },
		Done: func(err error) { queued <- err },
	}))

	cancel()

	// Queued jobs hear back without waiting for Close.
	require.ErrorIs(t, waitErr(t, queued), ErrClosed)
	require.ErrorIs(t, s.Submit(Job{Run: func(context.Context) error { return nil }}), ErrClosed)

	close(release)
	require.NoError(t, waitErr(t, first))
}
