package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ygrebnov/enumerator/metrics"
)

// Scheduler runs submitted jobs on worker goroutines in priority order and
// reports each completion on the job's Notify context.
// Scheduler is safe for concurrent use.
type Scheduler struct {
	//go:nocopy
	nc noCopy

	cfg    config
	logger zerolog.Logger

	// slots bounds running jobs for a fixed pool; nil for a dynamic pool.
	slots *semaphore.Weighted

	mu     sync.Mutex
	queue  jobQueue
	seq    uint64
	closed bool

	wake chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	dispatcherWG sync.WaitGroup
	inflight     sync.WaitGroup

	closeOnce sync.Once

	submitted  metrics.Counter
	completed  metrics.Counter
	panicked   metrics.Counter
	running    metrics.UpDownCounter
	queueDepth metrics.UpDownCounter
	duration   metrics.Histogram
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New creates and starts a Scheduler. Cancelling ctx stops dispatching: Submit
// then returns ErrClosed and queued jobs complete with ErrClosed. Close must
// still be called to wait for running jobs.
func New(ctx context.Context, opts ...Option) (*Scheduler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	s := &Scheduler{
		cfg:    cfg,
		logger: cfg.logger.With().Str("component", "scheduler").Logger(),
		wake:   make(chan struct{}, 1),
	}
	if cfg.MaxWorkers > 0 {
		s.slots = semaphore.NewWeighted(int64(cfg.MaxWorkers))
	}
	s.initInstruments(cfg.metrics)
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.dispatcherWG.Add(1)
	go func() {
		defer s.dispatcherWG.Done()
		s.dispatch()
		// The dispatcher only stops once s.ctx is done, by Close or by the
		// parent context. Either way no queued job will run any more.
		s.markClosed()
		s.drainQueue()
	}()

	s.logger.Debug().Uint("max_workers", cfg.MaxWorkers).Msg("scheduler started")
	return s, nil
}

func (s *Scheduler) initInstruments(p metrics.Provider) {
	s.submitted = p.Counter("scheduler_jobs_submitted_total",
		metrics.WithDescription("Jobs accepted by Submit"), metrics.WithUnit("1"))
	s.completed = p.Counter("scheduler_jobs_completed_total",
		metrics.WithDescription("Jobs whose Run returned"), metrics.WithUnit("1"))
	s.panicked = p.Counter("scheduler_jobs_panicked_total",
		metrics.WithDescription("Jobs whose Run panicked"), metrics.WithUnit("1"))
	s.running = p.UpDownCounter("scheduler_jobs_running",
		metrics.WithDescription("Jobs currently running"), metrics.WithUnit("1"))
	s.queueDepth = p.UpDownCounter("scheduler_queue_depth",
		metrics.WithDescription("Jobs waiting for a worker"), metrics.WithUnit("1"))
	s.duration = p.Histogram("scheduler_job_duration_seconds",
		metrics.WithDescription("Job run time"), metrics.WithUnit("s"))
}

var (
	defaultOnce      sync.Once
	defaultScheduler *Scheduler
)

// Default returns the process-wide dynamic Scheduler. It is never closed.
func Default() *Scheduler {
	defaultOnce.Do(func() {
		// New only fails on invalid options; there are none here.
		defaultScheduler, _ = New(context.Background())
	})
	return defaultScheduler
}

// Submit queues j. It never blocks on job execution.
// It returns ErrClosed after Close or once the context given to New is done,
// and ErrInvalidJob when j.Run is nil.
func (s *Scheduler) Submit(j Job) error {
	if j.Run == nil {
		return ErrInvalidJob
	}
	if j.Ctx == nil {
		j.Ctx = context.Background()
	}

	s.mu.Lock()
	if s.closed || s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrClosed
	}
	heap.Push(&s.queue, &queuedJob{job: j, seq: s.seq})
	s.seq++
	s.mu.Unlock()

	s.submitted.Add(1)
	s.queueDepth.Add(1)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops dispatching, waits for running jobs, then completes every job
// still queued with ErrClosed. Idempotent.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		lc := newLifecycleCoordinator(
			s.markClosed,
			s.cancel,
			&s.dispatcherWG,
			&s.inflight,
			s.drainQueue,
		)
		lc.Close()
		s.logger.Debug().Msg("scheduler closed")
	})
}

func (s *Scheduler) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// drainQueue completes jobs that never got a worker.
func (s *Scheduler) drainQueue() {
	s.mu.Lock()
	pending := make([]*queuedJob, 0, s.queue.Len())
	for s.queue.Len() > 0 {
		pending = append(pending, heap.Pop(&s.queue).(*queuedJob))
	}
	s.mu.Unlock()

	for _, qj := range pending {
		s.queueDepth.Add(-1)
		notify(qj.job, ErrClosed)
	}
}

// dispatch takes a free slot (fixed pool), then the best queued job, and runs it.
// Taking the slot first means the job is chosen when it can actually start.
func (s *Scheduler) dispatch() {
	for {
		if s.slots != nil {
			if err := s.slots.Acquire(s.ctx, 1); err != nil {
				return
			}
		}

		qj, ok := s.next()
		if !ok {
			if s.slots != nil {
				s.slots.Release(1)
			}
			return
		}

		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			if s.slots != nil {
				defer s.slots.Release(1)
			}
			s.execute(qj)
		}()
	}
}

// next blocks until a job is queued or the scheduler context is done.
func (s *Scheduler) next() (*queuedJob, bool) {
	for {
		s.mu.Lock()
		if s.queue.Len() > 0 {
			qj := heap.Pop(&s.queue).(*queuedJob)
			s.mu.Unlock()
			s.queueDepth.Add(-1)
			return qj, true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return nil, false
		}
	}
}

func (s *Scheduler) execute(qj *queuedJob) {
	s.running.Add(1)
	start := time.Now()

	err := runJob(qj.job.Ctx, qj.job.Run)

	s.duration.Record(time.Since(start).Seconds())
	s.running.Add(-1)
	s.completed.Add(1)
	if errors.Is(err, ErrJobPanicked) {
		s.panicked.Add(1)
		s.logger.Error().Err(err).Int("priority", qj.job.Priority).Msg("job panicked")
	}

	notify(qj.job, err)
}
