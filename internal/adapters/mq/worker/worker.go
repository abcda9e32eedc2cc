// Package worker balances queued lobbies on a pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mixer/internal/domain/model"
	"github.com/okian/mixer/pkg/logger"
	"github.com/okian/mixer/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Mixer balances one lobby.
type Mixer interface {
	Mix(ctx context.Context, req model.MixRequest) (*model.Match, error)
}

// Sink receives the result of every dequeued request.
type Sink interface {
	Deliver(ctx context.Context, res model.MixResult)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, res model.MixResult)

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, res model.MixResult) { f(ctx, res) }

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.MixRequest
}

// Worker consumes mix requests until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker mixes requests from a queue and hands results to a sink.
type InMemoryWorker struct {
	queue Queue
	mixer Mixer
	sink  Sink
	name  string

	busy *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, mixer Mixer, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		mixer:    mixer,
		sink:     sink,
		name:     "worker",
		busy:     &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes requests until ctx is done, Shutdown is called or the queue
// closes.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			w.process(ctx, req)
		}
	}
}

// Shutdown stops the worker after its current request.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, req model.MixRequest) { //nolint:gocritic // hugeParam: passed by value for channel semantics
	w.busy.Add(1)
	start := time.Now()
	defer func() {
		w.busy.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	match, err := w.mix(ctx, req)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "mix_failed")
		w.logger.Warn(ctx, "mix failed",
			logger.String("request_id", req.RequestID),
			logger.String("lobby_id", req.LobbyID),
			logger.Error(err),
		)
	}
	if w.sink != nil {
		w.sink.Deliver(ctx, model.MixResult{
			RequestID: req.RequestID,
			LobbyID:   req.LobbyID,
			Match:     match,
			Err:       err,
		})
	}
}

// mix isolates a panicking mixer so one bad lobby cannot take the pool down.
func (w *InMemoryWorker) mix(ctx context.Context, req model.MixRequest) (m *model.Match, err error) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMixerPanic, r)
		}
	}()
	return w.mixer.Mix(ctx, req)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	busy    *atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a pool. A count below one uses one worker per CPU.
func NewPool(workerCount int, q Queue, mixer Mixer, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		busy:    &atomic.Int64{},
		stop:    make(chan struct{}),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, mixer, sink, wopts...)
		w.busy = p.busy
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Busy returns the number of workers currently mixing.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Start launches every worker and the gauge refresher.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.observe(ctx)
}

func (p *Pool) observe(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			busy := p.Busy()
			metrics.UpdateWorkerActiveCount(busy)
			metrics.UpdateWorkerIdleCount(len(p.workers) - busy)
		}
	}
}

// Shutdown closes the queue, lets workers drain what is buffered and waits
// for them up to ctx or the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.stopOnce.Do(func() { close(p.stop) })

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-waitCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, waitCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(0)
	return nil
}
