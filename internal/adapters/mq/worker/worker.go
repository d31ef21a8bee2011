// Package worker drains the fulfillment queue and hands each callback to
// the randomness adapter's resolve step. Workers exist so an external
// provider bursting callbacks never runs resolution on the HTTP goroutine.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kyral/bandrush/internal/adapters/mq/queue"
	"github.com/kyral/bandrush/pkg/logger"
	"github.com/kyral/bandrush/pkg/metrics"
)

const defaultWorkerCount = 4

// Fulfillment is what workers read off the queue.
type Fulfillment = queue.Fulfillment

// Resolver consumes one fulfillment; the randomness adapter implements it.
type Resolver interface {
	OnFulfilled(ctx context.Context, requestID string, randomValue uint64) error
}

// Queue defines how workers receive fulfillments.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Fulfillment
}

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName names the worker for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// Worker processes fulfillments until stopped.
type Worker struct {
	queue    Queue
	resolver Resolver
	name     string

	shutdown chan struct{}
	done     chan struct{}
	log      logger.Logger
}

// NewWorker creates a worker over the queue and resolver.
func NewWorker(q Queue, r Resolver, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		resolver: r,
		name:     "fulfillment-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logger.Get().Named(w.name)
	return w
}

// Run consumes fulfillments until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	in := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case f, ok := <-in:
			if !ok {
				return
			}
			w.process(ctx, f)
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight fulfillment.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, f Fulfillment) {
	start := time.Now()
	err := w.resolver.OnFulfilled(ctx, f.RequestID, f.RandomValue)
	metrics.RecordFulfillmentLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordWorkerError()
		w.log.Error(ctx, "fulfillment resolution failed",
			logger.String("requestID", f.RequestID),
			logger.Error(err),
		)
	}
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
}

// NewPool creates workerCount workers.
func NewPool(workerCount int, q Queue, r Resolver) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{workers: make([]*Worker, workerCount)}
	for i := range workerCount {
		p.workers[i] = NewWorker(q, r, WithName("fulfillment-worker-"+strconv.Itoa(i)))
	}
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop shuts all workers down, bounded by ctx.
func (p *Pool) Stop(ctx context.Context) {
	for _, w := range p.workers {
		_ = w.Shutdown(ctx)
	}
}
