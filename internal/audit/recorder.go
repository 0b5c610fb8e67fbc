package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"calculation/internal/audit/metrics"
	"calculation/pkg/requestcontext"
)

const (
	defaultWorkers      = 4
	defaultBufferSize   = 1024
	defaultWriteTimeout = 5 * time.Second
)

// job is a queued record plus the request correlation needed for logging.
type job struct {
	record    Record
	requestID string
}

// Recorder accepts audit records without blocking the caller and persists them
// on a pool of background workers. Each record gets at most one write attempt.
// Failures are logged and counted, never retried and never returned. When the
// buffer is full or the breaker is open the record is dropped and counted.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	breaker *CircuitBreaker
	tracer  trace.Tracer

	workers      int
	bufferSize   int
	writeTimeout time.Duration

	inbox     chan job
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type RecorderOption func(*Recorder)

func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithWorkers sets the number of background writers.
func WithWorkers(n int) RecorderOption {
	return func(r *Recorder) {
		r.workers = n
	}
}

// WithBufferSize sets how many records may wait for a worker.
func WithBufferSize(n int) RecorderOption {
	return func(r *Recorder) {
		r.bufferSize = n
	}
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.writeTimeout = d
	}
}

// WithCircuitBreaker skips writes while the store keeps failing.
func WithCircuitBreaker(cb *CircuitBreaker) RecorderOption {
	return func(r *Recorder) {
		r.breaker = cb
	}
}

func NewRecorder(store Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	r := &Recorder{
		store:        store,
		logger:       slog.Default(),
		tracer:       otel.Tracer("calculation/internal/audit"),
		workers:      defaultWorkers,
		bufferSize:   defaultBufferSize,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		return nil, errors.New("audit recorder needs at least one worker")
	}
	if r.bufferSize < 0 {
		return nil, errors.New("audit buffer size must not be negative")
	}
	r.inbox = make(chan job, r.bufferSize)
	return r, nil
}

// Start launches the worker pool. Calling it more than once has no effect.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		for range r.workers {
			r.wg.Go(r.work)
		}
	})
}

// Run starts the workers, waits for ctx to end, then drains the buffer.
// It always returns nil so it can run in an errgroup without cancelling siblings.
func (r *Recorder) Run(ctx context.Context) error {
	r.Start()
	<-ctx.Done()
	r.Close()
	return nil
}

// Record enqueues a record and returns immediately.
func (r *Recorder) Record(ctx context.Context, record Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.metrics.IncDropped(metrics.ReasonRecorderClosed)
		r.logger.WarnContext(ctx, "audit recorder closed, record dropped",
			"endpoint", record.Endpoint,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}

	select {
	case r.inbox <- job{record: record, requestID: requestcontext.RequestID(ctx)}:
		r.metrics.SetQueueDepth(len(r.inbox))
	default:
		r.metrics.IncDropped(metrics.ReasonBufferFull)
		r.logger.WarnContext(ctx, "audit buffer full, record dropped",
			"endpoint", record.Endpoint,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// Close stops accepting records and blocks until every buffered record has
// been handled.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.inbox)
		r.mu.Unlock()

		// workers must run for the drain even if Start was never called
		r.Start()
		r.wg.Wait()
	})
}

func (r *Recorder) work() {
	for j := range r.inbox {
		r.metrics.SetQueueDepth(len(r.inbox))
		r.write(j)
	}
}

// write makes the single write attempt for one record. The context is
// detached from the originating request so a finished request never cancels
// its own audit write.
func (r *Recorder) write(j job) {
	ctx := requestcontext.WithRequestID(context.Background(), j.requestID)
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "audit.Write",
		trace.WithAttributes(attribute.String("audit.endpoint", j.record.Endpoint)),
	)
	defer span.End()

	if r.breaker != nil && !r.breaker.Allow() {
		r.metrics.IncDropped(metrics.ReasonCircuitOpen)
		span.SetAttributes(attribute.Bool("audit.skipped", true))
		return
	}

	start := time.Now()
	id, err := r.store.Insert(ctx, j.record)
	r.metrics.ObserveWrite(time.Since(start).Seconds())

	if err != nil {
		r.metrics.IncWriteFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit write failed")
		r.logger.ErrorContext(ctx, "failed to write audit record",
			"error", err,
			"endpoint", j.record.Endpoint,
			"request_id", j.requestID,
		)
		if r.breaker != nil && r.breaker.RecordFailure() {
			r.metrics.SetCircuitOpen(true)
			r.logger.ErrorContext(ctx, "audit circuit breaker opened")
		}
		return
	}

	if r.breaker != nil {
		r.breaker.RecordSuccess()
		r.metrics.SetCircuitOpen(false)
	}
	r.metrics.IncRecorded()
	span.SetAttributes(attribute.Int64("audit.id", id))
}
