package notifications

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/mail"
	"github.com/charlesng35/accounts/pkg/metrics"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 100
)

var (
	// ErrDispatcherClosed is returned when enqueueing after Close.
	ErrDispatcherClosed = errors.New("notifications: dispatcher closed")
	// ErrQueueFull is returned when the buffered queue has no room left.
	ErrQueueFull = errors.New("notifications: queue full")
)

// Job is one outbound email.
type Job struct {
	Kind    string
	Message mail.Message
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the buffered queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// Dispatcher delivers emails in the background through a bounded worker pool.
// Failures are logged and counted; jobs are not retried.
type Dispatcher struct {
	mailer    mail.Mailer
	workers   int
	queueSize int

	queue chan Job
	wg    sync.WaitGroup

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	closed  bool
}

// NewDispatcher starts the worker pool.
func NewDispatcher(mailer mail.Mailer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		mailer:    mailer,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cond = sync.NewCond(&d.mu)
	d.queue = make(chan Job, d.queueSize)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Enqueue schedules a job without blocking.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- job:
		d.pending++
		metrics.EmailQueueDepth.Inc()
		return nil
	default:
		metrics.EmailsSent.WithLabelValues(job.Kind, "dropped").Inc()
		return ErrQueueFull
	}
}

// Drain blocks until every enqueued job has been processed.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	for d.pending > 0 {
		d.cond.Wait()
	}
	d.mu.Unlock()
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for job := range d.queue {
		metrics.EmailQueueDepth.Dec()
		d.deliver(job)

		d.mu.Lock()
		d.pending--
		if d.pending == 0 {
			d.cond.Broadcast()
		}
		d.mu.Unlock()
	}
}

func (d *Dispatcher) deliver(job Job) {
	log := logger.WithModule("mail")
	err := d.mailer.Send(context.Background(), job.Message)
	switch {
	case err == nil:
		metrics.EmailsSent.WithLabelValues(job.Kind, "sent").Inc()
		log.Info("email sent", zap.String("kind", job.Kind), zap.Int("recipients", len(job.Message.Recipients())))
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.EmailsSent.WithLabelValues(job.Kind, "disabled").Inc()
		log.Debug("email skipped: smtp disabled", zap.String("kind", job.Kind))
	default:
		metrics.EmailsSent.WithLabelValues(job.Kind, "failed").Inc()
		log.Error("email delivery failed", zap.String("kind", job.Kind), zap.Error(err))
	}
}
