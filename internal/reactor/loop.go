// Package reactor runs every compositor mutation and render on one
// goroutine. Other goroutines hand work to it with Post or Call.
package reactor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned when posting to a loop that has finished.
var ErrStopped = errors.New("reactor stopped")

// Loop is a single-threaded work queue. Tasks run in the order they were
// posted; a task posted while the loop is running a batch runs in the next
// iteration, after everything already queued.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// New creates a loop. Run must be called to process tasks.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine. It never blocks and is safe
// to call from the loop itself.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Call runs fn on the loop and waits for its result. It must not be called
// from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := l.Post(func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-l.done:
		// The task may have run just before shutdown.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is cancelled. Tasks still queued at that
// point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	l.logger.Debug("reactor started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("reactor stopped")
			return ctx.Err()
		case <-l.wake:
		}

		for _, fn := range l.take() {
			if ctx.Err() != nil {
				break
			}
			l.run(fn)
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("reactor task panic recovered", "error", err)
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	close(l.done)
}
