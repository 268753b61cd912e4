package respserver

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/yndnr/dblite-go/internal/core/domain"
)

// executor runs dispatched commands.
type executor interface {
	start()
	execute(ctx context.Context, fn func()) error
	stop()
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// safeCall runs fn and converts a panic into a *panicError.
func safeCall(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// threaded runs each command on the calling connection goroutine.
type threaded struct{}

func (threaded) start() {}
func (threaded) stop()  {}

func (threaded) execute(_ context.Context, fn func()) error {
	return safeCall(fn)
}

type job struct {
	fn   func()
	done chan error
}

// eventLoop runs every command on one goroutine, in arrival order.
type eventLoop struct {
	jobs     chan job
	quit     chan struct{}
	finished chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		jobs:     make(chan job),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (l *eventLoop) start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

func (l *eventLoop) run() {
	defer close(l.finished)
	for {
		select {
		case j := <-l.jobs:
			j.done <- safeCall(j.fn)
		case <-l.quit:
			return
		}
	}
}

func (l *eventLoop) execute(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case l.jobs <- j:
	case <-l.quit:
		return domain.ErrShuttingDown
	case <-ctx.Done():
		return domain.ErrShuttingDown.WithCause(ctx.Err())
	}
	// Once queued the job always runs; wait for it so replies keep order.
	return <-j.done
}

func (l *eventLoop) stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	l.startOnce.Do(func() { close(l.finished) })
	<-l.finished
}
