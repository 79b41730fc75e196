// Package looper runs posted work items one at a time on a single
// goroutine locked to its OS thread, the way a platform main thread
// dispatches lifecycle callbacks and broadcasts.
package looper

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQuit is returned when posting to a looper that has stopped.
	ErrQuit = errors.New("looper has quit")
	// ErrNotRunning is returned by Call when Run was never started.
	ErrNotRunning = errors.New("looper is not running")
)

const defaultQueueSize = 64

// Looper is a serialized executor. Work items must not call Call or Quit
// on their own looper.
type Looper struct {
	queue chan func()

	started  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	// mu orders Post against the final drain: Posts hold it shared, and
	// stopping takes it exclusively, so an accepted item is always drained.
	mu      sync.RWMutex
	stopped bool
}

// New returns a looper. Call Run to start dispatching.
func New() *Looper {
	return &Looper{
		queue: make(chan func(), defaultQueueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run dispatches posted work on the calling goroutine until ctx is done or
// Quit is called. Work already queued at that point still runs. The
// goroutine is locked to its OS thread for the duration.
func (l *Looper) Run(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	logrus.Debug("main looper starts")
	for {
		select {
		case <-ctx.Done():
			l.signalQuit()
			l.stop()
			l.drain()
			return
		case <-l.quit:
			l.stop()
			l.drain()
			return
		case fn := <-l.queue:
			l.dispatch(fn)
		}
	}
}

// stop waits for in-flight Posts and rejects later ones.
func (l *Looper) stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

func (l *Looper) drain() {
	for {
		select {
		case fn := <-l.queue:
			l.dispatch(fn)
		default:
			logrus.Debug("main looper stopped")
			return
		}
	}
}

func (l *Looper) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("work item panicked on main looper: %v", r)
		}
	}()
	fn()
}

func (l *Looper) signalQuit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Quit stops the looper and, if Run was started, waits for it to return.
func (l *Looper) Quit() {
	l.signalQuit()
	if l.started.CompareAndSwap(false, true) {
		// Never ran: nothing will drain the queue.
		l.stop()
		close(l.done)
		return
	}
	<-l.done
}

// Post queues fn without waiting for it to run. A nil error means fn
// will run.
func (l *Looper) Post(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return ErrQuit
	}
	select {
	case <-l.quit:
		return ErrQuit
	default:
	}
	select {
	case <-l.quit:
		return ErrQuit
	case l.queue <- fn:
		return nil
	}
}

// Call queues fn and waits until it has run.
func (l *Looper) Call(fn func()) error {
	if !l.started.Load() {
		return ErrNotRunning
	}

	ran := make(chan struct{})
	if err := l.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrQuit
		}
	}
}
