package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrLimiterConcurrency = errors.New("concurrency limit reached")
	ErrLimiterDrain       = errors.New("limiter draining, no further tasks accepted")
)

// Limiter bounds the number of concurrently running device routines.
// Tasks are plain closures; the caller wraps all error handling inside them.
type Limiter struct {
	wg *sync.WaitGroup
	// running routines signal completion on completedCh.
	completedCh chan struct{}
	// taskCh is where dispatch() receives closures to run.
	taskCh chan func()
	// concurrency is the ceiling on running routines.
	concurrency int
	// mu guards running, drain.
	mu sync.RWMutex
	// running is the count of routines currently executing.
	running int32
	// drain is set by StopWait(), after which Dispatch() rejects tasks.
	drain bool
}

// NewLimiter returns a runner that keeps at most concurrency routines
// in flight. Callers must invoke StopWait() to release the dispatcher.
func NewLimiter(concurrency int) *Limiter {
	l := &Limiter{
		concurrency: concurrency,
		wg:          &sync.WaitGroup{},
		completedCh: make(chan struct{}),
		taskCh:      make(chan func()),
	}

	l.wg.Add(1)

	go l.dispatch()

	return l
}

// Dispatch hands the closure to the dispatcher, rejecting it when the
// concurrency ceiling is reached or the limiter is draining.
func (l *Limiter) Dispatch(task func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if int(atomic.LoadInt32(&l.running)) >= l.concurrency {
		return ErrLimiterConcurrency
	}

	if l.drain {
		return ErrLimiterDrain
	}

	// count the admission before handing off so a back-to-back Dispatch
	// cannot slip past the ceiling
	atomic.AddInt32(&l.running, 1)
	l.taskCh <- task

	return nil
}

// dispatch loops running received closures until drain is set and the
// running count falls to zero.
func (l *Limiter) dispatch() {
	defer l.wg.Done()

	drainCheck := time.NewTicker(50 * time.Millisecond)
	defer drainCheck.Stop()

	for {
		select {
		case task := <-l.taskCh:
			l.wg.Add(1)

			go func() {
				defer l.wg.Done()

				task()
				l.completedCh <- struct{}{}
			}()

		case <-l.completedCh:
			atomic.AddInt32(&l.running, -1)

		case <-drainCheck.C:
			l.mu.RLock()
			done := l.drain && atomic.LoadInt32(&l.running) == 0
			l.mu.RUnlock()

			if done {
				return
			}
		}
	}
}

// ActiveCount returns the count of running routines.
func (l *Limiter) ActiveCount() int {
	return int(atomic.LoadInt32(&l.running))
}

// StopWait rejects further tasks and blocks until every running routine
// completes and the dispatcher exits.
func (l *Limiter) StopWait() {
	l.mu.Lock()
	l.drain = true
	l.mu.Unlock()

	l.wg.Wait()
}
