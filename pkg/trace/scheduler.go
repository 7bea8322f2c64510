package trace

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Frame arranges for fn to run on a later frame and returns a function that
// cancels it. Cancel may be called after fn ran.
type Frame func(fn func()) (cancel func())

// TimerFrame returns a Frame backed by time.AfterFunc.
func TimerFrame(d time.Duration) Frame {
	return func(fn func()) func() {
		t := time.AfterFunc(d, fn)
		return func() { t.Stop() }
	}
}

// Scheduler defers a recomputation to the next frame. Each Trigger replaces
// whatever was pending: the previous task is cancelled, never queued, so
// the most recent trigger always wins.
type Scheduler struct {
	mu      sync.Mutex
	frame   Frame
	gen     uint64
	pending func()
	cancel  func()
}

// NewScheduler creates a scheduler. With a nil frame nothing runs on its
// own and pending work only executes through Flush, which is what tests use.
func NewScheduler(frame Frame) *Scheduler {
	return &Scheduler{frame: frame}
}

// Trigger cancels any pending task and schedules fn.
func (s *Scheduler) Trigger(fn func()) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	gen := s.gen
	s.pending = fn
	frame := s.frame
	s.mu.Unlock()

	if frame == nil {
		return
	}
	cancel := frame(func() { s.fire(gen) })

	s.mu.Lock()
	if s.gen == gen && s.pending != nil {
		s.cancel = cancel
	} else {
		cancel()
	}
	s.mu.Unlock()
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	fn := s.pending
	s.pending = nil
	s.cancel = nil
	s.mu.Unlock()
	fn()
}

// Flush runs the pending task synchronously, if any, and reports whether
// something ran.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Cancel drops the pending task without running it.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pending = nil
	s.gen++
}

// Pending reports whether a task is waiting for its frame.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Generation increments on every Trigger, Flush and Cancel. Callers that
// deliver frames as messages (the TUI) compare it to drop stale ones.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}
