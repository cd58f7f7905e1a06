package visualizer

import (
	"context"
	"sync"
	"time"
)

// FrameFunc is called with the frame timestamp.
type FrameFunc func(now time.Time)

// FrameHandle identifies a pending frame request.
type FrameHandle uint64

// FrameScheduler delivers one-shot frame callbacks. A callback that wants
// another frame requests it again.
type FrameScheduler interface {
	RequestFrame(fn FrameFunc) FrameHandle
	CancelFrame(h FrameHandle)
}

// FrameLoop is a ticker-driven FrameScheduler. Run blocks on the calling
// goroutine so windowed presenters stay on the thread that owns them.
type FrameLoop struct {
	mu       sync.Mutex
	interval time.Duration
	next     FrameHandle
	pending  map[FrameHandle]FrameFunc
	order    []FrameHandle
	pollers  []func()
}

// NewFrameLoop ticks at fps; a non-positive fps means 60.
func NewFrameLoop(fps float64) *FrameLoop {
	if fps <= 0 {
		fps = 60
	}
	return &FrameLoop{
		interval: time.Duration(float64(time.Second) / fps),
		pending:  make(map[FrameHandle]FrameFunc),
	}
}

// Interval is the tick period.
func (l *FrameLoop) Interval() time.Duration { return l.interval }

// AddPoller registers fn to run at the start of every tick, before frame
// callbacks. Window event pumps go here.
func (l *FrameLoop) AddPoller(fn func()) {
	l.mu.Lock()
	l.pollers = append(l.pollers, fn)
	l.mu.Unlock()
}

func (l *FrameLoop) RequestFrame(fn FrameFunc) FrameHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	h := l.next
	l.pending[h] = fn
	l.order = append(l.order, h)
	return h
}

// CancelFrame drops a pending request; unknown handles are ignored.
func (l *FrameLoop) CancelFrame(h FrameHandle) {
	l.mu.Lock()
	delete(l.pending, h)
	l.mu.Unlock()
}

// Pending reports how many callbacks wait for the next tick.
func (l *FrameLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Tick runs the pollers, then every callback requested before the tick.
// Callbacks requested during the tick wait for the next one. It returns the
// number of callbacks run.
func (l *FrameLoop) Tick(now time.Time) int {
	l.mu.Lock()
	pollers := append([]func(){}, l.pollers...)
	l.mu.Unlock()
	for _, poll := range pollers {
		poll()
	}

	l.mu.Lock()
	order := l.order
	l.order = nil
	due := make([]FrameFunc, 0, len(order))
	for _, h := range order {
		if fn, ok := l.pending[h]; ok {
			due = append(due, fn)
			delete(l.pending, h)
		}
	}
	l.mu.Unlock()

	for _, fn := range due {
		fn(now)
	}
	return len(due)
}

// Run ticks until ctx is cancelled.
func (l *FrameLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(now)
		}
	}
}
