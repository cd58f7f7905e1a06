//go:build sdl || gl

package render

import (
	"runtime"
	"sync"
)

// osThread runs calls on one locked OS thread. SDL and GL contexts are
// bound to the thread that created them.
type osThread struct {
	calls chan func()
	done  chan struct{}
	once  sync.Once
}

func startThread() *osThread {
	t := &osThread{calls: make(chan func()), done: make(chan struct{})}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(t.done)
		for fn := range t.calls {
			fn()
		}
	}()
	return t
}

func (t *osThread) call(fn func() error) (err error) {
	select {
	case <-t.done:
		return ErrSurfaceClosed
	default:
	}
	errc := make(chan error, 1)
	t.calls <- func() { errc <- fn() }
	return <-errc
}

func (t *osThread) stop() {
	t.once.Do(func() { close(t.calls) })
	<-t.done
}
