package camera

import "sync"

// EventKind classifies pointer and keyboard input.
type EventKind int

const (
	PointerDrag EventKind = iota
	Scroll
	KeyDown
	KeyUp
)

// Event is one input sample. DX/DY are pixels for drags and notches for
// scrolls (negative DY zooms in). Keys are lower-case names such as "w" or
// "left". Hold, when positive, releases a pressed key after that many
// seconds; terminals never report key-up.
type Event struct {
	Kind EventKind
	DX   float64
	DY   float64
	Key  string
	Hold float64
}

// Input is a source of camera events.
type Input interface {
	Subscribe(fn func(Event)) (cancel func())
}

// Bus fans events out to subscribers and counts the live ones.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn. The returned cancel is safe to call repeatedly.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every subscriber outside the lock.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Active reports the number of live subscriptions.
func (b *Bus) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// controls accumulates events between frames for one rig.
type controls struct {
	mu     sync.Mutex
	dragX  float64
	dragY  float64
	scroll float64
	keys   map[string]float64
	cancel func()
}

type frameInput struct {
	dragX, dragY, scroll float64
	keys                 map[string]bool
}

func (f frameInput) axis(neg, pos string) float64 {
	v := 0.0
	if f.keys[neg] {
		v--
	}
	if f.keys[pos] {
		v++
	}
	return v
}

func bindControls(in Input) *controls {
	c := &controls{keys: make(map[string]float64)}
	if in != nil {
		c.cancel = in.Subscribe(c.handle)
	}
	return c
}

func (c *controls) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Kind {
	case PointerDrag:
		c.dragX += ev.DX
		c.dragY += ev.DY
	case Scroll:
		c.scroll += ev.DY
	case KeyDown:
		hold := ev.Hold
		if hold <= 0 {
			hold = -1
		}
		c.keys[ev.Key] = hold
	case KeyUp:
		delete(c.keys, ev.Key)
	}
}

// drain returns the input gathered since the last frame and ages timed keys.
func (c *controls) drain(dt float64) frameInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := frameInput{
		dragX:  c.dragX,
		dragY:  c.dragY,
		scroll: c.scroll,
		keys:   make(map[string]bool, len(c.keys)),
	}
	c.dragX, c.dragY, c.scroll = 0, 0, 0
	for k, left := range c.keys {
		out.keys[k] = true
		if left < 0 {
			continue
		}
		left -= dt
		if left <= 0 {
			delete(c.keys, k)
		} else {
			c.keys[k] = left
		}
	}
	return out
}

func (c *controls) close() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
