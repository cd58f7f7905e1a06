// Package playback sequences a queue of local tracks through a deck and
// keeps the play/pause state consistent when the output rejects playback.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/guidoenr/harmonic/internal/audio/decode"
	"github.com/guidoenr/harmonic/internal/log"
)

var (
	// ErrEmptyQueue is returned when there is nothing to play.
	ErrEmptyQueue = errors.New("playback: queue is empty")
	// ErrNotLoaded is returned by Seek before the first Play.
	ErrNotLoaded = errors.New("playback: no track loaded")
)

// Deck plays one track at a time; *audio.Player implements it.
type Deck interface {
	Load(path string) error
	Play() error
	Pause()
	Seek(d time.Duration) error
	SetVolume(v float64)
	Done() <-chan struct{}
	Track() decode.Metadata
	Position() time.Duration
	Duration() time.Duration
}

// Resumer wakes a suspended output before playback starts.
type Resumer interface {
	Suspended() bool
	Resume(ctx context.Context) error
}

// State is a snapshot of the transport.
type State struct {
	Track    decode.Metadata `json:"track"`
	Index    int             `json:"index"`
	Count    int             `json:"count"`
	Playing  bool            `json:"playing"`
	Volume   float64         `json:"volume"`
	Position float64         `json:"position"`
	Duration float64         `json:"duration"`
}

// Options configure a Transport. A zero Volume starts at 0.8.
type Options struct {
	Resumer Resumer
	Volume  float64
}

// Transport owns the queue position and the playing flag.
type Transport struct {
	deck    Deck
	resumer Resumer

	mu        sync.Mutex
	queue     []string
	index     int
	loaded    int
	playing   bool
	volume    float64
	listeners []func(State)
}

// New returns a stopped transport positioned on the first track.
func New(deck Deck, queue []string, opts Options) *Transport {
	volume := clamp01(opts.Volume)
	if opts.Volume == 0 {
		volume = 0.8
	}
	deck.SetVolume(volume)
	return &Transport{
		deck:    deck,
		resumer: opts.Resumer,
		queue:   append([]string(nil), queue...),
		loaded:  -1,
		volume:  volume,
	}
}

// OnChange registers fn to receive the state after every transition.
func (t *Transport) OnChange(fn func(State)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Play resumes the output if needed and starts the current track. A
// rejected start is logged and leaves the transport not playing.
func (t *Transport) Play(ctx context.Context) error {
	t.mu.Lock()
	err := t.playLocked(ctx)
	state := t.stateLocked()
	t.mu.Unlock()
	t.notify(state)
	return err
}

func (t *Transport) playLocked(ctx context.Context) error {
	if len(t.queue) == 0 {
		t.playing = false
		return ErrEmptyQueue
	}
	err := t.startLocked(ctx)
	if err != nil {
		log.Warnf("unable to start playback: %v", err)
		t.playing = false
		return err
	}
	t.playing = true
	return nil
}

func (t *Transport) startLocked(ctx context.Context) error {
	if t.resumer != nil && t.resumer.Suspended() {
		if err := t.resumer.Resume(ctx); err != nil {
			return err
		}
	}
	if t.loaded != t.index {
		if err := t.deck.Load(t.queue[t.index]); err != nil {
			t.loaded = -1
			return err
		}
		t.loaded = t.index
	}
	return t.deck.Play()
}

// Pause stops playback, keeping the position.
func (t *Transport) Pause() {
	t.mu.Lock()
	t.deck.Pause()
	t.playing = false
	state := t.stateLocked()
	t.mu.Unlock()
	t.notify(state)
}

// Toggle pauses when playing and plays otherwise.
func (t *Transport) Toggle(ctx context.Context) error {
	if t.Playing() {
		t.Pause()
		return nil
	}
	return t.Play(ctx)
}

// Next advances to the following track, wrapping at the end.
func (t *Transport) Next(ctx context.Context) error {
	return t.step(ctx, 1)
}

// Prev goes back one track, wrapping at the start.
func (t *Transport) Prev(ctx context.Context) error {
	return t.step(ctx, -1)
}

func (t *Transport) step(ctx context.Context, delta int) error {
	t.mu.Lock()
	if len(t.queue) == 0 {
		t.mu.Unlock()
		return ErrEmptyQueue
	}
	n := len(t.queue)
	t.index = ((t.index+delta)%n + n) % n
	t.loaded = -1
	var err error
	if t.playing {
		t.deck.Pause()
		err = t.playLocked(ctx)
	}
	state := t.stateLocked()
	t.mu.Unlock()
	t.notify(state)
	return err
}

// Seek moves the loaded track to seconds, clamped to [0, duration].
func (t *Transport) Seek(seconds float64) error {
	t.mu.Lock()
	if t.loaded < 0 {
		t.mu.Unlock()
		return ErrNotLoaded
	}
	if dur := t.deck.Duration().Seconds(); seconds > dur {
		seconds = dur
	}
	if !(seconds > 0) {
		seconds = 0
	}
	err := t.deck.Seek(time.Duration(seconds * float64(time.Second)))
	state := t.stateLocked()
	t.mu.Unlock()
	t.notify(state)
	return err
}

// SeekBy moves the loaded track by delta seconds.
func (t *Transport) SeekBy(delta float64) error {
	return t.Seek(t.State().Position + delta)
}

// SetVolume clamps v to [0, 1] and applies it to the deck.
func (t *Transport) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = clamp01(v)
	t.deck.SetVolume(t.volume)
	state := t.stateLocked()
	t.mu.Unlock()
	t.notify(state)
}

// AdjustVolume changes the volume by delta.
func (t *Transport) AdjustVolume(delta float64) {
	t.SetVolume(t.Volume() + delta)
}

func (t *Transport) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *Transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Transport) stateLocked() State {
	s := State{
		Index:   t.index,
		Count:   len(t.queue),
		Playing: t.playing,
		Volume:  t.volume,
	}
	if t.loaded >= 0 {
		s.Track = t.deck.Track()
		s.Position = t.deck.Position().Seconds()
		s.Duration = t.deck.Duration().Seconds()
	} else if len(t.queue) > 0 {
		s.Track = decode.Metadata{Title: trackName(t.queue[t.index])}
	}
	return s
}

// Run advances to the next track whenever the current one ends, until ctx
// is done. Done is re-read periodically since Load and Seek replace it.
func (t *Transport) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		case <-t.deck.Done():
			if !t.Playing() {
				// Stale end of a track we are not playing.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			if err := t.Next(ctx); err != nil && !errors.Is(err, ErrEmptyQueue) {
				log.Warnf("advance to next track: %v", err)
			}
		}
	}
}

func (t *Transport) notify(s State) {
	t.mu.Lock()
	listeners := append([]func(State){}, t.listeners...)
	t.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
