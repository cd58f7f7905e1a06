package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/guidoenr/harmonic/internal/audio/decode"
	"github.com/guidoenr/harmonic/internal/audio/graph"
)

var (
	// ErrNoTrack is returned by Play before a track has been loaded.
	ErrNoTrack = errors.New("audio: no track loaded")
	// ErrPlayerClosed is returned once the player has been closed.
	ErrPlayerClosed = errors.New("audio: player closed")
)

// output is the device side of a Player; *Context implements it.
type output interface {
	SampleRate() int
	Channels() int
	Err() error
	open(r io.Reader) stream
}

// stream is one playing voice on the output; *oto.Player implements it.
type stream interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
}

// Player plays local files through the output context and exposes what it
// plays as a graph node for the analyser.
type Player struct {
	*graph.Bus

	out output

	mu       sync.Mutex
	dec      decode.Decoder
	conv     *converter
	voice    stream
	track    decode.Metadata
	duration time.Duration
	volume   float64
	done     chan struct{}
	closed   bool
}

// NewPlayer returns an idle player on ctx.
func NewPlayer(ctx *Context) *Player {
	return newPlayer(ctx)
}

func newPlayer(out output) *Player {
	return &Player{
		Bus:    graph.NewBus(float64(out.SampleRate())),
		out:    out,
		volume: 0.8,
		done:   make(chan struct{}),
	}
}

// Load replaces the current track. Playback does not start until Play.
func (p *Player) Load(path string) error {
	dec, err := decode.Open(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = dec.Close()
		return ErrPlayerClosed
	}
	p.releaseLocked()

	p.dec = dec
	p.track = decode.ReadMetadata(path)
	p.duration = decode.Duration(dec)
	p.conv = newConverter(dec, dec.SampleRate(), dec.ChannelCount(), p.out.SampleRate(), p.out.Channels(), p.Bus)
	p.voice = p.out.open(p.conv)
	p.voice.SetVolume(p.volume)
	p.done = make(chan struct{})
	go p.monitor(p.conv, p.voice, p.done)
	return nil
}

// monitor closes done once the converter has drained and the voice has
// stopped.
func (p *Player) monitor(conv *converter, voice stream, done chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		current := p.conv == conv && !p.closed
		finished := conv.Exhausted() && !voice.IsPlaying()
		p.mu.Unlock()
		if !current {
			return
		}
		if finished {
			p.Reset()
			close(done)
			return
		}
	}
}

// Play starts or resumes the loaded track.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPlayerClosed
	}
	if p.voice == nil {
		return ErrNoTrack
	}
	if err := p.out.Err(); err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	p.voice.Play()
	return nil
}

// Pause halts playback; Play resumes from the same position. Connected
// analysers see silence until playback resumes.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.voice != nil {
		p.voice.Pause()
	}
	p.Reset()
}

// Seek moves the current track to d, clamped to [0, Duration]. A playing
// track keeps playing from the new position.
func (p *Player) Seek(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPlayerClosed
	}
	if p.dec == nil {
		return ErrNoTrack
	}
	if d < 0 {
		d = 0
	}
	if d > p.duration {
		d = p.duration
	}

	rate := p.dec.SampleRate()
	channels := p.dec.ChannelCount()
	frameBytes := int64(2 * channels)
	pos, err := p.dec.Seek(int64(d.Seconds()*float64(rate))*frameBytes, io.SeekStart)
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	// The old voice still holds buffered audio from the previous position,
	// so it is replaced rather than rewound.
	wasPlaying := p.voice.IsPlaying()
	p.voice.Pause()
	p.Reset()

	p.conv = newConverter(p.dec, rate, channels, p.out.SampleRate(), p.out.Channels(), p.Bus)
	if rate > 0 {
		p.conv.frames.Store(int64(float64(pos/frameBytes) / float64(rate) * float64(p.out.SampleRate())))
	}
	p.voice = p.out.open(p.conv)
	p.voice.SetVolume(p.volume)
	p.done = make(chan struct{})
	go p.monitor(p.conv, p.voice, p.done)
	if wasPlaying {
		p.voice.Play()
	}
	return nil
}

// Playing reports whether audio is currently being produced.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voice != nil && p.voice.IsPlaying()
}

// Done is closed when the current track finishes. Load replaces it.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Player) Track() decode.Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Position is the amount of audio handed to the device so far.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	conv := p.conv
	p.mu.Unlock()
	if conv == nil || p.out.SampleRate() <= 0 {
		return 0
	}
	return time.Duration(float64(conv.Frames()) / float64(p.out.SampleRate()) * float64(time.Second))
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume clamps v to [0, 1].
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	if p.voice != nil {
		p.voice.SetVolume(v)
	}
}

// Close stops playback and releases the decoder.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.releaseLocked()
}

func (p *Player) releaseLocked() error {
	if p.voice != nil {
		p.voice.Pause()
		p.voice = nil
	}
	p.conv = nil
	p.Reset()
	if p.dec == nil {
		return nil
	}
	err := p.dec.Close()
	p.dec = nil
	return err
}
