package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ContextOptions configure the shared output context.
type ContextOptions struct {
	SampleRate int
	Channels   int
	BufferSize time.Duration
}

// Context is the process-wide audio output. The device may not be ready
// when NewContext returns; Suspended reports that until Resume succeeds.
type Context struct {
	otoCtx     *oto.Context
	ready      chan struct{}
	sampleRate int
	channels   int

	mu        sync.Mutex
	suspended bool
}

var (
	sharedCtx *Context
	ctxOnce   sync.Once
	ctxErr    error
)

// NewContext creates the output context on first use and returns the same
// context afterwards. Oto allows one context per process, so a second call
// asking for a different format fails.
func NewContext(opts ContextOptions) (*Context, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Channels <= 0 {
		opts.Channels = 2
	}
	ctxOnce.Do(func() {
		otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   opts.SampleRate,
			ChannelCount: opts.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   opts.BufferSize,
		})
		if err != nil {
			ctxErr = fmt.Errorf("open audio output: %w", err)
			return
		}
		sharedCtx = &Context{
			otoCtx:     otoCtx,
			ready:      ready,
			sampleRate: opts.SampleRate,
			channels:   opts.Channels,
		}
	})
	if ctxErr != nil {
		return nil, ctxErr
	}
	if sharedCtx.sampleRate != opts.SampleRate || sharedCtx.channels != opts.Channels {
		return nil, fmt.Errorf("audio output already open at %d Hz x %d", sharedCtx.sampleRate, sharedCtx.channels)
	}
	return sharedCtx, nil
}

func (c *Context) SampleRate() int { return c.sampleRate }
func (c *Context) Channels() int   { return c.channels }

// Suspended reports whether the device is still starting or was suspended.
func (c *Context) Suspended() bool {
	select {
	case <-c.ready:
	default:
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// Resume waits for the device to become ready and restarts it if it was
// suspended.
func (c *Context) Resume(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return fmt.Errorf("waiting for audio output: %w", ctx.Err())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		if err := c.otoCtx.Resume(); err != nil {
			return fmt.Errorf("resume audio output: %w", err)
		}
		c.suspended = false
	}
	return c.otoCtx.Err()
}

// Suspend pauses the device for every player.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return nil
	}
	if err := c.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("suspend audio output: %w", err)
	}
	c.suspended = true
	return nil
}

// Err reports an asynchronous device failure.
func (c *Context) Err() error {
	return c.otoCtx.Err()
}

func (c *Context) open(r io.Reader) stream {
	return c.otoCtx.NewPlayer(r)
}
