package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"

	"github.com/guidoenr/harmonic/internal/audio/graph"
	"github.com/guidoenr/harmonic/internal/log"
)

// converter adapts a decoded stream to the output format. It resamples
// linearly, maps channels and taps every block it hands out, mixed to mono,
// into the bus so the analyser sees what the device is about to play.
type converter struct {
	src   io.Reader
	srcCh int
	dstCh int
	step  float64

	frac   float64
	prev   []float32
	next   []float32
	primed bool

	raw     []byte
	partial int
	queue   []float32
	qpos    int

	out  []float32
	mono []float32
	tap  *graph.Bus

	frames atomic.Int64
	done   atomic.Bool
}

const converterChunk = 4096

func newConverter(src io.Reader, srcRate, srcCh, dstRate, dstCh int, tap *graph.Bus) *converter {
	if srcCh <= 0 {
		srcCh = 1
	}
	if dstCh <= 0 {
		dstCh = srcCh
	}
	step := 1.0
	if srcRate > 0 && dstRate > 0 {
		step = float64(srcRate) / float64(dstRate)
	}
	return &converter{
		src:   src,
		srcCh: srcCh,
		dstCh: dstCh,
		step:  step,
		prev:  make([]float32, srcCh),
		next:  make([]float32, srcCh),
		raw:   make([]byte, converterChunk*2*srcCh),
		tap:   tap,
	}
}

// Frames reports the output position in frames, counted from the start of
// the track.
func (c *converter) Frames() int64 { return c.frames.Load() }

// Exhausted reports whether the source has ended.
func (c *converter) Exhausted() bool { return c.done.Load() }

func (c *converter) Read(p []byte) (int, error) {
	if c.done.Load() {
		return 0, io.EOF
	}
	want := len(p) / (2 * c.dstCh)
	if want == 0 {
		return 0, nil
	}
	if !c.primed {
		if !c.frame(c.prev) || !c.frame(c.next) {
			c.done.Store(true)
			return 0, io.EOF
		}
		c.primed = true
	}

	c.out = c.out[:0]
	produced := 0
	for produced < want {
		for c.frac >= 1 {
			c.prev, c.next = c.next, c.prev
			if !c.frame(c.next) {
				c.done.Store(true)
				break
			}
			c.frac--
		}
		if c.done.Load() {
			break
		}
		t := float32(c.frac)
		for ch := 0; ch < c.dstCh; ch++ {
			src := ch
			if src >= c.srcCh {
				src = c.srcCh - 1
			}
			a := c.prev[src]
			c.out = append(c.out, a+(c.next[src]-a)*t)
		}
		c.frac += c.step
		produced++
	}

	for i, s := range c.out {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(p[i*2:], uint16(int16(s*32767)))
	}
	if produced > 0 {
		c.frames.Add(int64(produced))
		if c.tap != nil {
			c.mono = graph.Mixdown(c.out, c.dstCh, c.mono)
			c.tap.Emit(c.mono)
		}
	}
	if produced == 0 {
		return 0, io.EOF
	}
	return produced * 2 * c.dstCh, nil
}

// frame fills dst with the next source frame, refilling the queue as needed.
func (c *converter) frame(dst []float32) bool {
	if c.qpos+c.srcCh > len(c.queue) {
		if !c.refill() {
			return false
		}
	}
	copy(dst, c.queue[c.qpos:c.qpos+c.srcCh])
	c.qpos += c.srcCh
	return true
}

func (c *converter) refill() bool {
	n, err := io.ReadAtLeast(c.src, c.raw[c.partial:], 2*c.srcCh)
	n += c.partial
	frameBytes := 2 * c.srcCh
	whole := n / frameBytes * frameBytes
	if whole == 0 {
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warnf("decode: %v", err)
		}
		return false
	}

	c.queue = c.queue[:0]
	for i := 0; i < whole; i += 2 {
		c.queue = append(c.queue, float32(int16(binary.LittleEndian.Uint16(c.raw[i:])))/32768)
	}
	c.qpos = 0
	c.partial = copy(c.raw, c.raw[whole:n])
	return true
}
