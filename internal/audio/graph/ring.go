package graph

import "sync"

// Ring is a thread-safe circular sample buffer that always holds the most
// recent len(buffer) samples written to it.
type Ring struct {
	mu     sync.Mutex
	buffer []float32
	index  int
	filled int
}

// NewRing allocates a ring holding size samples.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{buffer: make([]float32, size)}
}

// Len returns the capacity in samples.
func (r *Ring) Len() int { return len(r.buffer) }

// Write appends samples, overwriting the oldest ones. It satisfies Sink.
func (r *Ring) Write(in []float32) {
	if len(in) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buffer)
	if len(in) >= size {
		copy(r.buffer, in[len(in)-size:])
		r.index = 0
		r.filled = size
		return
	}

	if r.index+len(in) <= size {
		copy(r.buffer[r.index:], in)
	} else {
		remaining := size - r.index
		copy(r.buffer[r.index:], in[:remaining])
		copy(r.buffer, in[remaining:])
	}
	r.index = (r.index + len(in)) % size
	r.filled += len(in)
	if r.filled > size {
		r.filled = size
	}
}

// Latest copies the most recent len(dst) samples into dst in chronological
// order. When fewer samples were written the front of dst is zeroed.
func (r *Ring) Latest(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	available := r.filled
	if available > n {
		available = n
	}
	pad := n - available
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	if available == 0 {
		return
	}

	size := len(r.buffer)
	start := (r.index - available + size) % size
	if start+available <= size {
		copy(dst[pad:], r.buffer[start:start+available])
		return
	}
	first := size - start
	copy(dst[pad:], r.buffer[start:])
	copy(dst[pad+first:], r.buffer[:available-first])
}

// Reset forgets every written sample.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.buffer {
		r.buffer[i] = 0
	}
	r.index = 0
	r.filled = 0
}
