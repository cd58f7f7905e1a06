package graph

import (
	"errors"
	"testing"
)

type countingSink struct {
	samples int
}

func (c *countingSink) Write(s []float32) { c.samples += len(s) }

func TestBusConnectEmitDisconnect(t *testing.T) {
	bus := NewBus(48_000)
	sink := &countingSink{}

	if err := bus.Connect(sink); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := bus.Connect(sink); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if bus.Connected() != 1 {
		t.Fatalf("connected=%d want 1", bus.Connected())
	}

	bus.Emit([]float32{1, 2, 3})
	if sink.samples != 3 {
		t.Fatalf("sink received %d samples want 3", sink.samples)
	}

	if err := bus.Disconnect(sink); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := bus.Disconnect(sink); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("second disconnect err=%v want ErrNotConnected", err)
	}

	bus.Emit([]float32{1})
	if sink.samples != 3 {
		t.Fatalf("detached sink still received samples")
	}
}

func TestMixdown(t *testing.T) {
	got := Mixdown([]float32{1, 0, 0.5, 0.5, -1, 1}, 2, nil)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mixdown[%d]=%f want %f", i, got[i], want[i])
		}
	}
}

func TestRingLatestZeroPadsAndWraps(t *testing.T) {
	r := NewRing(4)
	dst := make([]float32, 4)

	r.Write([]float32{1, 2})
	r.Latest(dst)
	if dst[0] != 0 || dst[1] != 0 || dst[2] != 1 || dst[3] != 2 {
		t.Fatalf("partial ring: %v", dst)
	}

	r.Write([]float32{3, 4, 5})
	r.Latest(dst)
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("wrapped ring: %v want %v", dst, want)
		}
	}

	short := make([]float32, 2)
	r.Latest(short)
	if short[0] != 4 || short[1] != 5 {
		t.Fatalf("short read: %v", short)
	}

	r.Write([]float32{6, 7, 8, 9, 10})
	r.Latest(dst)
	if dst[0] != 7 || dst[3] != 10 {
		t.Fatalf("oversized write: %v", dst)
	}
}

func TestBusResetClearsHistory(t *testing.T) {
	bus := NewBus(48_000)
	ring := NewRing(4)
	plain := &countingSink{}
	_ = bus.Connect(ring)
	_ = bus.Connect(plain)

	bus.Emit([]float32{0.5, -0.5, 0.25, 1})
	bus.Reset()

	got := make([]float32, 4)
	ring.Latest(got)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("latest[%d]=%f after reset, want 0", i, v)
		}
	}
	if plain.samples != 4 {
		t.Fatalf("sink without history touched by reset: %d", plain.samples)
	}
}
