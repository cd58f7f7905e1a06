package visualizer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFrameLoopDefersNestedRequests(t *testing.T) {
	loop := NewFrameLoop(60)
	var calls int
	var fn FrameFunc
	fn = func(time.Time) {
		calls++
		loop.RequestFrame(fn)
	}
	loop.RequestFrame(fn)

	if n := loop.Tick(time.Now()); n != 1 {
		t.Fatalf("first tick ran %d callbacks", n)
	}
	if calls != 1 || loop.Pending() != 1 {
		t.Fatalf("calls=%d pending=%d, want 1/1", calls, loop.Pending())
	}
	loop.Tick(time.Now())
	if calls != 2 {
		t.Fatalf("calls = %d after second tick", calls)
	}
}

func TestFrameLoopCancel(t *testing.T) {
	loop := NewFrameLoop(30)
	if loop.Interval() != time.Second/30 {
		t.Fatalf("interval = %v", loop.Interval())
	}
	h := loop.RequestFrame(func(time.Time) { t.Fatal("cancelled frame ran") })
	loop.CancelFrame(h)
	loop.CancelFrame(h)
	loop.CancelFrame(FrameHandle(999))
	if n := loop.Tick(time.Now()); n != 0 {
		t.Fatalf("tick ran %d callbacks", n)
	}
}

func TestFrameLoopPollersRunFirst(t *testing.T) {
	loop := NewFrameLoop(60)
	var order []string
	loop.AddPoller(func() { order = append(order, "poll") })
	loop.RequestFrame(func(time.Time) { order = append(order, "frame") })
	loop.Tick(time.Now())
	loop.Tick(time.Now())
	want := []string{"poll", "frame", "poll"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestFrameLoopRunStopsOnCancel(t *testing.T) {
	loop := NewFrameLoop(240)
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	loop.RequestFrame(func(time.Time) {
		ran <- struct{}{}
		cancel()
	})
	err := loop.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	select {
	case <-ran:
	default:
		t.Fatal("frame never ran")
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":                  ModeAll,
		"ALL":               ModeAll,
		"membrane":          ModeMembrane,
		"harmonic-membrane": ModeMembrane,
		"lattice":           ModeLattice,
		"particles":         ModeParticles,
		"lissajous-orbits":  ModeParticles,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if ModeParticles.Next() != ModeAll {
		t.Fatalf("mode cycle does not wrap")
	}
}
