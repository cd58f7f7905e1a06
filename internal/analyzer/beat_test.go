package analyzer

import (
	"testing"
	"time"
)

const frame = 1.0 / 60.0

func constant(value float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestConstantEnergyNeverFires(t *testing.T) {
	d := NewBeatDetector(BeatConfig{})
	samples := constant(0.5, 1024)
	for i := 0; i < 300; i++ {
		if st := d.Update(samples, frame); st.IsBeat {
			t.Fatalf("frame %d fired on constant energy: %+v", i, st)
		}
	}
}

func TestIsolatedSpikeFiresOnce(t *testing.T) {
	cfg := BeatConfig{HistorySize: 43, Sensitivity: 1.35, MinimumInterval: 200 * time.Millisecond}
	d := NewBeatDetector(cfg)

	quiet := constant(0.001, 1024)
	for i := 0; i < cfg.HistorySize; i++ {
		if st := d.Update(quiet, frame); st.IsBeat {
			t.Fatalf("quiet frame %d fired", i)
		}
	}

	spike := constant(0.9, 1024)
	first := d.Update(spike, frame)
	if !first.IsBeat {
		t.Fatalf("spike did not fire: %+v", first)
	}
	if first.Strength != 1 {
		t.Fatalf("strength=%f want 1 (clamped)", first.Strength)
	}

	beats := 1
	// The spike persists for just under the refractory interval.
	refractoryFrames := int(cfg.MinimumInterval.Seconds()/frame) - 1
	for i := 0; i < refractoryFrames; i++ {
		if st := d.Update(spike, frame); st.IsBeat {
			beats++
		}
	}
	if beats != 1 {
		t.Fatalf("beats=%d within refractory interval, want 1", beats)
	}
}

func TestNonBeatFramesReportZeroStrength(t *testing.T) {
	d := NewBeatDetector(BeatConfig{HistorySize: 4})
	for i := 0; i < 10; i++ {
		st := d.Update(constant(0.2, 64), frame)
		if st.Strength != 0 {
			t.Fatalf("frame %d strength=%f want 0", i, st.Strength)
		}
	}
}

func TestResetClearsHistory(t *testing.T) {
	d := NewBeatDetector(BeatConfig{HistorySize: 4})
	for i := 0; i < 4; i++ {
		d.Update(constant(0.01, 64), frame)
	}
	d.Reset()
	if st := d.Update(constant(0.9, 64), frame); st.IsBeat {
		t.Fatalf("beat fired before history refilled after reset")
	}
	if d.State().AverageEnergy != 0 {
		t.Fatalf("average=%f want 0 after reset", d.State().AverageEnergy)
	}
}

func TestSilenceAndEmptyBuffers(t *testing.T) {
	d := NewBeatDetector(BeatConfig{})
	for i := 0; i < 100; i++ {
		st := d.Update(nil, frame)
		if st.IsBeat || st.InstantEnergy != 0 {
			t.Fatalf("empty buffer produced %+v", st)
		}
		st = d.Update(make([]float32, 256), frame)
		if st.IsBeat {
			t.Fatalf("silence fired a beat")
		}
	}
}
