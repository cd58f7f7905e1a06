package analyzer

import "math"

// Levels summarises the byte spectrum into coarse bands, each in 0..1.
type Levels struct {
	Bass    float64 `json:"bass"`
	Mid     float64 `json:"mid"`
	Treble  float64 `json:"treble"`
	Overall float64 `json:"overall"`
}

// ComputeLevels averages the byte magnitudes inside the bass, mid and treble
// ranges. An empty spectrum or unknown sample rate yields zero levels.
func ComputeLevels(freq []uint8, sampleRate float64) Levels {
	if len(freq) == 0 || sampleRate <= 0 {
		return Levels{}
	}
	resolution := sampleRate / float64(2*len(freq))
	bass := bandLevel(freq, resolution, 20, 250)
	mid := bandLevel(freq, resolution, 250, 2000)
	treble := bandLevel(freq, resolution, 2000, 8000)
	return Levels{
		Bass:    bass,
		Mid:     mid,
		Treble:  treble,
		Overall: (bass + mid + treble) / 3,
	}
}

func bandLevel(freq []uint8, resolution, minHz, maxHz float64) float64 {
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(freq) {
		hi = len(freq)
	}
	if lo >= hi {
		return 0
	}
	sum := 0
	for _, v := range freq[lo:hi] {
		sum += int(v)
	}
	return clamp(float64(sum)/float64(hi-lo)/255, 0, 1)
}
