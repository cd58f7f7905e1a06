package visualizer

import (
	"fmt"
	"strings"
)

// Mode selects which generators are drawn.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeMembrane  Mode = "harmonic-membrane"
	ModeLattice   Mode = "fourier-lattice"
	ModeParticles Mode = "lissajous-orbits"
)

// Modes lists every mode in cycling order.
func Modes() []Mode {
	return []Mode{ModeAll, ModeMembrane, ModeLattice, ModeParticles}
}

// ParseMode accepts the mode names plus the short forms membrane, lattice
// and particles.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return ModeAll, nil
	case "harmonic-membrane", "membrane":
		return ModeMembrane, nil
	case "fourier-lattice", "lattice":
		return ModeLattice, nil
	case "lissajous-orbits", "particles", "orbits":
		return ModeParticles, nil
	default:
		return "", fmt.Errorf("unknown visualization mode %q", name)
	}
}

// Next returns the following mode, wrapping around.
func (m Mode) Next() Mode {
	all := Modes()
	for i, candidate := range all {
		if candidate == m {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}
