package world

import (
	"math"
)

// Deterministic 2D gradient noise. The permutation table is shuffled by a
// SplitMix64 stream seeded from the world seed, so identical seeds produce
// identical fields across runs and platforms.

// SeedMask keeps seeds in the non-negative 31-bit range.
const SeedMask = 0x7fffffff

// Noise samples coherent 2D noise for one seed.
type Noise struct {
	seed int64
	perm [512]uint8
}

// NewNoise builds a noise field for seed. Out-of-range seeds wrap into 31 bits.
func NewNoise(seed int64) *Noise {
	n := &Noise{seed: seed & SeedMask}
	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	rng := splitMix64(uint64(n.seed))
	for i := len(p) - 1; i > 0; i-- {
		j := int(rng.next() % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}
	for i := range n.perm {
		n.perm[i] = p[i&255]
	}
	return n
}

// Seed returns the effective (masked) seed.
func (n *Noise) Seed() int64 {
	return n.seed
}

// Sample returns noise at (x, y) in [-1, 1].
func (n *Noise) Sample(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	xi := int(x0) & 255
	yi := int(y0) & 255
	xf := x - x0
	yf := y - y0

	u := fade(xf)
	v := fade(yf)

	aa := n.perm[int(n.perm[xi])+yi]
	ab := n.perm[int(n.perm[xi])+yi+1]
	ba := n.perm[int(n.perm[xi+1])+yi]
	bb := n.perm[int(n.perm[xi+1])+yi+1]

	x1 := lerp(grad(aa, xf, yf), grad(ba, xf-1, yf), u)
	x2 := lerp(grad(ab, xf, yf-1), grad(bb, xf-1, yf-1), u)
	out := lerp(x1, x2, v)

	// Edge gradients can overshoot by a hair.
	return math.Max(-1, math.Min(1, out))
}

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func grad(hash uint8, x, y float64) float64 {
	switch hash & 7 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	case 3:
		return -x - y
	case 4:
		return x
	case 5:
		return -x
	case 6:
		return y
	default:
		return -y
	}
}

type splitMix struct{ state uint64 }

func splitMix64(seed uint64) *splitMix {
	return &splitMix{state: seed}
}

func (s *splitMix) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	v := s.state
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}
