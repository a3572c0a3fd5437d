package world

import (
	"math"
	"math/rand/v2"

	"chunkworld/internal/profiling"
)

// GenSettings holds the terrain generation constants.
type GenSettings struct {
	Frequency       float64 // horizontal noise frequency per block
	Amplitude       float64 // height swing in blocks
	VerticalOffset  int     // base surface height
	SubsurfaceDepth int     // dirt layers below the surface block
	TreeChance      float64 // per eligible column
	TreeMargin      int     // columns closer than this to a chunk edge get no trees
	CornerDropRate  float64 // chance to drop each canopy ring corner
}

// DefaultGenSettings returns the stock terrain constants.
func DefaultGenSettings() GenSettings {
	return GenSettings{
		Frequency:       0.05,
		Amplitude:       4,
		VerticalOffset:  8,
		SubsurfaceDepth: 3,
		TreeChance:      0.01,
		TreeMargin:      2,
		CornerDropRate:  0.4,
	}
}

// RandSource is the randomness used by the vegetation pass.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

// globalRand draws from the process-wide unseeded generator.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// TerrainGenerator produces chunk volumes.
type TerrainGenerator interface {
	Generate(pos ChunkPos) *Volume
	HeightAt(worldX, worldZ int) int
}

// Generator handles terrain generation logic.
type Generator struct {
	noise    *Noise
	settings GenSettings
	rng      RandSource
}

// NewGenerator creates a generator for seed. Vegetation uses unseeded
// randomness, so only the height layout is reproducible.
func NewGenerator(seed int64, settings GenSettings) *Generator {
	return &Generator{
		noise:    NewNoise(seed),
		settings: settings,
		rng:      globalRand{},
	}
}

// WithRand swaps the vegetation randomness, mostly for tests.
func (g *Generator) WithRand(r RandSource) *Generator {
	g.rng = r
	return g
}

// Seed returns the effective seed.
func (g *Generator) Seed() int64 {
	return g.noise.Seed()
}

// HeightAt computes the surface block y at world X,Z.
func (g *Generator) HeightAt(worldX, worldZ int) int {
	s := g.settings
	n := g.noise.Sample(float64(worldX)*s.Frequency, float64(worldZ)*s.Frequency)
	h := int(math.Floor(n*s.Amplitude)) + s.VerticalOffset
	return min(max(h, 1), ChunkSize-1)
}

// Generate builds a fresh volume for pos: heights first, then trees.
func (g *Generator) Generate(pos ChunkPos) *Volume {
	defer profiling.Track("world.Generate")()
	v := &Volume{}
	g.fillHeights(v, pos)
	g.plantTrees(v)
	profiling.Count("world.chunksGenerated", 1)
	return v
}

func (g *Generator) fillHeights(v *Volume, pos ChunkPos) {
	ox, oz := pos.Origin()
	sub := g.settings.SubsurfaceDepth
	for lz := range ChunkSize {
		for lx := range ChunkSize {
			h := g.HeightAt(ox+lx, oz+lz)
			v.Set(lx, 0, lz, BlockTypeBedrock)
			for y := 1; y < h; y++ {
				if y >= h-sub {
					v.Set(lx, y, lz, SubsurfaceBlock)
				} else {
					v.Set(lx, y, lz, BaseRockBlock)
				}
			}
			v.Set(lx, h, lz, SurfaceBlock)
		}
	}
}

func (g *Generator) plantTrees(v *Volume) {
	m := g.settings.TreeMargin
	for lz := m; lz < ChunkSize-m; lz++ {
		for lx := m; lx < ChunkSize-m; lx++ {
			top := v.TopY(lx, lz)
			if top < 0 || v.Get(lx, top, lz) != SurfaceBlock {
				continue
			}
			if g.rng.Float64() >= g.settings.TreeChance {
				continue
			}
			g.placeTree(v, lx, top+1, lz)
		}
	}
}

// placeTree grows a trunk from baseY and a ring canopy around its top.
func (g *Generator) placeTree(v *Volume, x, baseY, z int) {
	trunkHeight := 4 + g.rng.IntN(2) // 4-5
	trunkTop := baseY + trunkHeight - 1
	for y := baseY; y <= trunkTop; y++ {
		v.Set(x, y, z, BlockTypeLog)
	}

	// Rings at trunkTop-1 and trunkTop are radius 2, the cap above is radius 1.
	for y := trunkTop - 1; y <= trunkTop+1; y++ {
		radius := 2
		if y == trunkTop+1 {
			radius = 1
		}
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) == radius && abs(dz) == radius && g.rng.Float64() < g.settings.CornerDropRate {
					continue
				}
				lx, lz := x+dx, z+dz
				if !InBounds(lx, y, lz) {
					continue
				}
				if v.Get(lx, y, lz) != BlockTypeAir {
					continue
				}
				v.Set(lx, y, lz, FoliageBlock)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
