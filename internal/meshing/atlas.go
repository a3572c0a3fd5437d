package meshing

import (
	"chunkworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// AtlasInset shrinks every region so linear filtering never samples the neighbor.
const AtlasInset = float32(1.0 / 64.0)

// AtlasRegion is a rectangle in texture space.
type AtlasRegion struct {
	Min, Max mgl32.Vec2
}

// The atlas has two halves: opaque blocks on the left, foliage on the right.
var (
	SolidRegion   = AtlasRegion{Min: mgl32.Vec2{0, 0}, Max: mgl32.Vec2{0.5, 1}}
	FoliageRegion = AtlasRegion{Min: mgl32.Vec2{0.5, 0}, Max: mgl32.Vec2{1, 1}}
)

// RegionFor picks the atlas half for a block type.
func RegionFor(t world.BlockType) AtlasRegion {
	if t == world.FoliageBlock {
		return FoliageRegion
	}
	return SolidRegion
}

// UV maps a unit corner (0..1, 0..1) into the inset region.
func (r AtlasRegion) UV(corner mgl32.Vec2) mgl32.Vec2 {
	lo := r.Min.Add(mgl32.Vec2{AtlasInset, AtlasInset})
	hi := r.Max.Sub(mgl32.Vec2{AtlasInset, AtlasInset})
	return mgl32.Vec2{
		lo[0] + corner[0]*(hi[0]-lo[0]),
		lo[1] + corner[1]*(hi[1]-lo[1]),
	}
}
