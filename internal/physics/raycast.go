package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"chunkworld/internal/profiling"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 5.0
)

// BlockQuery is the read side of a block world. Cell (x, y, z) spans
// [x, x+1) on each axis.
type BlockQuery interface {
	HasBlock(x, y, z int) bool
}

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	HitPosition      [3]int
	AdjacentPosition [3]int
	Distance         float32
	Hit              bool
}

func cellOf(p mgl32.Vec3) [3]int {
	return [3]int{
		int(math.Floor(float64(p.X()))),
		int(math.Floor(float64(p.Y()))),
		int(math.Floor(float64(p.Z()))),
	}
}

// Raycast marches from start along direction and reports the first solid cell
// between minDist and maxDist. AdjacentPosition is the last empty cell crossed.
func Raycast(start, direction mgl32.Vec3, minDist, maxDist float32, q BlockQuery) RaycastResult {
	defer profiling.Track("physics.Raycast")()
	if direction.Len() == 0 {
		return RaycastResult{}
	}
	direction = direction.Normalize()
	stepSize := float32(0.02)
	steps := int(maxDist / stepSize)

	lastEmpty := cellOf(start)
	for i := 0; i <= steps; i++ {
		dist := float32(i) * stepSize
		if dist < minDist {
			continue
		}
		cell := cellOf(start.Add(direction.Mul(dist)))
		if q.HasBlock(cell[0], cell[1], cell[2]) {
			return RaycastResult{
				HitPosition:      cell,
				AdjacentPosition: lastEmpty,
				Distance:         dist,
				Hit:              true,
			}
		}
		lastEmpty = cell
	}
	return RaycastResult{}
}
