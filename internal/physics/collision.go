package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GroundLevel returns the top surface of the highest solid cell in the column
// under pos, scanning down from pos.Y. ok is false when the column is empty.
func GroundLevel(pos mgl32.Vec3, floor int, q BlockQuery) (y float32, ok bool) {
	bx := int(math.Floor(float64(pos.X())))
	bz := int(math.Floor(float64(pos.Z())))
	for by := int(math.Floor(float64(pos.Y()))); by >= floor; by-- {
		if q.HasBlock(bx, by, bz) {
			return float32(by + 1), true
		}
	}
	return 0, false
}
