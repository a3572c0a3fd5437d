package world

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// BlockType is a small unsigned block id. 0 is always air.
type BlockType uint8

const (
	BlockTypeAir BlockType = iota
	BlockTypeGrass
	BlockTypeDirt
	BlockTypeStone
	BlockTypeBedrock
	BlockTypeLog
	BlockTypeLeaves
)

// Terrain layer roles
const (
	SurfaceBlock    = BlockTypeGrass
	SubsurfaceBlock = BlockTypeDirt
	BaseRockBlock   = BlockTypeStone
	FoliageBlock    = BlockTypeLeaves
)

// Unbreakable is returned by BreakTime for blocks that cannot be mined.
const Unbreakable time.Duration = -1

// breakSecondsPerHardness converts hardness into bare-hand mining time.
const breakSecondsPerHardness = 1.5

// BlockFace identifies a face of a block
type BlockFace int

const (
	FaceNorth BlockFace = iota // +Z
	FaceSouth                  // -Z
	FaceEast                   // +X
	FaceWest                   // -X
	FaceTop                    // +Y
	FaceBottom                 // -Y
)

// Faces lists every face in emission order.
var Faces = [6]BlockFace{FaceNorth, FaceSouth, FaceEast, FaceWest, FaceTop, FaceBottom}

// Normal returns the outward unit normal of the face.
func (f BlockFace) Normal() mgl32.Vec3 {
	switch f {
	case FaceNorth:
		return mgl32.Vec3{0, 0, 1}
	case FaceSouth:
		return mgl32.Vec3{0, 0, -1}
	case FaceEast:
		return mgl32.Vec3{1, 0, 0}
	case FaceWest:
		return mgl32.Vec3{-1, 0, 0}
	case FaceTop:
		return mgl32.Vec3{0, 1, 0}
	default:
		return mgl32.Vec3{0, -1, 0}
	}
}

// Offset returns the integer step toward the neighbor across the face.
func (f BlockFace) Offset() (dx, dy, dz int) {
	n := f.Normal()
	return int(n[0]), int(n[1]), int(n[2])
}

// BlockDefinition defines the properties of a block type
type BlockDefinition struct {
	ID          BlockType
	Name        string
	Transparent bool
	Hardness    float32 // scaled by breakSecondsPerHardness; negative means unbreakable
	SideTint    mgl32.Vec3
	TopTint     mgl32.Vec3
}

var blocks = map[BlockType]*BlockDefinition{
	BlockTypeAir:     {ID: BlockTypeAir, Name: "air", Transparent: true},
	BlockTypeGrass:   {ID: BlockTypeGrass, Name: "grass", Hardness: 0.6, SideTint: mgl32.Vec3{0.55, 0.42, 0.27}, TopTint: mgl32.Vec3{0.36, 0.70, 0.25}},
	BlockTypeDirt:    {ID: BlockTypeDirt, Name: "dirt", Hardness: 0.5, SideTint: mgl32.Vec3{0.53, 0.38, 0.24}},
	BlockTypeStone:   {ID: BlockTypeStone, Name: "stone", Hardness: 1.5, SideTint: mgl32.Vec3{0.50, 0.50, 0.50}},
	BlockTypeBedrock: {ID: BlockTypeBedrock, Name: "bedrock", Hardness: -1, SideTint: mgl32.Vec3{0.20, 0.20, 0.22}},
	BlockTypeLog:     {ID: BlockTypeLog, Name: "log", Hardness: 2.0, SideTint: mgl32.Vec3{0.40, 0.30, 0.18}},
	BlockTypeLeaves:  {ID: BlockTypeLeaves, Name: "leaves", Transparent: true, Hardness: 0.2, SideTint: mgl32.Vec3{0.22, 0.55, 0.20}},
}

func init() {
	for _, def := range blocks {
		if def.TopTint == (mgl32.Vec3{}) {
			def.TopTint = def.SideTint
		}
	}
}

// Definition returns the registered definition for t, or nil.
func Definition(t BlockType) *BlockDefinition {
	return blocks[t]
}

func (t BlockType) String() string {
	if def := Definition(t); def != nil {
		return def.Name
	}
	return fmt.Sprintf("block(%d)", uint8(t))
}

// IsTransparent reports whether faces next to t should be emitted.
func IsTransparent(t BlockType) bool {
	return t == BlockTypeAir || t == FoliageBlock
}

// GetBlockColor returns the flat tint for a block face.
func GetBlockColor(t BlockType, face BlockFace) mgl32.Vec3 {
	def, ok := blocks[t]
	if !ok {
		return mgl32.Vec3{1, 0, 1} // unknown ids stand out
	}
	if face == FaceTop {
		return def.TopTint
	}
	return def.SideTint
}

// BreakTime returns how long it takes to mine t by hand.
func BreakTime(t BlockType) time.Duration {
	if t == BlockTypeAir {
		return 0
	}
	def, ok := blocks[t]
	if !ok {
		return time.Duration(breakSecondsPerHardness * float64(time.Second))
	}
	if def.Hardness < 0 {
		return Unbreakable
	}
	return time.Duration(float64(def.Hardness) * breakSecondsPerHardness * float64(time.Second))
}
