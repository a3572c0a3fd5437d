package world

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ChunkSize is the side of the cubic chunk volume. The whole world height
	// fits in one chunk, there is no vertical chunking.
	ChunkSize   = 16
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

// ErrVolumeSize is returned when raw volume bytes have the wrong length.
var ErrVolumeSize = errors.New("volume length mismatch")

// ChunkPos identifies a chunk column by its X and Z chunk coordinates.
type ChunkPos struct {
	X, Z int
}

// Key returns the durable key "cx,cz".
func (p ChunkPos) Key() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Z)
}

func (p ChunkPos) String() string {
	return p.Key()
}

// Origin returns the world-space block coordinates of the chunk's (0,0,0) corner.
func (p ChunkPos) Origin() (x, z int) {
	return p.X * ChunkSize, p.Z * ChunkSize
}

// DistSq returns the squared planar distance between two chunk positions.
func (p ChunkPos) DistSq(o ChunkPos) int {
	dx := p.X - o.X
	dz := p.Z - o.Z
	return dx*dx + dz*dz
}

// ParseChunkKey is the inverse of ChunkPos.Key.
func ParseChunkKey(key string) (ChunkPos, error) {
	xs, zs, ok := strings.Cut(key, ",")
	if !ok {
		return ChunkPos{}, fmt.Errorf("chunk key %q: missing comma", key)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return ChunkPos{}, fmt.Errorf("chunk key %q: %w", key, err)
	}
	z, err := strconv.Atoi(zs)
	if err != nil {
		return ChunkPos{}, fmt.Errorf("chunk key %q: %w", key, err)
	}
	return ChunkPos{X: x, Z: z}, nil
}

// ChunkPosAt returns the chunk containing world block column (x, z).
func ChunkPosAt(x, z int) ChunkPos {
	return ChunkPos{X: FloorDiv(x, ChunkSize), Z: FloorDiv(z, ChunkSize)}
}

// Volume is the flat block array of one chunk, indexed x + y*S + z*S*S.
type Volume [ChunkVolume]BlockType

// Index converts local coordinates to the flat index.
func Index(x, y, z int) int {
	return x + y*ChunkSize + z*ChunkSize*ChunkSize
}

// InBounds reports whether local coordinates fall inside a chunk.
func InBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}

// Get returns the block at local coordinates, or air when out of bounds.
func (v *Volume) Get(x, y, z int) BlockType {
	if !InBounds(x, y, z) {
		return BlockTypeAir
	}
	return v[Index(x, y, z)]
}

// Set writes a block at local coordinates. Out-of-bounds writes are dropped.
func (v *Volume) Set(x, y, z int, t BlockType) {
	if !InBounds(x, y, z) {
		return
	}
	v[Index(x, y, z)] = t
}

// TopY returns the y of the topmost non-air block in column (x, z), or -1.
func (v *Volume) TopY(x, z int) int {
	for y := ChunkSize - 1; y >= 0; y-- {
		if v[Index(x, y, z)] != BlockTypeAir {
			return y
		}
	}
	return -1
}

// Clone returns an independent copy of the volume.
func (v *Volume) Clone() *Volume {
	c := *v
	return &c
}

// Bytes returns the raw one-byte-per-voxel layout.
func (v *Volume) Bytes() []byte {
	out := make([]byte, ChunkVolume)
	for i, b := range v {
		out[i] = byte(b)
	}
	return out
}

// VolumeFromBytes decodes the raw layout produced by Bytes.
func VolumeFromBytes(data []byte) (*Volume, error) {
	if len(data) != ChunkVolume {
		return nil, fmt.Errorf("%w: got %d want %d", ErrVolumeSize, len(data), ChunkVolume)
	}
	v := &Volume{}
	for i, b := range data {
		v[i] = BlockType(b)
	}
	return v, nil
}

// FloorDiv divides rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// Mod returns the non-negative remainder of a/b. b must be positive.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
