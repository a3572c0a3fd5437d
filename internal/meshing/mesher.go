package meshing

import (
	"chunkworld/internal/profiling"
	"chunkworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one corner of an emitted quad.
type Vertex struct {
	Pos    mgl32.Vec3
	Normal mgl32.Vec3
	Color  mgl32.Vec3
	UV     mgl32.Vec2
}

// Mesh is the triangulated surface of one chunk.
type Mesh struct {
	Chunk    world.ChunkPos
	Vertices []Vertex
	Indices  []uint32
}

// QuadCount returns the number of emitted faces.
func (m *Mesh) QuadCount() int { return len(m.Vertices) / 4 }

// VertexCount returns len(Vertices).
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// TriangleCount returns len(Indices)/3.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// faceCorners lists each face's unit-cube corners, counter-clockwise when
// seen from outside, so (c1-c0)x(c2-c0) points along the face normal.
var faceCorners = [6][4]mgl32.Vec3{
	world.FaceNorth:  {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	world.FaceSouth:  {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	world.FaceEast:   {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	world.FaceWest:   {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	world.FaceTop:    {{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	world.FaceBottom: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
}

var cornerUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// BuildChunkMesh emits one quad per exposed voxel face. Neighbors outside the
// chunk count as transparent, so chunk edges always carry faces.
func BuildChunkMesh(v *world.Volume, pos world.ChunkPos) *Mesh {
	defer profiling.Track("meshing.BuildChunkMesh")()

	m := &Mesh{
		Chunk:    pos,
		Vertices: make([]Vertex, 0, 1024),
		Indices:  make([]uint32, 0, 1536),
	}
	ox, oz := pos.Origin()
	base := mgl32.Vec3{float32(ox), 0, float32(oz)}

	for z := range world.ChunkSize {
		for y := range world.ChunkSize {
			for x := range world.ChunkSize {
				bt := v[world.Index(x, y, z)]
				if bt == world.BlockTypeAir {
					continue
				}
				for _, face := range world.Faces {
					dx, dy, dz := face.Offset()
					nx, ny, nz := x+dx, y+dy, z+dz
					if world.InBounds(nx, ny, nz) && !world.IsTransparent(v[world.Index(nx, ny, nz)]) {
						continue
					}
					m.emitQuad(base.Add(mgl32.Vec3{float32(x), float32(y), float32(z)}), bt, face)
				}
			}
		}
	}
	return m
}

func (m *Mesh) emitQuad(cell mgl32.Vec3, bt world.BlockType, face world.BlockFace) {
	first := uint32(len(m.Vertices))
	normal := face.Normal()
	color := world.GetBlockColor(bt, face)
	region := RegionFor(bt)
	for i, c := range faceCorners[face] {
		m.Vertices = append(m.Vertices, Vertex{
			Pos:    cell.Add(c),
			Normal: normal,
			Color:  color,
			UV:     region.UV(cornerUVs[i]),
		})
	}
	m.Indices = append(m.Indices,
		first, first+1, first+2,
		first+2, first+3, first,
	)
}
