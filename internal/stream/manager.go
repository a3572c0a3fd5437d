// Package stream owns the in-memory voxel world: the chunk cache, dirty and
// known-key tracking, load/generate/evict transitions and per-chunk meshes.
//
// A Manager is driven from a single goroutine. Store I/O runs on background
// goroutines, but its results are only applied inside Update, Flush and the
// world lifecycle calls, on the owner goroutine.
package stream

import (
	"log/slog"
	"math/rand/v2"

	"chunkworld/internal/config"
	"chunkworld/internal/meshing"
	"chunkworld/internal/storage"
	"chunkworld/internal/world"
)

// MeshSink is the rendering collaborator. MeshReady is called when a chunk
// mesh is created or replaced; MeshReleased when the mesh is disposed.
type MeshSink interface {
	MeshReady(pos world.ChunkPos, m *meshing.Mesh)
	MeshReleased(pos world.ChunkPos)
}

type nopSink struct{}

func (nopSink) MeshReady(world.ChunkPos, *meshing.Mesh) {}
func (nopSink) MeshReleased(world.ChunkPos)             {}

// Options configures a Manager.
type Options struct {
	ActiveRadius    int // Chebyshev radius in chunks
	CacheCap        int // eviction only runs above this many cached volumes
	EvictBatch      int // volumes dropped per eviction pass
	SaveConcurrency int // parallel chunk writes in SaveWorld
	Eviction        EvictionPolicy
	Terrain         world.GenSettings

	Logger *slog.Logger
	Sink   MeshSink

	// NewGenerator builds the terrain generator for a seed. Defaults to world.NewGenerator.
	NewGenerator func(seed int64, s world.GenSettings) world.TerrainGenerator
	// SeedSource rolls fresh world seeds. Defaults to a random 31-bit seed.
	SeedSource func() int64
}

// DefaultOptions mirrors config.Default().
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the file configuration onto manager options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ActiveRadius:    cfg.Stream.ActiveRadius,
		CacheCap:        cfg.Stream.CacheCap,
		EvictBatch:      cfg.Stream.EvictBatch,
		SaveConcurrency: cfg.Stream.SaveConcurrency,
		Eviction:        ProbabilisticPolicy{P: cfg.Stream.EvictProbability},
		Terrain: world.GenSettings{
			Frequency:       cfg.Terrain.Frequency,
			Amplitude:       cfg.Terrain.Amplitude,
			VerticalOffset:  cfg.Terrain.VerticalOffset,
			SubsurfaceDepth: cfg.Terrain.SubsurfaceDepth,
			TreeChance:      cfg.Terrain.TreeChance,
			TreeMargin:      cfg.Terrain.TreeMargin,
			CornerDropRate:  cfg.Terrain.CornerDropRate,
		},
	}
}

func (o *Options) fill() {
	def := config.Default()
	if o.ActiveRadius <= 0 {
		o.ActiveRadius = def.Stream.ActiveRadius
	}
	if o.CacheCap <= 0 {
		o.CacheCap = def.Stream.CacheCap
	}
	if o.EvictBatch <= 0 {
		o.EvictBatch = def.Stream.EvictBatch
	}
	if o.SaveConcurrency <= 0 {
		o.SaveConcurrency = def.Stream.SaveConcurrency
	}
	if o.Eviction == nil {
		o.Eviction = ProbabilisticPolicy{P: def.Stream.EvictProbability}
	}
	if o.Terrain == (world.GenSettings{}) {
		o.Terrain = world.DefaultGenSettings()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Sink == nil {
		o.Sink = nopSink{}
	}
	if o.NewGenerator == nil {
		o.NewGenerator = func(seed int64, s world.GenSettings) world.TerrainGenerator {
			return world.NewGenerator(seed, s)
		}
	}
	if o.SeedSource == nil {
		o.SeedSource = func() int64 { return rand.Int64N(world.SeedMask + 1) }
	}
}

// Manager is the world cache and streaming manager.
type Manager struct {
	store storage.Store
	opts  Options
	log   *slog.Logger

	seed int64
	gen  world.TerrainGenerator

	cache     map[world.ChunkPos]*world.Volume
	dirty     map[world.ChunkPos]uint64 // value: stamp of the last mutation
	known     map[world.ChunkPos]struct{}
	inflight  map[world.ChunkPos]struct{}
	writeback map[world.ChunkPos]*pendingWrite
	meshes    map[world.ChunkPos]*meshing.Mesh
	active    map[world.ChunkPos]struct{}

	center world.ChunkPos
	tick   uint64
	stamp  uint64
	epoch  uint64 // bumped by DeleteWorld/LoadWorld so stale completions are dropped

	tasks []*Task
	inbox inbox
}

// New creates a Manager over store with a freshly rolled seed. Call LoadWorld
// before streaming to pick up a persisted world.
func New(store storage.Store, opts Options) *Manager {
	opts.fill()
	m := &Manager{
		store: store,
		opts:  opts,
		log:   opts.Logger,
	}
	m.resetState()
	m.setSeed(opts.SeedSource())
	return m
}

func (m *Manager) resetState() {
	m.cache = make(map[world.ChunkPos]*world.Volume)
	m.dirty = make(map[world.ChunkPos]uint64)
	m.known = make(map[world.ChunkPos]struct{})
	m.inflight = make(map[world.ChunkPos]struct{})
	m.writeback = make(map[world.ChunkPos]*pendingWrite)
	m.meshes = make(map[world.ChunkPos]*meshing.Mesh)
	m.active = make(map[world.ChunkPos]struct{})
	m.epoch++
}

func (m *Manager) setSeed(seed int64) {
	m.seed = seed & world.SeedMask
	m.gen = m.opts.NewGenerator(m.seed, m.opts.Terrain)
}

// Seed returns the current world seed.
func (m *Manager) Seed() int64 {
	return m.seed
}

// Stats is a point-in-time view of the manager's bookkeeping.
type Stats struct {
	Tick      uint64
	Cached    int
	Dirty     int
	Known     int
	InFlight  int
	WriteBack int
	Meshes    int
	Tasks     int
}

// Stats returns current set sizes.
func (m *Manager) Stats() Stats {
	return Stats{
		Tick:      m.tick,
		Cached:    len(m.cache),
		Dirty:     len(m.dirty),
		Known:     len(m.known),
		InFlight:  len(m.inflight),
		WriteBack: len(m.writeback),
		Meshes:    len(m.meshes),
		Tasks:     len(m.tasks),
	}
}

// Mesh returns the current mesh of pos, if any.
func (m *Manager) Mesh(pos world.ChunkPos) (*meshing.Mesh, bool) {
	mesh, ok := m.meshes[pos]
	return mesh, ok
}

// IsDirty reports whether pos has unsaved changes.
func (m *Manager) IsDirty(pos world.ChunkPos) bool {
	_, ok := m.dirty[pos]
	return ok
}

// IsKnown reports whether pos is confirmed to exist in the store.
func (m *Manager) IsKnown(pos world.ChunkPos) bool {
	_, ok := m.known[pos]
	return ok
}

func (m *Manager) markDirty(pos world.ChunkPos) {
	m.stamp++
	m.dirty[pos] = m.stamp
}

// clearDirty drops the dirty flag only if nothing changed since stamp.
func (m *Manager) clearDirty(pos world.ChunkPos, stamp uint64) {
	if cur, ok := m.dirty[pos]; ok && cur == stamp {
		delete(m.dirty, pos)
	}
}

func (m *Manager) remesh(pos world.ChunkPos) {
	vol, ok := m.cache[pos]
	if !ok {
		return
	}
	if _, had := m.meshes[pos]; had {
		m.opts.Sink.MeshReleased(pos)
	}
	mesh := meshing.BuildChunkMesh(vol, pos)
	m.meshes[pos] = mesh
	m.opts.Sink.MeshReady(pos, mesh)
}

func (m *Manager) releaseMesh(pos world.ChunkPos) {
	if _, ok := m.meshes[pos]; !ok {
		return
	}
	delete(m.meshes, pos)
	m.opts.Sink.MeshReleased(pos)
}

func (m *Manager) releaseAllMeshes() {
	for pos := range m.meshes {
		m.releaseMesh(pos)
	}
}
