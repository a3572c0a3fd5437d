package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"

	"chunkworld/internal/clock"
	"chunkworld/internal/config"
	"chunkworld/internal/meshing"
	"chunkworld/internal/physics"
	"chunkworld/internal/profiling"
	"chunkworld/internal/snapshot"
	"chunkworld/internal/storage"
	"chunkworld/internal/stream"
	"chunkworld/internal/world"
)

const eyeHeight = 1.6

// meshStats stands in for a renderer: it only tracks what would be on screen.
type meshStats struct {
	live  map[world.ChunkPos]int
	quads int
}

func (s *meshStats) MeshReady(pos world.ChunkPos, m *meshing.Mesh) {
	s.quads += m.QuadCount() - s.live[pos]
	s.live[pos] = m.QuadCount()
}

func (s *meshStats) MeshReleased(pos world.ChunkPos) {
	s.quads -= s.live[pos]
	delete(s.live, pos)
}

func main() {
	defer closer.Close()

	var (
		cfgPath    = flag.String("config", "chunkworld.yaml", "config file (missing file means defaults)")
		dbPath     = flag.String("db", "", "override store.path")
		profile    = flag.String("profile", "", "override profile: desktop or constrained")
		ticks      = flag.Int("ticks", 600, "ticks to run, 0 runs until interrupted")
		tickEvery  = flag.Duration("tick", 50*time.Millisecond, "tick interval")
		speed      = flag.Float64("speed", 0.5, "viewer speed along +X in blocks per tick")
		exportPath = flag.String("export", "", "write a snapshot archive on exit")
		importPath = flag.String("import", "", "replace the store with a snapshot archive before loading")
		reset      = flag.Bool("reset", false, "delete the saved world before starting")
		digEvery   = flag.Int("dig", 0, "break the block ahead of the viewer every N ticks, 0 disables")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		closer.Fatalln("load config:", err)
	}
	if *profile != "" {
		p := config.ForProfile(*profile)
		cfg.Profile = p.Profile
		cfg.Stream.ActiveRadius = p.Stream.ActiveRadius
		cfg.Stream.EvictProbability = p.Stream.EvictProbability
		cfg.Stream.SaveConcurrency = p.Stream.SaveConcurrency
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		closer.Fatalln(err)
	}
	cfg.Normalize()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()
	store := storage.NewSQLiteStore(cfg.Store.Path, log)

	if *importPath != "" {
		h, err := snapshot.Import(ctx, store, *importPath)
		if err != nil {
			log.Error("import snapshot", "error", err)
			closer.Fatalln(err)
		}
		log.Info("imported snapshot", "path", *importPath, "chunks", h.Chunks, "seed", h.Seed)
	}

	sink := &meshStats{live: make(map[world.ChunkPos]int)}
	opts := stream.OptionsFromConfig(cfg)
	opts.Logger = log
	opts.Sink = sink
	mgr := stream.New(store, opts)

	if *reset {
		if err := mgr.DeleteWorld(ctx); err != nil {
			log.Error("delete world", "error", err)
			closer.Fatalln(err)
		}
	}
	res, err := mgr.LoadWorld(ctx)
	if err != nil {
		log.Error("load world", "error", err)
		closer.Fatalln(err)
	}

	viewer := mgl32.Vec3{8, 0, 8}
	if res.Position != nil {
		viewer = mgl32.Vec3{float32(res.Position.X), float32(res.Position.Y), float32(res.Position.Z)}
	}
	inventory := res.Inventory
	log.Info("starting", "profile", cfg.Profile, "seed", mgr.Seed(), "viewer", viewer, "radius", cfg.Stream.ActiveRadius)

	// The manager is single-owner; the exit hook takes the same lock as the tick loop.
	var mu sync.Mutex
	closer.Bind(func() {
		mu.Lock()
		defer mu.Unlock()
		saveOnExit(mgr, store, log, viewer, inventory, *exportPath)
	})

	limiter := clock.NewLimiter(*tickEvery)
	for i := 0; *ticks == 0 || i < *ticks; i++ {
		mu.Lock()
		profiling.ResetFrame()
		mgr.Update(viewer)
		if *digEvery > 0 && i%*digEvery == 0 {
			dig(mgr, log, viewer)
		}
		viewer = walk(mgr, viewer, float32(*speed))
		if i%100 == 0 {
			st := mgr.Stats()
			log.Info("tick",
				"tick", st.Tick,
				"cached", st.Cached,
				"dirty", st.Dirty,
				"known", st.Known,
				"in_flight", st.InFlight,
				"meshes", st.Meshes,
				"quads", sink.quads,
				"top", profiling.TopN(3),
			)
		}
		mu.Unlock()
		if late := limiter.Wait(); late > *tickEvery {
			log.Debug("tick overran", "late", late)
		}
	}
}

// walk advances the viewer along +X and keeps it standing on the surface.
func walk(mgr *stream.Manager, viewer mgl32.Vec3, speed float32) mgl32.Vec3 {
	viewer[0] += speed
	x, z := int(math.Floor(float64(viewer.X()))), int(math.Floor(float64(viewer.Z())))
	if !mgr.IsChunkLoaded(x, z) {
		return viewer
	}
	top := mgl32.Vec3{viewer.X(), world.ChunkSize - 1, viewer.Z()}
	if y, ok := physics.GroundLevel(top, 0, mgr); ok {
		viewer[1] = y
	}
	return viewer
}

// dig breaks the first block on a line from the viewer's eye down and ahead.
func dig(mgr *stream.Manager, log *slog.Logger, viewer mgl32.Vec3) {
	eye := viewer.Add(mgl32.Vec3{0, eyeHeight, 0})
	hit := physics.Raycast(eye, mgl32.Vec3{1, -1, 0}, physics.MinReachDistance, physics.MaxReachDistance, mgr)
	if !hit.Hit {
		return
	}
	x, y, z := hit.HitPosition[0], hit.HitPosition[1], hit.HitPosition[2]
	bt := mgr.GetBlock(x, y, z)
	d := mgr.GetBreakTime(bt)
	if d == world.Unbreakable {
		log.Debug("block unbreakable", "pos", hit.HitPosition, "block", bt)
		return
	}
	mgr.SetBlock(x, y, z, world.BlockTypeAir)
	log.Debug("broke block", "pos", hit.HitPosition, "block", bt, "took", d)
}

func saveOnExit(mgr *stream.Manager, store *storage.SQLiteStore, log *slog.Logger, viewer mgl32.Vec3, inventory json.RawMessage, exportPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, t := range mgr.Pending() {
		if err := t.Wait(ctx); err != nil {
			log.Warn("store task failed", "task", t.Name(), "error", err)
		}
	}
	req := stream.SaveRequest{
		Position:  storage.Position{X: float64(viewer.X()), Y: float64(viewer.Y()), Z: float64(viewer.Z())},
		Inventory: inventory,
	}
	if err := mgr.SaveWorld(ctx, req); err != nil {
		log.Error("save world", "error", err)
	}
	if err := mgr.Shutdown(ctx); err != nil {
		log.Error("shutdown", "error", err)
	}
	if exportPath != "" {
		h, err := snapshot.Export(ctx, store, exportPath)
		if err != nil {
			log.Error("export snapshot", "error", err)
		} else {
			log.Info("exported snapshot", "path", exportPath, "chunks", h.Chunks)
		}
	}
	for name, n := range profiling.Counters() {
		log.Debug("counter", "name", name, "value", n)
	}
	if err := store.Close(); err != nil {
		log.Error("close store", "error", err)
	}
}
