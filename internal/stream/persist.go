package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"chunkworld/internal/storage"
	"chunkworld/internal/world"
)

// LoadResult carries what LoadWorld restored from the metadata record.
type LoadResult struct {
	Position  *storage.Position
	Inventory json.RawMessage
}

// SaveRequest is the viewer state persisted by SaveWorld.
type SaveRequest struct {
	Position  storage.Position
	Inventory json.RawMessage
}

// LoadWorld initializes the store, indexes every persisted chunk key and
// restores the seed from metadata when present. In-memory world state is
// replaced only once the store has answered.
func (m *Manager) LoadWorld(ctx context.Context) (LoadResult, error) {
	var res LoadResult
	if err := m.Flush(ctx); err != nil {
		return res, fmt.Errorf("load world: %w", err)
	}
	if err := m.store.Init(ctx); err != nil {
		return res, fmt.Errorf("load world: %w", err)
	}
	keys, err := m.store.Keys(ctx, storage.NamespaceChunks)
	if err != nil {
		return res, fmt.Errorf("load world: %w", err)
	}

	var meta *storage.PlayerMeta
	raw, err := m.store.Get(ctx, storage.NamespacePlayer, storage.MetaKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return res, fmt.Errorf("load world: %w", err)
	default:
		pm, derr := storage.DecodeMeta(raw)
		if derr != nil {
			m.log.Warn("ignoring unreadable world metadata", "error", derr)
		} else {
			meta = &pm
		}
	}

	m.releaseAllMeshes()
	m.resetState()
	for _, k := range keys {
		pos, perr := world.ParseChunkKey(k)
		if perr != nil {
			m.log.Warn("skipping malformed chunk key", "key", k, "error", perr)
			continue
		}
		m.known[pos] = struct{}{}
	}
	if meta != nil {
		m.setSeed(meta.Seed)
		p := meta.Position
		res.Position = &p
		res.Inventory = meta.Inventory
	} else {
		m.setSeed(m.seed)
	}
	m.log.Info("world loaded", "seed", m.seed, "known", len(m.known), "meta", meta != nil)
	return res, nil
}

// SaveWorld persists the metadata record and every dirty chunk. Chunk writes
// run concurrently and fail independently; each failure is joined into the
// returned error and its chunk stays dirty.
func (m *Manager) SaveWorld(ctx context.Context, req SaveRequest) error {
	if err := m.Flush(ctx); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if err := m.store.Init(ctx); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	metaRaw, err := storage.EncodeMeta(storage.PlayerMeta{
		Position:  req.Position,
		Inventory: req.Inventory,
		Seed:      m.seed,
	})
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if err := m.store.Set(ctx, storage.NamespacePlayer, storage.MetaKey, metaRaw); err != nil {
		return fmt.Errorf("save world: %w", err)
	}

	type job struct {
		pos   world.ChunkPos
		stamp uint64
		raw   []byte
		err   error
	}
	jobs := make([]*job, 0, len(m.dirty))
	for pos, stamp := range m.dirty {
		vol, ok := m.cache[pos]
		if !ok {
			continue
		}
		jobs = append(jobs, &job{pos: pos, stamp: stamp, raw: storage.EncodeVolume(vol)})
	}

	var g errgroup.Group
	g.SetLimit(m.opts.SaveConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			j.err = m.store.Set(ctx, storage.NamespaceChunks, j.pos.Key(), j.raw)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, j := range jobs {
		if j.err != nil {
			errs = append(errs, fmt.Errorf("chunk %s: %w", j.pos, j.err))
			continue
		}
		m.known[j.pos] = struct{}{}
		m.clearDirty(j.pos, j.stamp)
	}
	m.log.Info("world saved", "chunks", len(jobs)-len(errs), "failed", len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("save world: %w", errors.Join(errs...))
	}
	return nil
}

// DeleteWorld wipes the store and all in-memory state, then re-rolls the seed.
// On store failure the in-memory world is left untouched.
func (m *Manager) DeleteWorld(ctx context.Context) error {
	if err := m.Flush(ctx); err != nil {
		return fmt.Errorf("delete world: %w", err)
	}
	if err := m.store.Init(ctx); err != nil {
		return fmt.Errorf("delete world: %w", err)
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("delete world: %w", err)
	}
	m.releaseAllMeshes()
	m.resetState()
	m.setSeed(m.opts.SeedSource())
	m.log.Info("world deleted", "seed", m.seed)
	return nil
}

// Flush waits for every outstanding store operation and applies its result.
func (m *Manager) Flush(ctx context.Context) error {
	for {
		for _, t := range m.tasks {
			select {
			case <-t.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		m.drain()
		if len(m.tasks) == 0 {
			return nil
		}
	}
}

// Shutdown awaits outstanding writes and releases every mesh.
func (m *Manager) Shutdown(ctx context.Context) error {
	err := m.Flush(ctx)
	m.releaseAllMeshes()
	return err
}
