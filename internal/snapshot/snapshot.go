// Package snapshot exports and imports a whole world as one zstd archive: a
// JSON header line followed by a gob body.
package snapshot

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"chunkworld/internal/storage"
	"chunkworld/internal/world"
)

const Version = 1

// ErrVersion is returned for archives written by an unknown format version.
var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Chunks  int   `json:"chunks"`
}

type Chunk struct {
	CX     int
	CZ     int
	Blocks []byte
}

type SnapshotV1 struct {
	Header Header
	Meta   []byte // raw player record, nil when absent
	Chunks []Chunk
}

// Collect reads every chunk and the metadata record out of store.
func Collect(ctx context.Context, store storage.Store) (SnapshotV1, error) {
	snap := SnapshotV1{Header: Header{Version: Version}}
	if err := store.Init(ctx); err != nil {
		return snap, err
	}
	keys, err := store.Keys(ctx, storage.NamespaceChunks)
	if err != nil {
		return snap, err
	}
	for _, k := range keys {
		pos, err := world.ParseChunkKey(k)
		if err != nil {
			continue
		}
		raw, err := store.Get(ctx, storage.NamespaceChunks, k)
		if err != nil {
			return snap, fmt.Errorf("chunk %s: %w", k, err)
		}
		snap.Chunks = append(snap.Chunks, Chunk{CX: pos.X, CZ: pos.Z, Blocks: raw})
	}
	snap.Header.Chunks = len(snap.Chunks)

	meta, err := store.Get(ctx, storage.NamespacePlayer, storage.MetaKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return snap, err
	default:
		snap.Meta = meta
		if pm, err := storage.DecodeMeta(meta); err == nil {
			snap.Header.Seed = pm.Seed
		}
	}
	return snap, nil
}

// Restore replaces the contents of store with snap.
func Restore(ctx context.Context, store storage.Store, snap SnapshotV1) error {
	if snap.Header.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, snap.Header.Version)
	}
	for _, c := range snap.Chunks {
		if len(c.Blocks) != world.ChunkVolume {
			return fmt.Errorf("chunk %d,%d: %w", c.CX, c.CZ, world.ErrVolumeSize)
		}
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	for _, c := range snap.Chunks {
		key := world.ChunkPos{X: c.CX, Z: c.CZ}.Key()
		if err := store.Set(ctx, storage.NamespaceChunks, key, c.Blocks); err != nil {
			return fmt.Errorf("chunk %s: %w", key, err)
		}
	}
	if snap.Meta != nil {
		if err := store.Set(ctx, storage.NamespacePlayer, storage.MetaKey, snap.Meta); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the whole store to path.
func Export(ctx context.Context, store storage.Store, path string) (Header, error) {
	snap, err := Collect(ctx, store)
	if err != nil {
		return Header{}, fmt.Errorf("export: %w", err)
	}
	if err := WriteSnapshot(path, snap); err != nil {
		return Header{}, fmt.Errorf("export: %w", err)
	}
	return snap.Header, nil
}

// Import replaces the store contents with the archive at path.
func Import(ctx context.Context, store storage.Store, path string) (Header, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return Header{}, fmt.Errorf("import: %w", err)
	}
	if err := Restore(ctx, store, snap); err != nil {
		return Header{}, fmt.Errorf("import: %w", err)
	}
	return snap.Header, nil
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
