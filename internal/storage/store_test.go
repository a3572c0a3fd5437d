package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"chunkworld/internal/world"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func backends(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "world.db"), discard())
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func sampleVolume() *world.Volume {
	return world.NewGenerator(3, world.DefaultGenSettings()).Generate(world.ChunkPos{X: 1, Z: -2})
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			if _, err := s.Get(ctx, NamespaceChunks, "0,0"); !errors.Is(err, ErrNotInitialized) {
				t.Fatalf("get before init: got %v, want ErrNotInitialized", err)
			}
			if err := s.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			if err := s.Init(ctx); err != nil {
				t.Fatalf("second init: %v", err)
			}

			if _, err := s.Get(ctx, NamespaceChunks, "0,0"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("missing key: got %v, want ErrNotFound", err)
			}

			raw := EncodeVolume(sampleVolume())
			for _, k := range []string{"1,-2", "-3,4", "0,0"} {
				if err := s.Set(ctx, NamespaceChunks, k, raw); err != nil {
					t.Fatalf("set %s: %v", k, err)
				}
			}
			got, err := s.Get(ctx, NamespaceChunks, "1,-2")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Fatalf("chunk bytes differ after round trip")
			}

			keys, err := s.Keys(ctx, NamespaceChunks)
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(keys) != 3 {
				t.Fatalf("keys: got %v, want 3", keys)
			}

			meta, _ := EncodeMeta(PlayerMeta{Seed: 5, Position: Position{X: 1.5, Y: 10, Z: -2}})
			if err := s.Set(ctx, NamespacePlayer, MetaKey, meta); err != nil {
				t.Fatalf("set meta: %v", err)
			}
			if pk, _ := s.Keys(ctx, NamespacePlayer); len(pk) != 1 || pk[0] != MetaKey {
				t.Fatalf("player keys: got %v", pk)
			}
			back, err := s.Get(ctx, NamespacePlayer, MetaKey)
			if err != nil {
				t.Fatalf("get meta: %v", err)
			}
			pm, err := DecodeMeta(back)
			if err != nil || pm.Seed != 5 || pm.Position.X != 1.5 {
				t.Fatalf("meta: got %+v, %v", pm, err)
			}

			if err := s.Set(ctx, Namespace("bogus"), "k", nil); !errors.Is(err, ErrUnknownNamespace) {
				t.Fatalf("bogus namespace: got %v", err)
			}

			if err := s.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if keys, _ := s.Keys(ctx, NamespaceChunks); len(keys) != 0 {
				t.Fatalf("chunks survive clear: %v", keys)
			}
			if _, err := s.Get(ctx, NamespacePlayer, MetaKey); !errors.Is(err, ErrNotFound) {
				t.Fatalf("meta survives clear: %v", err)
			}
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "world.db")
	raw := EncodeVolume(sampleVolume())

	s := NewSQLiteStore(path, discard())
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Set(ctx, NamespaceChunks, "7,7", raw); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2 := NewSQLiteStore(path, discard())
	t.Cleanup(func() { _ = s2.Close() })
	if err := s2.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(ctx, NamespaceChunks, "7,7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("bytes differ after reopen")
	}
}

func TestSQLiteCompressesChunks(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "world.db")
	s := NewSQLiteStore(path, discard())
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	raw := EncodeVolume(sampleVolume())
	if err := s.Set(ctx, NamespaceChunks, "1,1", raw); err != nil {
		t.Fatalf("set: %v", err)
	}

	db, err := s.handle()
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	var blob []byte
	if err := db.QueryRowContext(ctx, `SELECT data FROM chunks WHERE key = ?`, "1,1").Scan(&blob); err != nil && !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("select: %v", err)
	}
	if len(blob) == 0 || len(blob) >= len(raw) {
		t.Fatalf("blob at rest: got %d bytes, want fewer than %d", len(blob), len(raw))
	}
}

func TestSQLiteCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "world.db"), discard())
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	db, err := s.handle()
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO chunks(key, data) VALUES(?, ?)`, "2,2", []byte("not zstd")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = s.Get(ctx, NamespaceChunks, "2,2")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("corrupt blob reported as unavailable: %v", err)
	}
}

func TestSQLiteEmptyPath(t *testing.T) {
	s := NewSQLiteStore("", discard())
	if err := s.Init(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestMemoryFault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Init(ctx)
	s.SetFault(func(op string, ns Namespace, key string) error {
		switch key {
		case "gone":
			return ErrNotFound
		case "broken":
			return errors.New("io")
		}
		return nil
	})
	if _, err := s.Get(ctx, NamespaceChunks, "gone"); !errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("gone: got %v", err)
	}
	if err := s.Set(ctx, NamespaceChunks, "broken", []byte{1}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("broken: got %v", err)
	}
	if gets, sets := s.Counts(); gets != 0 || sets != 0 {
		t.Fatalf("faulted calls counted: gets %d sets %d", gets, sets)
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Init(ctx)
	val := []byte{1, 2, 3}
	_ = s.Set(ctx, NamespacePlayer, MetaKey, val)
	val[0] = 9
	got, _ := s.Get(ctx, NamespacePlayer, MetaKey)
	if got[0] != 1 {
		t.Fatalf("store aliases caller slice")
	}
	got[1] = 9
	again, _ := s.Get(ctx, NamespacePlayer, MetaKey)
	if again[1] != 2 {
		t.Fatalf("store hands out internal slice")
	}
}

func TestDecodeVolumeRejectsShort(t *testing.T) {
	if _, err := DecodeVolume([]byte{1, 2}); !errors.Is(err, world.ErrVolumeSize) {
		t.Fatalf("got %v, want ErrVolumeSize", err)
	}
}
