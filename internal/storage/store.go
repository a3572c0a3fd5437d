package storage

import (
	"context"
	"errors"
	"fmt"
)

// Namespace selects one of the two durable tables.
type Namespace string

const (
	NamespaceChunks Namespace = "chunks"
	NamespacePlayer Namespace = "player"
)

// MetaKey is the single record key in the player namespace.
const MetaKey = "meta"

var (
	// ErrNotFound is the explicit "no record" signal from Get.
	ErrNotFound = errors.New("storage: not found")
	// ErrUnavailable wraps every backend failure.
	ErrUnavailable = errors.New("storage: unavailable")
	// ErrNotInitialized is returned by any operation issued before Init.
	ErrNotInitialized = errors.New("storage: not initialized")
	// ErrCorrupt marks a stored record that exists but cannot be decoded.
	ErrCorrupt = errors.New("storage: corrupt record")
	// ErrUnknownNamespace rejects namespaces other than chunks/player.
	ErrUnknownNamespace = errors.New("storage: unknown namespace")
)

// Store is durable key-value storage for chunk volumes and world metadata.
// Implementations must be safe for concurrent use.
type Store interface {
	// Init prepares the backend. It is idempotent and must precede every other call.
	Init(ctx context.Context) error
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)
	Set(ctx context.Context, ns Namespace, key string, value []byte) error
	Keys(ctx context.Context, ns Namespace) ([]string, error)
	// Clear wipes both namespaces.
	Clear(ctx context.Context) error
	Close() error
}

func checkNamespace(ns Namespace) error {
	switch ns {
	case NamespaceChunks, NamespacePlayer:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("storage: %s: %w: %w", op, ErrUnavailable, err)
}
