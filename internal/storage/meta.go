package storage

import (
	"encoding/json"
	"fmt"
)

// Position is a viewer position in world units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlayerMeta is the singleton world metadata record.
type PlayerMeta struct {
	Position  Position        `json:"position"`
	Inventory json.RawMessage `json:"inventory,omitempty"`
	Seed      int64           `json:"seed"`
}

// EncodeMeta serializes the metadata record.
func EncodeMeta(m PlayerMeta) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	return b, nil
}

// DecodeMeta parses the metadata record.
func DecodeMeta(data []byte) (PlayerMeta, error) {
	var m PlayerMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse meta: %w", err)
	}
	return m, nil
}
