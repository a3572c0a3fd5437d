package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"chunkworld/internal/world"
)

// Chunk blobs are zstd frames around the raw S³ byte layout. EncodeAll and
// DecodeAll are safe for concurrent use on shared coders.
var (
	volumeEncoder *zstd.Encoder
	volumeDecoder *zstd.Decoder
)

func init() {
	var err error
	volumeEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic(fmt.Sprintf("storage: zstd encoder: %v", err))
	}
	volumeDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<20))
	if err != nil {
		panic(fmt.Sprintf("storage: zstd decoder: %v", err))
	}
}

// EncodeVolume returns the raw durable bytes of v.
func EncodeVolume(v *world.Volume) []byte {
	return v.Bytes()
}

// DecodeVolume validates and converts raw durable bytes.
func DecodeVolume(raw []byte) (*world.Volume, error) {
	v, err := world.VolumeFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode volume: %w", err)
	}
	return v, nil
}

// compressBlob packs a raw chunk payload for storage at rest.
func compressBlob(raw []byte) []byte {
	return volumeEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/4))
}

// decompressBlob reverses compressBlob.
func decompressBlob(blob []byte) ([]byte, error) {
	raw, err := volumeDecoder.DecodeAll(blob, make([]byte, 0, world.ChunkVolume))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}
	return raw, nil
}
