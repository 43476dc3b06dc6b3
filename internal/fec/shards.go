// Package fec adds an outer erasure code on top of the LDPC frames. Each
// shard rides in one codeword; codewords that fail to converge become
// erasures that Reed-Solomon reconstructs.
package fec

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

var (
	// ErrChecksum is returned when a CRC-32 trailer does not match.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrTooLarge is returned when data does not fit the data shards.
	ErrTooLarge = errors.New("data too large for shard set")
	// ErrShardSize is returned for shard sets of the wrong shape.
	ErrShardSize = errors.New("wrong shard size")
	// ErrUnrecoverable is returned when too many shards are missing.
	ErrUnrecoverable = errors.New("too many erased shards")
)

// Default shard counts for packets over the modem.
const (
	DefaultDataShards   = 8
	DefaultParityShards = 4
)

// ShardCodec splits data into fixed size shards with Reed-Solomon parity.
type ShardCodec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
	shardSize    int
}

// NewShardCodec creates a codec for dataShards+parityShards shards of
// shardSize bytes each.
func NewShardCodec(dataShards, parityShards, shardSize int) (*ShardCodec, error) {
	if shardSize <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrShardSize, shardSize)
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("create reed-solomon encoder: %w", err)
	}
	return &ShardCodec{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
		shardSize:    shardSize,
	}, nil
}

// DataShards returns the number of data shards.
func (c *ShardCodec) DataShards() int { return c.dataShards }

// ParityShards returns the number of parity shards.
func (c *ShardCodec) ParityShards() int { return c.parityShards }

// Shards returns the total number of shards in a set.
func (c *ShardCodec) Shards() int { return c.dataShards + c.parityShards }

// ShardSize returns the size of one shard in bytes.
func (c *ShardCodec) ShardSize() int { return c.shardSize }

// Capacity returns the number of data bytes a shard set carries.
func (c *ShardCodec) Capacity() int { return c.dataShards * c.shardSize }

// Encode zero pads data to Capacity bytes and returns the data shards
// followed by the parity shards.
func (c *ShardCodec) Encode(data []byte) ([][]byte, error) {
	if len(data) > c.Capacity() {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), c.Capacity())
	}
	buf := make([]byte, c.Shards()*c.shardSize)
	copy(buf, data)
	shards := make([][]byte, c.Shards())
	for i := range shards {
		shards[i] = buf[i*c.shardSize : (i+1)*c.shardSize]
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return shards, nil
}

// Reconstruct recovers the Capacity data bytes of a shard set. Missing
// shards are nil; at most ParityShards may be missing. shards is
// repaired in place.
func (c *ShardCodec) Reconstruct(shards [][]byte) ([]byte, error) {
	if len(shards) != c.Shards() {
		return nil, fmt.Errorf("%w: %d shards, want %d", ErrShardSize, len(shards), c.Shards())
	}
	missing := 0
	for i, s := range shards {
		switch {
		case s == nil:
			missing++
		case len(s) != c.shardSize:
			return nil, fmt.Errorf("%w: shard %d has %d bytes, want %d", ErrShardSize, i, len(s), c.shardSize)
		}
	}
	if missing > c.parityShards {
		return nil, fmt.Errorf("%w: %d of %d", ErrUnrecoverable, missing, c.Shards())
	}
	if missing > 0 {
		if err := c.enc.ReconstructData(shards); err != nil {
			return nil, fmt.Errorf("reconstruct: %w", err)
		}
	}

	out := make([]byte, 0, c.Capacity())
	for _, s := range shards[:c.dataShards] {
		out = append(out, s...)
	}
	return out, nil
}

// Verify reports whether a complete shard set is consistent.
func (c *ShardCodec) Verify(shards [][]byte) (bool, error) {
	return c.enc.Verify(shards)
}
