package protocol

import (
	"errors"
	"fmt"

	"github.com/lifegpc/libcodec2-MSVC/internal/codecio"
	"github.com/lifegpc/libcodec2-MSVC/internal/fec"
)

// shardHeader is [set id][shard index], in front of every shard.
const shardHeader = 2

// ErrBitCount is returned for codeword data of the wrong size.
var ErrBitCount = errors.New("wrong codeword data bit count")

// Packetizer turns packets into codeword data bits.
type Packetizer struct {
	codec    *fec.ShardCodec
	dataBits int
	set      byte
}

// NewPacketizer creates a packetizer for codewords carrying dataBits data
// bits, with the given Reed-Solomon shard counts.
func NewPacketizer(dataBits, dataShards, parityShards int) (*Packetizer, error) {
	codec, err := newCodec(dataBits, dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Packetizer{codec: codec, dataBits: dataBits}, nil
}

func newCodec(dataBits, dataShards, parityShards int) (*fec.ShardCodec, error) {
	size := dataBits/8 - shardHeader
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d data bits leave no room for a shard", ErrBitCount, dataBits)
	}
	return fec.NewShardCodec(dataShards, parityShards, size)
}

// MaxPayload returns the largest payload one packet can carry.
func (p *Packetizer) MaxPayload() int {
	return min(MaxPayloadSize, p.codec.Capacity()-HeaderSize-fec.CRCLen)
}

// Codewords returns the number of codewords per packet.
func (p *Packetizer) Codewords() int { return p.codec.Shards() }

// Split encodes a packet into one slice of unpacked data bits per
// codeword. Bits past the shard are zero.
func (p *Packetizer) Split(pkt *Packet) ([][]byte, error) {
	raw, err := pkt.Encode()
	if err != nil {
		return nil, err
	}
	shards, err := p.codec.Encode(raw)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(shards))
	for i, s := range shards {
		buf := make([]byte, (p.dataBits+7)/8)
		buf[0], buf[1] = p.set, byte(i)
		copy(buf[shardHeader:], s)
		out[i] = codecio.Unpack(buf, p.dataBits)
	}
	p.set++
	return out, nil
}

// AssemblerStats counts the outcome of shard sets.
type AssemblerStats struct {
	Packets   int // packets delivered
	Recovered int // of those, rebuilt from erasures
	Failed    int // sets lost to erasures or a bad checksum
	Erasures  int // codewords that did not converge
}

// Assembler rebuilds packets from decoded codewords.
type Assembler struct {
	codec    *fec.ShardCodec
	dataBits int

	active bool
	set    byte
	shards [][]byte
	got    int
	done   bool
	stats  AssemblerStats
}

// NewAssembler creates the receiving side of NewPacketizer.
func NewAssembler(dataBits, dataShards, parityShards int) (*Assembler, error) {
	codec, err := newCodec(dataBits, dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Assembler{codec: codec, dataBits: dataBits}, nil
}

// Stats returns the assembler counters.
func (a *Assembler) Stats() AssemblerStats { return a.stats }

// Push adds the data bits of one codeword. Codewords that did not
// converge are passed with ok false and count as erasures. Push returns
// the packets completed by this codeword.
func (a *Assembler) Push(bits []byte, ok bool) ([]*Packet, error) {
	if len(bits) != a.dataBits {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBitCount, len(bits), a.dataBits)
	}
	if !ok {
		a.stats.Erasures++
		return nil, nil
	}
	buf := codecio.Pack(bits)
	set, idx := buf[0], int(buf[1])
	if idx >= a.codec.Shards() {
		a.stats.Erasures++
		return nil, nil
	}

	var out []*Packet
	if !a.active || set != a.set {
		if p := a.finish(); p != nil {
			out = append(out, p)
		}
		a.start(set)
	}
	if a.shards[idx] == nil {
		a.shards[idx] = append([]byte(nil), buf[shardHeader:shardHeader+a.codec.ShardSize()]...)
		a.got++
	}
	if idx == a.codec.Shards()-1 {
		if p := a.finish(); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// Flush completes the set in progress, if any.
func (a *Assembler) Flush() *Packet {
	p := a.finish()
	a.active = false
	return p
}

func (a *Assembler) start(set byte) {
	a.active, a.set, a.done, a.got = true, set, false, 0
	a.shards = make([][]byte, a.codec.Shards())
}

// finish reconstructs the current set once.
func (a *Assembler) finish() *Packet {
	if !a.active || a.done {
		return nil
	}
	a.done = true
	if a.got < a.codec.DataShards() {
		a.stats.Failed++
		return nil
	}
	missing := a.codec.Shards() - a.got
	data, err := a.codec.Reconstruct(a.shards)
	if err != nil {
		a.stats.Failed++
		return nil
	}
	p, err := DecodePacket(data)
	if err != nil {
		a.stats.Failed++
		return nil
	}
	a.stats.Packets++
	if missing > 0 {
		a.stats.Recovered++
	}
	return p
}
