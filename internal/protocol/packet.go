// Package protocol carries data packets over the LDPC framed modem. A
// packet is sealed with a CRC-32, spread over a Reed-Solomon shard set and
// each shard is sent as the data bits of one codeword.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lifegpc/libcodec2-MSVC/internal/fec"
)

// Packet types
const (
	TypeData byte = 0x01
	TypeText byte = 0x02
	TypePing byte = 0x07
)

// Packet size limits
const (
	HeaderSize     = 4
	MaxPayloadSize = 1024
)

var (
	// ErrShort is returned for packets too short to hold a header.
	ErrShort = errors.New("packet too short")
	// ErrTruncated is returned when the payload length exceeds the data.
	ErrTruncated = errors.New("packet truncated")
	// ErrPayloadSize is returned for payloads over MaxPayloadSize.
	ErrPayloadSize = errors.New("payload too large")
)

// Packet is one unit of user data.
// Format: [Type(1B)][Seq(1B)][PayloadLen(2B)][Payload][CRC-32(4B)]
type Packet struct {
	Type    byte
	Seq     byte
	Payload []byte
}

// TypeName returns a human-readable name for the packet type.
func (p *Packet) TypeName() string {
	switch p.Type {
	case TypeData:
		return "DATA"
	case TypeText:
		return "TEXT"
	case TypePing:
		return "PING"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", p.Type)
	}
}

// NewDataPacket creates a DATA packet.
func NewDataPacket(seq byte, payload []byte) *Packet {
	return &Packet{Type: TypeData, Seq: seq, Payload: payload}
}

// EncodedLen returns the size of the encoded packet.
func (p *Packet) EncodedLen() int { return HeaderSize + len(p.Payload) + fec.CRCLen }

// Encode serializes the packet and appends its CRC-32.
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadSize, len(p.Payload))
	}
	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = p.Type
	buf[1] = p.Seq
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(p.Payload)))
	copy(buf[HeaderSize:], p.Payload)
	return fec.Seal(buf), nil
}

// DecodePacket parses an encoded packet, ignoring trailing padding, and
// verifies its CRC-32.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize+fec.CRCLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrShort, len(data))
	}
	n := int(binary.BigEndian.Uint16(data[2:4]))
	end := HeaderSize + n + fec.CRCLen
	if n > MaxPayloadSize || len(data) < end {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTruncated, len(data), end)
	}
	body, err := fec.Open(data[:end])
	if err != nil {
		return nil, err
	}
	return &Packet{
		Type:    body[0],
		Seq:     body[1],
		Payload: append([]byte(nil), body[HeaderSize:]...),
	}, nil
}
