package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lifegpc/libcodec2-MSVC/internal/fec"
)

func TestPacket_EncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet *Packet
	}{
		{"DATA packet", NewDataPacket(42, []byte("Hello, World!"))},
		{"TEXT packet", &Packet{Type: TypeText, Seq: 7, Payload: []byte("cq cq")}},
		{"PING packet", &Packet{Type: TypePing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.packet.Encode()
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			if len(encoded) != tt.packet.EncodedLen() {
				t.Errorf("encoded %d bytes, want %d", len(encoded), tt.packet.EncodedLen())
			}
			// trailing padding from the shard set is ignored
			decoded, err := DecodePacket(append(encoded, 0, 0, 0))
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if decoded.Type != tt.packet.Type || decoded.Seq != tt.packet.Seq {
				t.Errorf("header %s/%d, want %s/%d", decoded.TypeName(), decoded.Seq, tt.packet.TypeName(), tt.packet.Seq)
			}
			if !bytes.Equal(decoded.Payload, tt.packet.Payload) {
				t.Errorf("Payload: %q != %q", decoded.Payload, tt.packet.Payload)
			}
		})
	}
}

func TestPacket_Corrupted(t *testing.T) {
	encoded, _ := NewDataPacket(1, []byte("test data")).Encode()
	encoded[5] ^= 0x01
	if _, err := DecodePacket(encoded); !errors.Is(err, fec.ErrChecksum) {
		t.Errorf("corrupted packet: %v", err)
	}
	if _, err := DecodePacket([]byte{0x01, 0x02}); !errors.Is(err, ErrShort) {
		t.Errorf("short packet: %v", err)
	}
	if _, err := DecodePacket([]byte{0x01, 0x02, 0x00, 0x20, 0, 0, 0, 0}); !errors.Is(err, ErrTruncated) {
		t.Errorf("truncated packet: %v", err)
	}
	if _, err := NewDataPacket(0, make([]byte, MaxPayloadSize+1)).Encode(); !errors.Is(err, ErrPayloadSize) {
		t.Errorf("oversized payload: %v", err)
	}
}

func TestShards_RoundTrip(t *testing.T) {
	const dataBits = 112
	p, err := NewPacketizer(dataBits, fec.DefaultDataShards, fec.DefaultParityShards)
	if err != nil {
		t.Fatalf("NewPacketizer: %v", err)
	}
	a, err := NewAssembler(dataBits, fec.DefaultDataShards, fec.DefaultParityShards)
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	if p.MaxPayload() != 8*12-HeaderSize-fec.CRCLen {
		t.Errorf("max payload %d", p.MaxPayload())
	}

	msgs := []string{"first packet over the modem", "second one", "third, with erasures"}
	var got []*Packet
	for n, msg := range msgs {
		cws, err := p.Split(NewDataPacket(byte(n), []byte(msg)))
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		if len(cws) != p.Codewords() {
			t.Fatalf("%d codewords, want %d", len(cws), p.Codewords())
		}
		for i, bits := range cws {
			if len(bits) != dataBits {
				t.Fatalf("codeword %d has %d bits", i, len(bits))
			}
			// the last packet loses its first and last codewords
			ok := !(n == 2 && (i == 0 || i == len(cws)-1))
			pkts, err := a.Push(bits, ok)
			if err != nil {
				t.Fatalf("Push: %v", err)
			}
			got = append(got, pkts...)
		}
	}
	if pkt := a.Flush(); pkt != nil {
		got = append(got, pkt)
	}

	if len(got) != len(msgs) {
		t.Fatalf("got %d packets, want %d", len(got), len(msgs))
	}
	for i, pkt := range got {
		if string(pkt.Payload) != msgs[i] || pkt.Seq != byte(i) {
			t.Errorf("packet %d: seq %d %q", i, pkt.Seq, pkt.Payload)
		}
	}
	st := a.Stats()
	if st.Packets != 3 || st.Recovered != 1 || st.Erasures != 2 || st.Failed != 0 {
		t.Errorf("stats %+v", st)
	}
}

func TestShards_TooManyErasures(t *testing.T) {
	p, _ := NewPacketizer(112, 4, 2)
	a, _ := NewAssembler(112, 4, 2)
	cws, err := p.Split(NewDataPacket(0, []byte("lost")))
	if err != nil {
		t.Fatal(err)
	}
	for i, bits := range cws {
		if _, err := a.Push(bits, i >= 3); err != nil {
			t.Fatal(err)
		}
	}
	if a.Flush() != nil || a.Stats().Failed != 1 {
		t.Errorf("stats %+v", a.Stats())
	}
	if _, err := a.Push(make([]byte, 10), true); !errors.Is(err, ErrBitCount) {
		t.Errorf("short codeword: %v", err)
	}
	if _, err := NewPacketizer(16, 4, 2); !errors.Is(err, ErrBitCount) {
		t.Errorf("tiny codeword: %v", err)
	}
}
