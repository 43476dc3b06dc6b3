package ofdm

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestQPSK_MapDemap(t *testing.T) {
	for i := 0; i < 4; i++ {
		b0, b1 := byte(i>>1), byte(i&1)
		s := QPSKMod(b0, b1)
		if math.Abs(cmplx.Abs(s)-1) > 1e-12 {
			t.Errorf("point %d has magnitude %f", i, cmplx.Abs(s))
		}
		r0, r1 := QPSKDemod(s)
		if r0 != b0 || r1 != b1 {
			t.Errorf("point %d: demapped %d%d, want %d%d", i, r0, r1, b0, b1)
		}
	}
}

func TestQPSK_GrayNeighbours(t *testing.T) {
	// Rotating a point by 90 degrees must change exactly one bit.
	for i := 0; i < 4; i++ {
		s := QPSKMod(byte(i>>1), byte(i&1))
		r0, r1 := QPSKDemod(s * complex(0, 1))
		j := int(r0)<<1 | int(r1)
		if d := i ^ j; d != 1 && d != 2 {
			t.Errorf("point %d rotated to %d, differs in more than one bit", i, j)
		}
	}
}

func TestMapBits_DemapSymbols(t *testing.T) {
	bits := []byte{1, 0, 1, 1, 0, 0, 1, 0, 0, 1, 1, 1}
	got := DemapSymbols(MapBits(bits))
	if len(got) != len(bits) {
		t.Fatalf("length mismatch: %d != %d", len(got), len(bits))
	}
	for i := range bits {
		if got[i] != bits[i] {
			t.Errorf("bit %d: %d != %d", i, got[i], bits[i])
		}
	}
}

func TestDFT_RoundTrip(t *testing.T) {
	d := newDFT(144)
	bins := DefaultConfig().carrierBins(1500)
	carriers := make([]complex128, len(bins))
	for i := range carriers {
		carriers[i] = QPSKMod(byte(i%2), byte((i/2)%2))
	}

	time := make([]complex128, 144)
	d.inverse(time, bins, carriers)
	got := make([]complex128, len(bins))
	d.forward(got, bins, time)

	for i := range carriers {
		if cmplx.Abs(got[i]-carriers[i]) > 1e-9 {
			t.Errorf("carrier %d: got %v, want %v", i, got[i], carriers[i])
		}
	}
}

func TestPilotTemplate_CyclicPrefix(t *testing.T) {
	m, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ps := m.pilotSamples
	if len(ps) != 160 {
		t.Fatalf("pilot template has %d samples, want 160", len(ps))
	}
	for i := 0; i < 16; i++ {
		if ps[i] != ps[144+i] {
			t.Errorf("prefix sample %d does not match row tail", i)
		}
	}
}

func TestRand_Sequence(t *testing.T) {
	r := make([]uint16, 5)
	Rand(r)
	want := []uint16{32422, 12519, 25748, 6973, 24370}
	for i := range want {
		if r[i] != want[i] {
			t.Errorf("Rand[%d] = %d, want %d", i, r[i], want[i])
		}
	}

	bits := GeneratePayloadBits(5)
	wantBits := []byte{1, 0, 1, 0, 1}
	for i := range wantBits {
		if bits[i] != wantBits[i] {
			t.Errorf("payload bit %d = %d, want %d", i, bits[i], wantBits[i])
		}
	}
}
