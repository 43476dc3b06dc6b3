package interleave

import "testing"

func TestPrime(t *testing.T) {
	tests := []struct{ n, want int }{
		{112, 71},
		{224, 139},
		{1, 1},
	}
	for _, tt := range tests {
		if got := Prime(tt.n); got != tt.want {
			t.Errorf("Prime(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestInterleave_Permutation(t *testing.T) {
	for _, n := range []int{2, 7, 112, 448, 1000} {
		src := make([]int, n)
		for i := range src {
			src[i] = i
		}
		out := Interleave(src)
		seen := make([]bool, n)
		for _, v := range out {
			if seen[v] {
				t.Fatalf("n=%d: %d appears twice", n, v)
			}
			seen[v] = true
		}
		back := Deinterleave(out)
		for i := range src {
			if back[i] != i {
				t.Fatalf("n=%d: position %d holds %d", n, i, back[i])
			}
		}
	}
}

func TestInterleave_Complex(t *testing.T) {
	src := []complex128{1, 1i, -1, -1i, 2}
	back := Deinterleave(Interleave(src))
	for i := range src {
		if back[i] != src[i] {
			t.Errorf("symbol %d: %v, want %v", i, back[i], src[i])
		}
	}
	if len(Interleave([]float64(nil))) != 0 {
		t.Error("empty input produced output")
	}
}
