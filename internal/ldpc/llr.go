package ldpc

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultEsNo is the Es/No assumed when mapping QPSK symbols to LLRs.
const DefaultEsNo = 3.0

// qpsk is the modem constellation indexed by symbol value, first bit MSB.
var qpsk = [4]complex128{
	complex(1/math.Sqrt2, 1/math.Sqrt2),
	complex(-1/math.Sqrt2, 1/math.Sqrt2),
	complex(1/math.Sqrt2, -1/math.Sqrt2),
	complex(-1/math.Sqrt2, -1/math.Sqrt2),
}

// SoftDecisionToLLR converts BPSK soft decisions (+1 for bit 0) to LLRs.
// The noise variance is estimated from the spread of the decisions around
// their normalized mean magnitude.
func SoftDecisionToLLR(sd []float64) []float64 {
	llr := make([]float64, len(sd))
	if len(sd) == 0 {
		return llr
	}
	abs := make([]float64, len(sd))
	for i, x := range sd {
		abs[i] = math.Abs(x)
	}
	mean := stat.Mean(abs, nil)
	if mean == 0 {
		return llr
	}

	dev := make([]float64, len(sd))
	for i, x := range sd {
		sign := 0.0
		switch {
		case x > 0:
			sign = 1
		case x < 0:
			sign = -1
		}
		d := x/mean - sign
		dev[i] = d * d
	}
	estvar := stat.Mean(dev, nil)
	esno := 1 / (2*estvar + 1e-3)

	copy(llr, sd)
	floats.Scale(4*esno/mean, llr)
	return llr
}

// SymbolsToLLRs converts received QPSK symbols with their channel
// amplitudes to two LLRs per symbol, positive for bit 0. Symbols and
// amplitudes are normalized by meanAmp.
func SymbolsToLLRs(syms []complex128, amps []float64, esno, meanAmp float64) []float64 {
	llr := make([]float64, 2*len(syms))
	if meanAmp <= 0 {
		meanAmp = 1
	}
	var lik [4]float64
	for i, s := range syms {
		fading := 1.0
		if i < len(amps) {
			fading = amps[i] / meanAmp
		}
		r := s / complex(meanAmp, 0)
		for j, p := range qpsk {
			d := r - complex(fading, 0)*p
			lik[j] = -esno * (real(d)*real(d) + imag(d)*imag(d))
		}
		// bit 0 is the MSB of the symbol value
		b0zero := floats.LogSumExp([]float64{lik[0], lik[1]})
		b0one := floats.LogSumExp([]float64{lik[2], lik[3]})
		b1zero := floats.LogSumExp([]float64{lik[0], lik[2]})
		b1one := floats.LogSumExp([]float64{lik[1], lik[3]})
		llr[2*i] = b0zero - b0one
		llr[2*i+1] = b1zero - b1one
	}
	return llr
}
