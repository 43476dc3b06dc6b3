package ofdm

// Pilot row and unique word definitions. Row 0 of every frame carries BPSK
// pilots on all Nc+2 carriers; the edge carriers are pilot only.

// pilotValues is the BPSK pilot sequence, one entry per carrier.
var pilotValues = [64]float64{
	-1, -1, 1, 1, -1, -1, -1, 1,
	-1, 1, -1, 1, 1, 1, 1, 1,
	1, 1, 1, -1, -1, 1, -1, 1,
	-1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, -1, 1, 1, 1, 1,
	1, -1, -1, -1, -1, -1, -1, 1,
	-1, 1, -1, 1, -1, -1, 1, -1,
	1, 1, 1, 1, -1, 1, -1, 1,
}

// defaultUW is the unique word used when Config.UW is nil.
var defaultUW = [10]byte{1, 1, 0, 0, 1, 0, 1, 0, 1, 1}

// pilotCarriers returns the pilot symbol for each of the n carriers.
func pilotCarriers(n int) []complex128 {
	p := make([]complex128, n)
	for i := range p {
		p[i] = complex(pilotValues[i], 0)
	}
	return p
}

// pilotTemplate builds the time-domain pilot row, cyclic prefix included,
// that the timing estimator correlates against.
func pilotTemplate(d *dft, bins []int, pilots []complex128, ncp int) []complex128 {
	m := d.m
	row := make([]complex128, m)
	d.inverse(row, bins, pilots)

	out := make([]complex128, ncp+m)
	copy(out, row[m-ncp:])
	copy(out[ncp:], row)
	return out
}
