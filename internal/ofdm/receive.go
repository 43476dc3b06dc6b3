package ofdm

// RxFrame is the outcome of one Receive call.
type RxFrame struct {
	State       SyncState
	Demodulated bool // false while searching
	Search      SearchResult
	Demod       DemodResult

	// Filled in when Demodulated
	UWErrors       int
	PayloadSymbols []complex128
	PayloadAmps    []float64
	Txt            []byte

	Nin int
}

// Receive is the streaming driver. It searches for a frame while
// Searching and demodulates otherwise, then runs the sync state machine.
// rx must hold exactly Nin samples.
func (m *Modem) Receive(rx []complex128) (RxFrame, error) {
	if m.sync.State == Searching {
		sr, err := m.SyncSearch(rx)
		if err != nil {
			return RxFrame{}, err
		}
		state := m.applySync(SyncEvent{TimingValid: sr.Valid, Policy: m.policy})
		return RxFrame{State: state, Search: sr, Nin: m.nin}, nil
	}

	dr, err := m.Demodulate(rx)
	if err != nil {
		return RxFrame{}, err
	}
	state := m.RunSyncStateMachine(dr.UWErrors)

	f := RxFrame{
		State:       state,
		Demodulated: true,
		Demod:       dr,
		UWErrors:    dr.UWErrors,
		Nin:         m.nin,
	}
	f.PayloadSymbols, f.PayloadAmps, f.Txt = m.layout.disassemble(dr.Symbols, dr.Amps)
	return f, nil
}
