package ofdm

// SyncState is the acquisition state of a modem or interleaver.
type SyncState int

const (
	Searching SyncState = iota
	Trial
	Synced
)

func (s SyncState) String() string {
	switch s {
	case Searching:
		return "search"
	case Trial:
		return "trial"
	case Synced:
		return "synced"
	default:
		return "unknown"
	}
}

// SyncPolicy controls how the modem falls out of sync.
type SyncPolicy int

const (
	// SyncUnsync is a one-shot command: it forces both the modem and
	// the interleaver back to Searching. The fall-out policy in effect
	// is left unchanged.
	SyncUnsync SyncPolicy = iota
	// SyncAuto drops sync after a run of bad unique words.
	SyncAuto
	// SyncManual only drops sync on an explicit SyncUnsync.
	SyncManual
)

func (p SyncPolicy) String() string {
	switch p {
	case SyncUnsync:
		return "unsync"
	case SyncAuto:
		return "auto"
	case SyncManual:
		return "manual"
	default:
		return "unknown"
	}
}

// PhaseBandwidth selects the averaging window of the phase estimator.
type PhaseBandwidth int

const (
	// LowBW averages four pilot rows: accurate but tracks only small
	// frequency offsets.
	LowBW PhaseBandwidth = iota
	// HighBW averages two pilot rows.
	HighBW
)

func (b PhaseBandwidth) String() string {
	if b == LowBW {
		return "low"
	}
	return "high"
}

// PhaseBandwidthMode says whether the sync machine may switch bandwidth.
type PhaseBandwidthMode int

const (
	// PhaseBWAuto switches to LowBW once synced.
	PhaseBWAuto PhaseBandwidthMode = iota
	// PhaseBWLocked keeps whatever bandwidth was last set.
	PhaseBWLocked
)

// SyncRules holds the thresholds of the frame sync state machine.
type SyncRules struct {
	UWErrorThresh int // a frame is bad when its UW errors exceed this
	TrialGood     int // consecutive good frames to leave Trial for Synced
	TrialBad      int // bad frames in Trial before giving up
	SyncedBad     int // Auto falls out after more than this many bad frames in a row
}

// DefaultSyncRules returns the reference thresholds.
func DefaultSyncRules() SyncRules {
	return SyncRules{
		UWErrorThresh: 2,
		TrialGood:     3,
		TrialBad:      2,
		SyncedBad:     6,
	}
}

// SyncStatus is the state plus the counters the transitions depend on.
type SyncStatus struct {
	State SyncState
	Good  int // consecutive good frames
	Bad   int // bad frames (consecutive once Synced)
}

// SyncEvent is what one frame tells the state machine.
type SyncEvent struct {
	TimingValid bool // a timing candidate was found while searching
	UWErrors    int
	Policy      SyncPolicy
}

// Next is the pure transition function of the frame sync machine.
func (r SyncRules) Next(s SyncStatus, ev SyncEvent) SyncStatus {
	if ev.Policy == SyncUnsync {
		return SyncStatus{State: Searching}
	}

	bad := ev.UWErrors > r.UWErrorThresh
	switch s.State {
	case Searching:
		if ev.TimingValid {
			return SyncStatus{State: Trial}
		}
		return SyncStatus{State: Searching}

	case Trial:
		if bad {
			s.Bad++
			s.Good = 0
			if s.Bad >= r.TrialBad {
				return SyncStatus{State: Searching}
			}
			return s
		}
		s.Good++
		if s.Good >= r.TrialGood {
			return SyncStatus{State: Synced}
		}
		return s

	case Synced:
		if !bad {
			s.Bad = 0
			return s
		}
		s.Bad++
		if ev.Policy == SyncAuto && s.Bad > r.SyncedBad {
			return SyncStatus{State: Searching}
		}
		return s
	}
	return SyncStatus{State: Searching}
}

// nextBandwidth applies the bandwidth switch that accompanies a state
// change.
func nextBandwidth(cur PhaseBandwidth, mode PhaseBandwidthMode, from, to SyncState) PhaseBandwidth {
	if from == to {
		return cur
	}
	switch {
	case to == Synced && mode != PhaseBWLocked:
		return LowBW
	case to == Searching:
		return HighBW
	}
	return cur
}
