package ofdm

import "testing"

func TestSyncRules_Next(t *testing.T) {
	r := DefaultSyncRules()
	good := SyncEvent{UWErrors: 0, Policy: SyncAuto}
	bad := SyncEvent{UWErrors: 5, Policy: SyncAuto}

	tests := []struct {
		name string
		from SyncStatus
		ev   SyncEvent
		want SyncStatus
	}{
		{"search no candidate", SyncStatus{State: Searching}, SyncEvent{Policy: SyncAuto}, SyncStatus{State: Searching}},
		{"search candidate", SyncStatus{State: Searching}, SyncEvent{TimingValid: true, Policy: SyncAuto}, SyncStatus{State: Trial}},
		{"trial good", SyncStatus{State: Trial, Good: 1}, good, SyncStatus{State: Trial, Good: 2}},
		{"trial third good", SyncStatus{State: Trial, Good: 2}, good, SyncStatus{State: Synced}},
		{"trial threshold is good", SyncStatus{State: Trial}, SyncEvent{UWErrors: 2, Policy: SyncAuto}, SyncStatus{State: Trial, Good: 1}},
		{"trial bad resets good", SyncStatus{State: Trial, Good: 2}, bad, SyncStatus{State: Trial, Bad: 1}},
		{"trial second bad", SyncStatus{State: Trial, Good: 1, Bad: 1}, bad, SyncStatus{State: Searching}},
		{"synced good clears bad", SyncStatus{State: Synced, Bad: 4}, good, SyncStatus{State: Synced}},
		{"synced sixth bad", SyncStatus{State: Synced, Bad: 5}, bad, SyncStatus{State: Synced, Bad: 6}},
		{"synced seventh bad", SyncStatus{State: Synced, Bad: 6}, bad, SyncStatus{State: Searching}},
		{"manual never falls out", SyncStatus{State: Synced, Bad: 50}, SyncEvent{UWErrors: 5, Policy: SyncManual}, SyncStatus{State: Synced, Bad: 51}},
		{"unsync from synced", SyncStatus{State: Synced}, SyncEvent{Policy: SyncUnsync}, SyncStatus{State: Searching}},
		{"unsync from trial", SyncStatus{State: Trial, Good: 2}, SyncEvent{Policy: SyncUnsync}, SyncStatus{State: Searching}},
	}

	for _, tt := range tests {
		if got := r.Next(tt.from, tt.ev); got != tt.want {
			t.Errorf("%s: Next(%+v) = %+v, want %+v", tt.name, tt.from, got, tt.want)
		}
	}
}

func TestNextBandwidth(t *testing.T) {
	tests := []struct {
		cur      PhaseBandwidth
		mode     PhaseBandwidthMode
		from, to SyncState
		want     PhaseBandwidth
	}{
		{HighBW, PhaseBWAuto, Trial, Synced, LowBW},
		{HighBW, PhaseBWLocked, Trial, Synced, HighBW},
		{LowBW, PhaseBWAuto, Synced, Searching, HighBW},
		{HighBW, PhaseBWAuto, Searching, Trial, HighBW},
		{LowBW, PhaseBWAuto, Synced, Synced, LowBW},
	}
	for _, tt := range tests {
		if got := nextBandwidth(tt.cur, tt.mode, tt.from, tt.to); got != tt.want {
			t.Errorf("nextBandwidth(%v, %v, %v->%v) = %v, want %v", tt.cur, tt.mode, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSyncState_String(t *testing.T) {
	if Searching.String() != "search" || Trial.String() != "trial" || Synced.String() != "synced" {
		t.Error("unexpected state names")
	}
	if SyncAuto.String() != "auto" || SyncManual.String() != "manual" {
		t.Error("unexpected policy names")
	}
}
