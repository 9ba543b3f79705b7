package airlift

import "testing"

func TestDepartureDecision(t *testing.T) {
	cfg := Config{N: 10, MinFC: 3, MaxFC: 5}

	tests := []struct {
		name     string
		inFlight int32
		inQueue  int32
		boarded  int32
		ready    bool
	}{
		{name: "plane full", inFlight: 5, inQueue: 7, boarded: 5, ready: true},
		{name: "min met and queue empty", inFlight: 3, inQueue: 0, boarded: 8, ready: true},
		{name: "min met but queue has waiters", inFlight: 3, inQueue: 2, boarded: 3, ready: false},
		{name: "below min with empty queue", inFlight: 2, inQueue: 0, boarded: 5, ready: false},
		{name: "everyone has boarded", inFlight: 2, inQueue: 0, boarded: 10, ready: true},
		{name: "first passenger of many", inFlight: 1, inQueue: 6, boarded: 1, ready: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := SharedState{
				NPassInFlight:    tc.inFlight,
				NPassInQueue:     tc.inQueue,
				TotalPassBoarded: tc.boarded,
			}
			if got := st.departureReady(cfg); got != tc.ready {
				t.Errorf("departureReady = %v, want %v", got, tc.ready)
			}
		})
	}
}

func TestCheckInvariants(t *testing.T) {
	cfg := Config{N: 10, MinFC: 3, MaxFC: 5}

	tests := []struct {
		name    string
		st      SharedState
		wantErr bool
	}{
		{name: "zero state", st: SharedState{}},
		{name: "mid run", st: SharedState{NPassInQueue: 2, NPassInFlight: 3, TotalPassBoarded: 8}},
		{name: "negative queue", st: SharedState{NPassInQueue: -1}, wantErr: true},
		{name: "overfull plane", st: SharedState{NPassInFlight: 6, TotalPassBoarded: 6}, wantErr: true},
		{name: "boarded beyond population", st: SharedState{TotalPassBoarded: 11}, wantErr: true},
		{name: "finished early", st: SharedState{Finished: 1, TotalPassBoarded: 7}, wantErr: true},
		{name: "finished exactly", st: SharedState{Finished: 1, TotalPassBoarded: 10}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.st.CheckInvariants(cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("CheckInvariants = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStatusStrings(t *testing.T) {
	if got := WaitForFlight.String(); got != "WAIT_FOR_FLIGHT" {
		t.Errorf("WaitForFlight = %q", got)
	}
	if got := ReadyToFlight.String(); got != "READY_TO_FLIGHT" {
		t.Errorf("ReadyToFlight = %q", got)
	}
	if got := AtDestination.String(); got != "AT_DESTINATION" {
		t.Errorf("AtDestination = %q", got)
	}
	if got := PassengerState(99).String(); got != "PassengerState(99)" {
		t.Errorf("unknown state = %q", got)
	}
}

func TestSharedStateTypedAccessors(t *testing.T) {
	st := NewLocalState()
	st.HostessStat = int32(CheckPassport)
	st.PassengerStat[3] = int32(InFlight)

	if st.HostessStatus() != CheckPassport {
		t.Errorf("hostess status = %v", st.HostessStatus())
	}
	if st.PassengerStatus(3) != InFlight {
		t.Errorf("passenger 3 status = %v", st.PassengerStatus(3))
	}
	if st.IsFinished() {
		t.Error("fresh state reports finished")
	}
}
