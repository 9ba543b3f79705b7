package airlift

import (
	"sync"
	"testing"
	"time"
)

// verifyingRecorder checks the protocol's testable properties at every
// transition. It is invoked with the run's mutex held, so each snapshot is a
// consistent view of the shared record.
type verifyingRecorder struct {
	t   *testing.T
	cfg Config

	mu         sync.Mutex
	lastStatus [MaxPassengers]int32
	lastTotal  int32
}

func newVerifyingRecorder(t *testing.T, cfg Config) *verifyingRecorder {
	return &verifyingRecorder{t: t, cfg: cfg}
}

func (r *verifyingRecorder) verify(st *SharedState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := st.CheckInvariants(r.cfg); err != nil {
		r.t.Error(err)
	}
	if st.TotalPassBoarded < r.lastTotal {
		r.t.Errorf("total boarded went backwards: %d -> %d", r.lastTotal, st.TotalPassBoarded)
	}
	r.lastTotal = st.TotalPassBoarded

	var inQueue, atDest int32
	for id := 0; id < r.cfg.N; id++ {
		status := st.PassengerStat[id]
		switch PassengerState(status) {
		case InQueue:
			inQueue++
		case AtDestination:
			atDest++
		}

		// Statuses move forward one step at a time, never back, never
		// skipping.
		if status < r.lastStatus[id] || status > r.lastStatus[id]+1 {
			r.t.Errorf("passenger %d status jumped %d -> %d", id, r.lastStatus[id], status)
		}
		r.lastStatus[id] = status
	}

	// Everyone ever checked in is either aboard or at the destination.
	if atDest+st.NPassInFlight != st.TotalPassBoarded {
		r.t.Errorf("conservation broken: %d at destination + %d aboard != %d boarded",
			atDest, st.NPassInFlight, st.TotalPassBoarded)
	}

	// The queue counter may exceed the status count by one mid-handshake,
	// between the served passenger boarding and the hostess counting it.
	if diff := st.NPassInQueue - inQueue; diff != 0 && diff != 1 {
		r.t.Errorf("queue counter %d disagrees with %d queued statuses", st.NPassInQueue, inQueue)
	}
}

func (r *verifyingRecorder) SaveState(_ string, st *SharedState)            { r.verify(st) }
func (r *verifyingRecorder) SavePassengerChecked(_ string, st *SharedState) { r.verify(st) }
func (r *verifyingRecorder) SaveFlightDeparted(_ string, st *SharedState)   { r.verify(st) }

// runBounded fails the test if the run does not finish within d.
func runBounded(t *testing.T, d time.Duration, run func() error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(d):
		t.Fatalf("run did not finish within %v", d)
	}
}

// checkTerminal asserts the terminal conditions common to every complete run.
func checkTerminal(t *testing.T, cfg Config, st *SharedState) {
	t.Helper()

	if st.TotalPassBoarded != int32(cfg.N) {
		t.Errorf("boarded %d of %d passengers", st.TotalPassBoarded, cfg.N)
	}
	if !st.IsFinished() {
		t.Error("run finished without the finished marker")
	}
	if st.NPassInFlight != 0 || st.NPassInQueue != 0 {
		t.Errorf("terminal counters: queue=%d aboard=%d", st.NPassInQueue, st.NPassInFlight)
	}
	for id := 0; id < cfg.N; id++ {
		if st.PassengerStatus(id) != AtDestination {
			t.Errorf("passenger %d ended as %v", id, st.PassengerStatus(id))
		}
	}

	flights := int(st.NFlight)
	total := int32(0)
	for i := 0; i < flights; i++ {
		headcount := st.PassengersPerFlight[i]
		total += headcount
		if headcount < 1 || headcount > int32(cfg.MaxFC) {
			t.Errorf("flight %d departed with %d aboard, capacity %d", i+1, headcount, cfg.MaxFC)
		}
		// A flight below minimum capacity is only legal when it exhausted
		// the population.
		if headcount < int32(cfg.MinFC) && total != int32(cfg.N) {
			t.Errorf("flight %d departed with %d aboard, minimum %d", i+1, headcount, cfg.MinFC)
		}
	}
	if total != int32(cfg.N) {
		t.Errorf("flights carried %d passengers, want %d", total, cfg.N)
	}
}

func TestSimulationCompletes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.N = 10
	cfg.MinFC = 3
	cfg.MaxFC = 5
	cfg.MaxTravel = 5 * time.Millisecond
	cfg.MaxFlightTime = 2 * time.Millisecond

	rec := newVerifyingRecorder(t, cfg)
	sim, err := NewSimulation(cfg, rec)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}

	runBounded(t, 10*time.Second, sim.Run)
	checkTerminal(t, cfg, sim.State)
}

func TestSimulationSinglePassenger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.N = 1
	cfg.MinFC = 1
	cfg.MaxFC = 5
	cfg.MaxTravel = 0
	cfg.MaxFlightTime = 0

	sim, err := NewSimulation(cfg, newVerifyingRecorder(t, cfg))
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}

	runBounded(t, 10*time.Second, sim.Run)
	checkTerminal(t, cfg, sim.State)

	if sim.State.NFlight != 1 {
		t.Errorf("expected exactly one flight, got %d", sim.State.NFlight)
	}
	if sim.State.PassengersPerFlight[0] != 1 {
		t.Errorf("flight 1 carried %d, want 1", sim.State.PassengersPerFlight[0])
	}
}

func TestSimulationRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.N = 0
	if _, err := NewSimulation(cfg, nil); err == nil {
		t.Fatal("zero-passenger simulation was accepted")
	}
}

// runWithHeldBoarding runs a full airlift whose pilot delays the first
// boarding until every passenger is queued, which makes the per-flight
// headcounts deterministic. Returns the shared state after completion.
func runWithHeldBoarding(t *testing.T, cfg Config) *SharedState {
	t.Helper()

	st := NewLocalState()
	sig := NewLocalSignalSet()
	rec := newVerifyingRecorder(t, cfg)

	run := func() error {
		errs := make(chan error, cfg.N+2)
		var wg sync.WaitGroup
		start := func(f func() error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := f(); err != nil {
					errs <- err
				}
			}()
		}

		start(NewHostess(cfg, st, sig, rec).Run)
		for id := 0; id < cfg.N; id++ {
			start(NewPassenger(id, cfg, st, sig, rec).Run)
		}
		start(func() error {
			// Hold boarding until the whole population is queued, then
			// honor the normal pilot contract.
			for {
				if err := sig.Mutex.Lock(); err != nil {
					return err
				}
				queued := st.NPassInQueue
				if err := sig.Mutex.Unlock(); err != nil {
					return err
				}
				if queued == int32(cfg.N) {
					break
				}
				time.Sleep(time.Millisecond)
			}
			return NewPilot(cfg, st, sig, rec).Run()
		})

		wg.Wait()
		close(errs)
		return <-errs
	}

	runBounded(t, 10*time.Second, run)
	checkTerminal(t, cfg, st)
	return st
}

func flightHeadcounts(st *SharedState) []int32 {
	counts := make([]int32, st.NFlight)
	copy(counts, st.PassengersPerFlight[:st.NFlight])
	return counts
}

func TestFullFlightDepartsAtMaxCapacity(t *testing.T) {
	cfg := Config{N: 10, MinFC: 3, MaxFC: 5}

	st := runWithHeldBoarding(t, cfg)

	// With all ten queued up front, both flights fill to the maximum even
	// though more passengers were waiting when the first departed.
	counts := flightHeadcounts(st)
	if len(counts) != 2 || counts[0] != 5 || counts[1] != 5 {
		t.Errorf("flight headcounts = %v, want [5 5]", counts)
	}
}

func TestFlightDepartsWhenQueueDrains(t *testing.T) {
	cfg := Config{N: 9, MinFC: 3, MaxFC: 5}

	st := runWithHeldBoarding(t, cfg)

	// The second flight has only four passengers left. Minimum capacity is
	// met and the queue is empty, so it departs at four rather than holding
	// for a fifth that will never come.
	counts := flightHeadcounts(st)
	if len(counts) != 2 || counts[0] != 5 || counts[1] != 4 {
		t.Errorf("flight headcounts = %v, want [5 4]", counts)
	}
}

func TestFinalFlightDepartsBelowMinimum(t *testing.T) {
	cfg := Config{N: 7, MinFC: 3, MaxFC: 5}

	st := runWithHeldBoarding(t, cfg)

	// Two passengers remain for the second flight, below the minimum of
	// three. It departs anyway because the whole population has boarded.
	counts := flightHeadcounts(st)
	if len(counts) != 2 || counts[0] != 5 || counts[1] != 2 {
		t.Errorf("flight headcounts = %v, want [5 2]", counts)
	}
}
