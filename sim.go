package airlift

import "sync"

// Simulation runs a complete airlift inside one process: a hostess, a pilot,
// and N passengers, one goroutine each, sharing a heap-allocated SharedState
// and a channel-backed SignalSet. The protocol code is exactly the code the
// per-process binaries run against SysV IPC.
type Simulation struct {
	cfg Config
	rec Recorder

	// State and Signals are exposed for inspection by harnesses; everything
	// in State still requires holding Signals.Mutex.
	State   *SharedState
	Signals *SignalSet
}

// NewSimulation validates cfg and assembles an in-process run. A nil recorder
// discards transitions.
func NewSimulation(cfg Config, rec Recorder) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Simulation{
		cfg:     cfg,
		rec:     rec,
		State:   NewLocalState(),
		Signals: NewLocalSignalSet(),
	}, nil
}

// Run starts every actor and blocks until all have finished, returning the
// first actor error. If an actor fails fatally its peers may stay blocked on
// gates forever and Run will not return; bounding that wait is the caller's
// concern, exactly as with the cross-process run.
func (s *Simulation) Run() error {
	errs := make(chan error, s.cfg.N+2)
	var wg sync.WaitGroup

	run := func(f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f(); err != nil {
				errs <- err
			}
		}()
	}

	run(NewPilot(s.cfg, s.State, s.Signals, s.rec).Run)
	run(NewHostess(s.cfg, s.State, s.Signals, s.rec).Run)
	for id := 0; id < s.cfg.N; id++ {
		run(NewPassenger(id, s.cfg, s.State, s.Signals, s.rec).Run)
	}

	wg.Wait()
	close(errs)
	return <-errs
}
