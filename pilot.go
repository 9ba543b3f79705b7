package airlift

import (
	"fmt"
	"math/rand"
	"time"
)

// pilotActor is the actor tag used in error and log records.
const pilotActor = "pilot"

// Pilot is the reference implementation of the pilot's signal contract. The
// core protocol only depends on the contract, not on this implementation:
// once per flight cycle the pilot must
//
//  1. signal ReadyForBoarding when boarding may begin,
//  2. block on ReadyToFlight until the hostess declares the flight full,
//  3. after the flight, signal PassengersWaitInFlight once per boarded seat,
//  4. block on PlaneEmpty until the last disembarking passenger signals.
//
// The hostess and passengers work correctly under any pilot timing as long as
// that ordering is honored. This pilot additionally advances the shared
// flight counter before opening boarding and exits once the hostess has
// marked the airlift finished.
type Pilot struct {
	cfg Config
	st  *SharedState
	sig *SignalSet
	rec Recorder

	// sleep is swappable so tests can run without real delays.
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewPilot returns a pilot bound to a run's shared state and signal set.
func NewPilot(cfg Config, st *SharedState, sig *SignalSet, rec Recorder) *Pilot {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Pilot{
		cfg:   cfg,
		st:    st,
		sig:   sig,
		rec:   rec,
		sleep: time.Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run flies boarding/departure cycles until the airlift is finished. Any
// failed semaphore operation aborts immediately; the caller maps that to
// process termination.
func (p *Pilot) Run() error {
	for {
		if err := p.openBoarding(); err != nil {
			return err
		}

		if err := p.sig.ReadyToFlight.Wait(); err != nil {
			return fmt.Errorf("pilot: error waiting for full flight: %v", err)
		}

		p.fly()

		seats, done, err := p.landedHeadcount()
		if err != nil {
			return err
		}

		// Release each boarded passenger's seat. Seats are read before any
		// passenger can start decrementing NPassInFlight, so the count is
		// exact.
		for i := int32(0); i < seats; i++ {
			if err := p.sig.PassengersWaitInFlight.Signal(); err != nil {
				return fmt.Errorf("pilot: error releasing seat: %v", err)
			}
		}

		if err := p.sig.PlaneEmpty.Wait(); err != nil {
			return fmt.Errorf("pilot: error waiting for empty plane: %v", err)
		}

		if done {
			return nil
		}
	}
}

// openBoarding advances the flight counter and tells the hostess boarding may
// begin.
func (p *Pilot) openBoarding() error {
	if err := p.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("pilot: error on mutex down: %v", err)
	}
	p.st.NFlight++
	p.rec.SaveState(pilotActor, p.st)
	if err := p.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("pilot: error on mutex up: %v", err)
	}

	if err := p.sig.ReadyForBoarding.Signal(); err != nil {
		return fmt.Errorf("pilot: error opening boarding: %v", err)
	}
	return nil
}

// fly simulates the flight itself with a bounded random delay.
func (p *Pilot) fly() {
	if p.cfg.MaxFlightTime <= 0 {
		return
	}
	p.sleep(time.Duration(p.rng.Int63n(int64(p.cfg.MaxFlightTime))))
}

// landedHeadcount reads how many passengers boarded this flight and whether
// the hostess has marked the airlift finished. The hostess sets Finished
// before signaling ReadyToFlight, so reading it after landing is exact.
func (p *Pilot) landedHeadcount() (int32, bool, error) {
	if err := p.sig.Mutex.Lock(); err != nil {
		return 0, false, fmt.Errorf("pilot: error on mutex down: %v", err)
	}
	seats := p.st.NPassInFlight
	done := p.st.IsFinished()
	flight := p.st.NFlight
	if err := p.sig.Mutex.Unlock(); err != nil {
		return 0, false, fmt.Errorf("pilot: error on mutex up: %v", err)
	}
	if seats < 1 {
		return 0, false, fmt.Errorf("pilot: flight %d departed with no passengers", flight)
	}
	return seats, done, nil
}
