package airlift

import (
	"fmt"
	"math/rand"
	"time"
)

// Passenger is one traveler of the airlift, identified by an integer in
// [0, N). Passengers are fully independent of each other; all coordination
// happens through the shared state and signal set.
type Passenger struct {
	id  int
	cfg Config
	st  *SharedState
	sig *SignalSet
	rec Recorder

	// sleep is swappable so tests can run without real delays.
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewPassenger returns passenger id bound to a run's shared state and signal
// set.
func NewPassenger(id int, cfg Config, st *SharedState, sig *SignalSet, rec Recorder) *Passenger {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Passenger{
		id:    id,
		cfg:   cfg,
		st:    st,
		sig:   sig,
		rec:   rec,
		sleep: time.Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
	}
}

func (p *Passenger) actor() string {
	return fmt.Sprintf("passenger-%d", p.id)
}

// Run executes the passenger's full life cycle: travel to the airport, queue
// and check in, fly, disembark. Any failed semaphore operation aborts
// immediately; the caller maps that to process termination.
func (p *Passenger) Run() error {
	p.travelToAirport()
	if err := p.waitInQueue(); err != nil {
		return err
	}
	return p.waitUntilDestination()
}

// travelToAirport delays the passenger by a bounded random time. Flavor only;
// it carries no synchronization.
func (p *Passenger) travelToAirport() {
	if p.cfg.MaxTravel <= 0 {
		return
	}
	p.sleep(time.Duration(p.rng.Int63n(int64(p.cfg.MaxTravel))))
}

// waitInQueue enqueues the passenger, waits to be served by the hostess, and
// completes the check-in handshake by handing over the passenger's identity.
//
// Service order among concurrently queued passengers is whatever order the
// gate wakes waiters; it is not FIFO.
func (p *Passenger) waitInQueue() error {
	if err := p.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("%s: error on mutex down: %v", p.actor(), err)
	}
	p.st.NPassInQueue++
	p.st.PassengerStat[p.id] = int32(InQueue)
	p.rec.SaveState(p.actor(), p.st)
	if err := p.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("%s: error on mutex up: %v", p.actor(), err)
	}

	// Wake the hostess if she is waiting for arrivals.
	if err := p.sig.PassengersInQueue.Signal(); err != nil {
		return fmt.Errorf("%s: error announcing arrival: %v", p.actor(), err)
	}

	// Suspend until the hostess admits this passenger to the desk.
	if err := p.sig.PassengersWaitInQueue.Wait(); err != nil {
		return fmt.Errorf("%s: error waiting for service: %v", p.actor(), err)
	}

	if err := p.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("%s: error on mutex down: %v", p.actor(), err)
	}
	p.st.PassengerChecked = int32(p.id)
	p.st.PassengerStat[p.id] = int32(InFlight)
	p.rec.SaveState(p.actor(), p.st)
	if err := p.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("%s: error on mutex up: %v", p.actor(), err)
	}

	// Complete the rendezvous: the hostess may now count the check-in.
	if err := p.sig.IdShown.Signal(); err != nil {
		return fmt.Errorf("%s: error showing id: %v", p.actor(), err)
	}
	return nil
}

// waitUntilDestination suspends until the pilot releases the passenger's seat
// at the destination, then disembarks. The passenger that empties the plane
// signals the pilot; the decrement and the zero test happen in one mutex
// section, so exactly one passenger per flight does this.
func (p *Passenger) waitUntilDestination() error {
	if err := p.sig.PassengersWaitInFlight.Wait(); err != nil {
		return fmt.Errorf("%s: error waiting for destination: %v", p.actor(), err)
	}

	if err := p.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("%s: error on mutex down: %v", p.actor(), err)
	}
	p.st.PassengerStat[p.id] = int32(AtDestination)
	p.st.NPassInFlight--
	p.rec.SaveState(p.actor(), p.st)

	if p.st.NPassInFlight == 0 {
		if err := p.sig.PlaneEmpty.Signal(); err != nil {
			_ = p.sig.Mutex.Unlock()
			return fmt.Errorf("%s: error signaling empty plane: %v", p.actor(), err)
		}
	}
	if err := p.st.CheckInvariants(p.cfg); err != nil {
		_ = p.sig.Mutex.Unlock()
		return fmt.Errorf("%s: %v", p.actor(), err)
	}
	if err := p.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("%s: error on mutex up: %v", p.actor(), err)
	}
	return nil
}
