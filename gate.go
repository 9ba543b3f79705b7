package airlift

import (
	"errors"
	"time"
)

// ErrGateOverflow is returned when more signals are pending on an in-process
// gate than any correct run of the protocol can produce.
var ErrGateOverflow = errors.New("gate overflow: more pending signals than passengers")

// Gate is a counting rendezvous primitive: one side signals, the other waits.
// It starts at zero and never acts as a lock. Signals are never lost; a Signal
// delivered before anyone waits satisfies the next Wait.
//
// Both processes of a cross-process run must open the gate under the same
// semaphore set key.
type Gate interface {
	// Wait blocks until the gate can be decremented. There is no timeout and
	// no cancellation: a gate that is never signaled blocks forever.
	Wait() error

	// WaitTimeout attempts to decrement the gate with a maximum wait time.
	// Returns false if the timeout elapsed. Test harnesses use this to bound
	// otherwise-indefinite waits; the protocol itself never does.
	WaitTimeout(d time.Duration) (bool, error)

	// Signal increments the gate, potentially unblocking one waiter.
	Signal() error
}

// Locker is the mutual-exclusion guard for SharedState. It is kept separate
// from Gate because the two roles never mix: the mutex is always released by
// the actor that acquired it, while gates are signaled by one actor and
// awaited by another.
type Locker interface {
	Lock() error
	Unlock() error
}

// SignalSet is the fixed collection of coordination channels shared by every
// actor of a run: the SharedState mutex plus the seven named gates of the
// boarding protocol. One instance exists per simulation run, created before
// any actor starts.
type SignalSet struct {
	// Mutex guards all SharedState reads and writes.
	Mutex Locker

	// PassengersInQueue is signaled by a passenger after enqueueing.
	PassengersInQueue Gate

	// PassengersWaitInQueue is signaled by the hostess to admit exactly one
	// queued passenger to the check-in desk. The order in which concurrently
	// queued passengers are woken is unspecified, not FIFO.
	PassengersWaitInQueue Gate

	// IdShown is signaled by the passenger being served once their identity
	// is written into SharedState.PassengerChecked.
	IdShown Gate

	// ReadyForBoarding is signaled by the pilot when boarding may begin.
	ReadyForBoarding Gate

	// ReadyToFlight is signaled by the hostess when the flight may depart.
	ReadyToFlight Gate

	// PassengersWaitInFlight is signaled by the pilot once per boarded seat
	// after landing, releasing each passenger to disembark.
	PassengersWaitInFlight Gate

	// PlaneEmpty is signaled by the last passenger to leave the plane.
	PlaneEmpty Gate
}

// chanGate is the in-process Gate: a buffered channel used as a counting
// semaphore, sized so that no correct protocol run can fill it.
type chanGate struct {
	slots chan struct{}
}

func newChanGate() *chanGate {
	return &chanGate{slots: make(chan struct{}, MaxPassengers)}
}

func (g *chanGate) Wait() error {
	<-g.slots
	return nil
}

func (g *chanGate) WaitTimeout(d time.Duration) (bool, error) {
	select {
	case <-g.slots:
		return true, nil
	case <-time.After(d):
		return false, nil
	}
}

func (g *chanGate) Signal() error {
	select {
	case g.slots <- struct{}{}:
		return nil
	default:
		return ErrGateOverflow
	}
}

// chanLocker is the in-process Locker. It wraps a buffered channel of one
// slot rather than sync.Mutex so the whole local SignalSet shares one
// implementation discipline.
type chanLocker struct {
	slot chan struct{}
}

func newChanLocker() *chanLocker {
	l := &chanLocker{slot: make(chan struct{}, 1)}
	l.slot <- struct{}{}
	return l
}

func (l *chanLocker) Lock() error {
	<-l.slot
	return nil
}

func (l *chanLocker) Unlock() error {
	select {
	case l.slot <- struct{}{}:
		return nil
	default:
		return errors.New("mutex released twice")
	}
}

// NewLocalSignalSet returns a SignalSet backed by in-process channels, for
// runs where every actor is a goroutine of the same process.
func NewLocalSignalSet() *SignalSet {
	return &SignalSet{
		Mutex:                  newChanLocker(),
		PassengersInQueue:      newChanGate(),
		PassengersWaitInQueue:  newChanGate(),
		IdShown:                newChanGate(),
		ReadyForBoarding:       newChanGate(),
		ReadyToFlight:          newChanGate(),
		PassengersWaitInFlight: newChanGate(),
		PlaneEmpty:             newChanGate(),
	}
}
