package airlift

import "fmt"

// MaxPassengers caps the passenger population of a run. The shared record uses
// fixed-size arrays so that its memory layout is identical whether it lives on
// the Go heap or inside a shared memory segment.
const MaxPassengers = 128

// MaxFlights caps the number of flights a run may record. N passengers with a
// minimum capacity of 1 can never need more than MaxPassengers flights.
const MaxFlights = MaxPassengers

// HostessStatus is the observable state of the boarding agent.
type HostessStatus int32

const (
	WaitForFlight HostessStatus = iota
	WaitForPassenger
	CheckPassport
	ReadyToFlight
)

func (s HostessStatus) String() string {
	switch s {
	case WaitForFlight:
		return "WAIT_FOR_FLIGHT"
	case WaitForPassenger:
		return "WAIT_FOR_PASSENGER"
	case CheckPassport:
		return "CHECK_PASSPORT"
	case ReadyToFlight:
		return "READY_TO_FLIGHT"
	}
	return fmt.Sprintf("HostessStatus(%d)", int32(s))
}

// PassengerState is the observable state of a single passenger. Each passenger
// moves through these values in strictly increasing order, exactly once.
type PassengerState int32

const (
	Traveling PassengerState = iota
	InQueue
	InFlight
	AtDestination
)

func (s PassengerState) String() string {
	switch s {
	case Traveling:
		return "TRAVELING"
	case InQueue:
		return "IN_QUEUE"
	case InFlight:
		return "IN_FLIGHT"
	case AtDestination:
		return "AT_DESTINATION"
	}
	return fmt.Sprintf("PassengerState(%d)", int32(s))
}

// SharedState is the single record every actor reads and writes. It must only
// be touched while holding the SignalSet mutex, and no actor may hold that
// mutex across a blocking gate wait.
//
// All fields are int32 and fixed-size arrays so the struct has one flat layout
// with no pointers, letting the exact same type be placed inside a SysV shared
// memory segment and shared between processes.
type SharedState struct {
	// NPassInQueue counts passengers waiting to be checked in.
	NPassInQueue int32

	// NPassInFlight counts passengers aboard the plane: boarded but not yet
	// departed, or departed but not yet disembarked. Never exceeds MaxFC.
	NPassInFlight int32

	// TotalPassBoarded is the cumulative number of check-ins across all
	// flights. Monotonically increasing, capped at N.
	TotalPassBoarded int32

	// NFlight is the 1-based index of the flight currently being filled. The
	// pilot advances it before opening boarding.
	NFlight int32

	// Finished is nonzero once TotalPassBoarded has reached N. Terminal
	// marker for the pilot's outer loop.
	Finished int32

	// PassengerChecked is a scratch field carrying one passenger's identity
	// from the passenger to the hostess during the check-in handshake.
	PassengerChecked int32

	// HostessStat holds the current HostessStatus.
	HostessStat int32

	// PassengerStat holds each passenger's PassengerState, indexed by id.
	PassengerStat [MaxPassengers]int32

	// PassengersPerFlight records the final headcount of each completed
	// flight, indexed by flight number - 1.
	PassengersPerFlight [MaxFlights]int32
}

// NewLocalState returns a heap-allocated shared record for in-process runs.
func NewLocalState() *SharedState {
	return &SharedState{}
}

// HostessStatus returns the hostess field as its typed value.
func (s *SharedState) HostessStatus() HostessStatus {
	return HostessStatus(s.HostessStat)
}

// PassengerStatus returns passenger id's field as its typed value.
func (s *SharedState) PassengerStatus(id int) PassengerState {
	return PassengerState(s.PassengerStat[id])
}

// IsFinished reports whether all N passengers have been checked in.
func (s *SharedState) IsFinished() bool {
	return s.Finished != 0
}

// departureReady evaluates the hostess's departure decision. Must be called
// with the mutex held, immediately after a check-in has been counted.
//
// The flight is ready when the plane is physically full, when the minimum
// capacity is met and nobody is left waiting, or when no more passengers will
// ever arrive. The queue-empty clause is deliberately timing-sensitive: a
// passenger enqueueing one instant after this check waits for the next flight.
func (s *SharedState) departureReady(cfg Config) bool {
	switch {
	case s.NPassInFlight == int32(cfg.MaxFC):
		return true
	case s.NPassInFlight >= int32(cfg.MinFC) && s.NPassInQueue == 0:
		return true
	case s.TotalPassBoarded == int32(cfg.N):
		return true
	}
	return false
}

// CheckInvariants verifies the counter bounds that must hold whenever the
// mutex is released. The original protocol performs no such runtime checks;
// these assertions are a hardening addition, and a violation is treated like
// any other unrecoverable fault.
func (s *SharedState) CheckInvariants(cfg Config) error {
	if s.NPassInQueue < 0 {
		return fmt.Errorf("invariant violated: %d passengers in queue", s.NPassInQueue)
	}
	if s.NPassInFlight < 0 || s.NPassInFlight > int32(cfg.MaxFC) {
		return fmt.Errorf("invariant violated: %d passengers in flight, capacity %d", s.NPassInFlight, cfg.MaxFC)
	}
	if s.TotalPassBoarded < 0 || s.TotalPassBoarded > int32(cfg.N) {
		return fmt.Errorf("invariant violated: %d passengers boarded of %d total", s.TotalPassBoarded, cfg.N)
	}
	// Finished is only raised in the hostess's departure step, one mutex
	// section after the Nth check-in was counted, so the reverse implication
	// does not hold at every release point.
	if s.IsFinished() && s.TotalPassBoarded != int32(cfg.N) {
		return fmt.Errorf("invariant violated: finished with %d of %d boarded", s.TotalPassBoarded, cfg.N)
	}
	return nil
}
