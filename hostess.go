package airlift

import "fmt"

// hostessActor is the actor tag used in error and log records.
const hostessActor = "hostess"

// Hostess is the boarding agent. It batches queued passengers into flights,
// runs the check-in handshake with one passenger at a time, and signals the
// pilot once a flight is ready to depart.
type Hostess struct {
	cfg Config
	st  *SharedState
	sig *SignalSet
	rec Recorder
}

// NewHostess returns a hostess bound to a run's shared state and signal set.
func NewHostess(cfg Config, st *SharedState, sig *SignalSet, rec Recorder) *Hostess {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Hostess{cfg: cfg, st: st, sig: sig, rec: rec}
}

// Run executes the hostess's full life cycle: flights are boarded and
// dispatched until all N passengers have been checked in. Any failed
// semaphore operation or violated state invariant aborts immediately with an
// error; the caller maps that to process termination. There is no retry and
// no repair of shared state.
func (h *Hostess) Run() error {
	checked := 0
	for checked < h.cfg.N {
		if err := h.waitForNextFlight(); err != nil {
			return err
		}
		for {
			if err := h.waitForPassenger(); err != nil {
				return err
			}
			last, err := h.checkPassport()
			if err != nil {
				return err
			}
			checked++
			if last {
				break
			}
		}
		if err := h.signalReadyToFlight(); err != nil {
			return err
		}
	}
	return nil
}

// waitForNextFlight records the WAIT_FOR_FLIGHT status, then blocks until the
// pilot opens boarding.
func (h *Hostess) waitForNextFlight() error {
	if err := h.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("hostess: error on mutex down: %v", err)
	}
	h.st.HostessStat = int32(WaitForFlight)
	h.rec.SaveState(hostessActor, h.st)
	if err := h.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("hostess: error on mutex up: %v", err)
	}

	if err := h.sig.ReadyForBoarding.Wait(); err != nil {
		return fmt.Errorf("hostess: error waiting for boarding: %v", err)
	}
	return nil
}

// waitForPassenger records the WAIT_FOR_PASSENGER status, then blocks until
// at least one passenger has enqueued.
func (h *Hostess) waitForPassenger() error {
	if err := h.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("hostess: error on mutex down: %v", err)
	}
	h.st.HostessStat = int32(WaitForPassenger)
	h.rec.SaveState(hostessActor, h.st)
	if err := h.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("hostess: error on mutex up: %v", err)
	}

	if err := h.sig.PassengersInQueue.Wait(); err != nil {
		return fmt.Errorf("hostess: error waiting for queue: %v", err)
	}
	return nil
}

// checkPassport serves exactly one queued passenger: it wakes them, waits for
// their identity, counts the check-in, and evaluates the departure decision.
// Returns true when this passenger was the last of the flight.
func (h *Hostess) checkPassport() (bool, error) {
	// Admit one passenger to the desk.
	if err := h.sig.PassengersWaitInQueue.Signal(); err != nil {
		return false, fmt.Errorf("hostess: error admitting passenger: %v", err)
	}

	if err := h.sig.Mutex.Lock(); err != nil {
		return false, fmt.Errorf("hostess: error on mutex down: %v", err)
	}
	h.st.HostessStat = int32(CheckPassport)
	h.rec.SaveState(hostessActor, h.st)
	if err := h.sig.Mutex.Unlock(); err != nil {
		return false, fmt.Errorf("hostess: error on mutex up: %v", err)
	}

	// Second phase of the rendezvous: the passenger hands over their id.
	if err := h.sig.IdShown.Wait(); err != nil {
		return false, fmt.Errorf("hostess: error waiting for id: %v", err)
	}

	if err := h.sig.Mutex.Lock(); err != nil {
		return false, fmt.Errorf("hostess: error on mutex down: %v", err)
	}
	h.st.NPassInQueue--
	h.st.NPassInFlight++
	h.st.TotalPassBoarded++
	h.rec.SavePassengerChecked(hostessActor, h.st)
	h.rec.SaveState(hostessActor, h.st)

	if err := h.st.CheckInvariants(h.cfg); err != nil {
		_ = h.sig.Mutex.Unlock()
		return false, fmt.Errorf("hostess: %v", err)
	}
	last := h.st.departureReady(h.cfg)

	if err := h.sig.Mutex.Unlock(); err != nil {
		return false, fmt.Errorf("hostess: error on mutex up: %v", err)
	}
	return last, nil
}

// signalReadyToFlight records the flight's final headcount, marks the airlift
// finished once all N passengers are boarded, and releases the pilot.
func (h *Hostess) signalReadyToFlight() error {
	if err := h.sig.Mutex.Lock(); err != nil {
		return fmt.Errorf("hostess: error on mutex down: %v", err)
	}
	h.st.HostessStat = int32(ReadyToFlight)
	h.rec.SaveState(hostessActor, h.st)

	if h.st.NFlight < 1 || h.st.NFlight > MaxFlights {
		_ = h.sig.Mutex.Unlock()
		return fmt.Errorf("hostess: flight number %d out of range", h.st.NFlight)
	}
	h.st.PassengersPerFlight[h.st.NFlight-1] = h.st.NPassInFlight
	h.rec.SaveFlightDeparted(hostessActor, h.st)

	if h.st.TotalPassBoarded == int32(h.cfg.N) {
		h.st.Finished = 1
	}
	if err := h.sig.Mutex.Unlock(); err != nil {
		return fmt.Errorf("hostess: error on mutex up: %v", err)
	}

	if err := h.sig.ReadyToFlight.Signal(); err != nil {
		return fmt.Errorf("hostess: error signaling departure: %v", err)
	}
	return nil
}
