// Package airlift implements a capacity-constrained shuttle simulation in which
// a boarding agent (the hostess), a fixed population of passengers, and a pilot
// coordinate exclusively through shared memory and counting semaphores.
//
// A plane may only depart with between MINFC and MAXFC passengers aboard. The
// hostess pulls one passenger at a time from the waiting queue, runs a two-phase
// check-in handshake with them, and after every check-in decides whether the
// flight is ready to depart. The pilot ferries each full flight and releases the
// passengers at the destination; the last passenger to leave the plane tells the
// pilot it is empty. The simulation terminates once all N passengers have flown.
//
// # Shared State and Signals
//
// All actors share a single fixed-layout record, SharedState, mutated only while
// holding the mutex of a SignalSet. The SignalSet carries the mutex plus seven
// counting gates used as one-directional rendezvous channels:
//
//	passengersInQueue       passenger -> hostess   "someone is waiting"
//	passengersWaitInQueue   hostess   -> passenger "you are being served"
//	idShown                 passenger -> hostess   "identity handed over"
//	readyForBoarding        pilot     -> hostess   "you may start boarding"
//	readyToFlight           hostess   -> pilot     "flight is full, depart"
//	passengersWaitInFlight  pilot     -> passenger "you may disembark"
//	planeEmpty              passenger -> pilot     "plane is empty"
//
// No actor holds the mutex across a blocking gate wait, and no actor polls:
// every cross-actor interaction is a blocking semaphore operation.
//
// # Backends
//
// Two interchangeable backends provide the mutex and gates:
//
//	// In-process: one goroutine per actor, channel-based counting gates.
//	sig := airlift.NewLocalSignalSet()
//	st := airlift.NewLocalState()
//
//	// Cross-process (Linux): SysV shared memory and a SysV semaphore set,
//	// one OS process per actor, attached by key.
//	ipc, err := airlift.CreateIPC(0x1234)
//	defer ipc.Remove()
//
// The protocol code is identical over both; the cmd/ binaries run one actor per
// OS process against the SysV backend, while cmd/airlift -local runs the whole
// simulation in a single process.
//
// # Actors
//
// Hostess, Passenger, and Pilot each expose a Run method that executes the
// actor's full life cycle and returns the first unrecoverable error. There is
// no retry anywhere: any semaphore operation failing is fatal to the actor that
// observed it, and a crashed actor leaves its peers blocked on the gates it
// would have signaled. This mirrors the original protocol's failure model.
//
// # Transition Log
//
// Actors append state transitions to a shared append-only event log encoded as
// length-prefixed MessagePack frames. The log is fire-and-forget: protocol
// correctness never depends on it.
package airlift
