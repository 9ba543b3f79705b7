package airlift

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// EventKind names the transition log record types.
type EventKind string

const (
	// EventState is a full-state snapshot, written on every hostess or
	// passenger status change.
	EventState EventKind = "state"

	// EventPassengerChecked marks one completed check-in handshake.
	EventPassengerChecked EventKind = "passenger_checked"

	// EventFlightDeparted marks a flight leaving with its final headcount.
	EventFlightDeparted EventKind = "flight_departed"
)

// Event is one transition log record. Snapshot fields are copied out of
// SharedState under the mutex at the moment the event is emitted.
type Event struct {
	Time  int64     `msgpack:"ts"`
	Actor string    `msgpack:"actor"`
	Kind  EventKind `msgpack:"kind"`

	NPassInQueue     int32 `msgpack:"in_queue"`
	NPassInFlight    int32 `msgpack:"in_flight"`
	TotalPassBoarded int32 `msgpack:"boarded"`
	NFlight          int32 `msgpack:"flight"`
	HostessStat      int32 `msgpack:"hostess"`

	// Passenger carries the checked passenger's id on EventPassengerChecked
	// and the flight's final headcount on EventFlightDeparted.
	Passenger int32 `msgpack:"passenger"`
}

// Serializer converts between Go values and byte slices. The event log uses
// MessagePack for compact binary records.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// MsgpackSerializer is the default Serializer.
type MsgpackSerializer struct{}

func (ms MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (ms MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// Recorder receives the core protocol's transition notifications. The actors
// treat it as fire-and-forget: no return value, and correctness never depends
// on what the recorder does. Recorder methods are invoked with the SignalSet
// mutex held, so implementations must not block on protocol gates.
type Recorder interface {
	// SaveState records a full-state snapshot on behalf of actor.
	SaveState(actor string, st *SharedState)

	// SavePassengerChecked records a completed check-in.
	SavePassengerChecked(actor string, st *SharedState)

	// SaveFlightDeparted records a flight departure with its headcount.
	SaveFlightDeparted(actor string, st *SharedState)
}

// NopRecorder discards all transitions.
type NopRecorder struct{}

func (NopRecorder) SaveState(string, *SharedState)            {}
func (NopRecorder) SavePassengerChecked(string, *SharedState) {}
func (NopRecorder) SaveFlightDeparted(string, *SharedState)   {}

// EventLog is an append-only transition log shared by all actor processes of
// a run. Records are length-prefixed MessagePack frames written with a single
// O_APPEND write each, so frames from concurrent processes interleave whole.
type EventLog struct {
	f    *os.File
	ser  Serializer
	pool *framePool
}

// OpenEventLog opens (creating if needed) the append-only log at path.
func OpenEventLog(path string) (*EventLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening event log: %v", err)
	}
	return &EventLog{
		f:    f,
		ser:  MsgpackSerializer{},
		pool: newFramePool(8),
	}, nil
}

// Append writes one event frame. Errors are returned for callers that care;
// the protocol actors do not.
func (l *EventLog) Append(ev Event) error {
	body, err := l.ser.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding event: %v", err)
	}

	// Assemble length prefix and body into one buffer so the append is a
	// single write, keeping frames atomic across processes.
	frame := l.pool.get()[:0]
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	frame = append(frame, prefix[:]...)
	frame = append(frame, body...)

	_, err = l.f.Write(frame)
	l.pool.put(frame)
	if err != nil {
		return fmt.Errorf("error appending event: %v", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *EventLog) Close() error {
	return l.f.Close()
}

func (l *EventLog) snapshot(actor string, kind EventKind, passenger int32, st *SharedState) {
	_ = l.Append(Event{
		Time:             time.Now().UnixNano(),
		Actor:            actor,
		Kind:             kind,
		NPassInQueue:     st.NPassInQueue,
		NPassInFlight:    st.NPassInFlight,
		TotalPassBoarded: st.TotalPassBoarded,
		NFlight:          st.NFlight,
		HostessStat:      st.HostessStat,
		Passenger:        passenger,
	})
}

// SaveState implements Recorder.
func (l *EventLog) SaveState(actor string, st *SharedState) {
	l.snapshot(actor, EventState, -1, st)
}

// SavePassengerChecked implements Recorder.
func (l *EventLog) SavePassengerChecked(actor string, st *SharedState) {
	l.snapshot(actor, EventPassengerChecked, st.PassengerChecked, st)
}

// SaveFlightDeparted implements Recorder.
func (l *EventLog) SaveFlightDeparted(actor string, st *SharedState) {
	headcount := int32(0)
	if st.NFlight >= 1 && st.NFlight <= MaxFlights {
		headcount = st.PassengersPerFlight[st.NFlight-1]
	}
	l.snapshot(actor, EventFlightDeparted, headcount, st)
}

// ReadEvents decodes every frame of a transition log. A truncated trailing
// frame (a process killed mid-write) ends the read without error.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening event log: %v", err)
	}
	defer f.Close()

	var events []Event
	var prefix [4]byte
	for {
		if _, err := io.ReadFull(f, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return events, nil
			}
			return events, fmt.Errorf("error reading frame length: %v", err)
		}
		body := make([]byte, binary.BigEndian.Uint32(prefix[:]))
		if _, err := io.ReadFull(f, body); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return events, nil
			}
			return events, fmt.Errorf("error reading frame body: %v", err)
		}
		var ev Event
		if err := (MsgpackSerializer{}).Unmarshal(body, &ev); err != nil {
			return events, fmt.Errorf("error decoding event: %v", err)
		}
		events = append(events, ev)
	}
}
