//go:build linux

package airlift

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Semaphore set layout. Every process attaching to a run's key must agree on
// these positions; they are the cross-process wire format together with the
// SharedState struct layout.
const (
	semMutex = iota
	semPassengersInQueue
	semPassengersWaitInQueue
	semIdShown
	semReadyForBoarding
	semReadyToFlight
	semPassengersWaitInFlight
	semPlaneEmpty
	numSems
)

// semctl command values from <sys/sem.h>; x/sys/unix does not export them.
const (
	semctlGetVal = 12
	semctlSetVal = 16
)

// sembuf mirrors struct sembuf from <sys/sem.h>.
type sembuf struct {
	semNum uint16
	semOp  int16
	semFlg int16
}

// semSet wraps one SysV semaphore set holding all gates and the mutex.
type semSet struct {
	id int
}

func semGet(key, flag int) (*semSet, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), numSems, uintptr(flag))
	if errno != 0 {
		return nil, fmt.Errorf("error on semget for key %#x: %v", key, errno)
	}
	return &semSet{id: int(id)}, nil
}

func (s *semSet) setVal(num, val int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL,
		uintptr(s.id), uintptr(num), semctlSetVal, uintptr(val), 0, 0)
	if errno != 0 {
		return fmt.Errorf("error on semctl setval sem %d: %v", num, errno)
	}
	return nil
}

// op applies a single delta to one semaphore of the set, retrying on EINTR.
// A delta of -1 blocks until the semaphore is positive.
func (s *semSet) op(num int, delta int16) error {
	sb := sembuf{semNum: uint16(num), semOp: delta}
	for {
		_, _, errno := unix.Syscall(unix.SYS_SEMOP,
			uintptr(s.id), uintptr(unsafe.Pointer(&sb)), 1)
		if errno == 0 {
			return nil
		}
		if errno == unix.EINTR {
			continue
		}
		return fmt.Errorf("error on semop sem %d delta %d: %v", num, delta, errno)
	}
}

// opTimeout is op with a bounded wait. Returns false if the timeout elapsed.
func (s *semSet) opTimeout(num int, delta int16, d time.Duration) (bool, error) {
	sb := sembuf{semNum: uint16(num), semOp: delta}
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		ts := unix.NsecToTimespec(remaining.Nanoseconds())
		_, _, errno := unix.Syscall6(unix.SYS_SEMTIMEDOP,
			uintptr(s.id), uintptr(unsafe.Pointer(&sb)), 1,
			uintptr(unsafe.Pointer(&ts)), 0, 0)
		switch errno {
		case 0:
			return true, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return false, nil
		default:
			return false, fmt.Errorf("error on semtimedop sem %d: %v", num, errno)
		}
	}
}

func (s *semSet) remove() error {
	_, _, errno := unix.Syscall(unix.SYS_SEMCTL,
		uintptr(s.id), 0, unix.IPC_RMID)
	if errno != 0 {
		return fmt.Errorf("error removing semaphore set: %v", errno)
	}
	return nil
}

// sysvGate adapts one member of the semaphore set to the Gate interface.
type sysvGate struct {
	set *semSet
	num int
}

func (g *sysvGate) Wait() error   { return g.set.op(g.num, -1) }
func (g *sysvGate) Signal() error { return g.set.op(g.num, 1) }

func (g *sysvGate) WaitTimeout(d time.Duration) (bool, error) {
	return g.set.opTimeout(g.num, -1, d)
}

// sysvLocker adapts the mutex member of the semaphore set to Locker.
type sysvLocker struct {
	set *semSet
}

func (l *sysvLocker) Lock() error   { return l.set.op(semMutex, -1) }
func (l *sysvLocker) Unlock() error { return l.set.op(semMutex, 1) }

// stateSize is the byte size of the shared segment.
var stateSize = int(unsafe.Sizeof(SharedState{}))

// IPC bundles a run's cross-process resources: the SysV shared memory segment
// holding SharedState and the semaphore set holding the SignalSet. One process
// creates it; every other actor process connects to the same key.
type IPC struct {
	key   int
	shmid int
	seg   []byte
	sems  *semSet

	// State points directly into the attached shared segment. Valid until
	// Detach or Remove.
	State *SharedState

	// Signals is the run's SignalSet, backed by the semaphore set.
	Signals *SignalSet
}

// CreateIPC allocates and initializes the shared memory segment and semaphore
// set for a new run. The mutex starts at 1, every gate at 0, and the shared
// record is zeroed. Fails if resources already exist under the key.
func CreateIPC(key int) (*IPC, error) {
	sems, err := semGet(key, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		return nil, err
	}
	if err := sems.setVal(semMutex, 1); err != nil {
		_ = sems.remove()
		return nil, err
	}
	for num := semPassengersInQueue; num < numSems; num++ {
		if err := sems.setVal(num, 0); err != nil {
			_ = sems.remove()
			return nil, err
		}
	}

	shmid, err := unix.SysvShmGet(key, stateSize, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		_ = sems.remove()
		return nil, fmt.Errorf("error on shmget for key %#x: %v", key, err)
	}
	ipc, err := attach(key, shmid, sems)
	if err != nil {
		_, _ = unix.SysvShmCtl(shmid, unix.IPC_RMID, nil)
		_ = sems.remove()
		return nil, err
	}
	// Fresh segments are zero-filled by the kernel, which is exactly the
	// initial SharedState.
	return ipc, nil
}

// ConnectIPC attaches to a run's existing shared memory segment and semaphore
// set by key.
func ConnectIPC(key int) (*IPC, error) {
	sems, err := semGet(key, 0)
	if err != nil {
		return nil, err
	}
	shmid, err := unix.SysvShmGet(key, stateSize, 0)
	if err != nil {
		return nil, fmt.Errorf("error on shmget for key %#x: %v", key, err)
	}
	return attach(key, shmid, sems)
}

func attach(key, shmid int, sems *semSet) (*IPC, error) {
	seg, err := unix.SysvShmAttach(shmid, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("error attaching shared segment: %v", err)
	}
	state := (*SharedState)(unsafe.Pointer(&seg[0]))
	return &IPC{
		key:   key,
		shmid: shmid,
		seg:   seg,
		sems:  sems,
		State: state,
		Signals: &SignalSet{
			Mutex:                  &sysvLocker{set: sems},
			PassengersInQueue:      &sysvGate{set: sems, num: semPassengersInQueue},
			PassengersWaitInQueue:  &sysvGate{set: sems, num: semPassengersWaitInQueue},
			IdShown:                &sysvGate{set: sems, num: semIdShown},
			ReadyForBoarding:       &sysvGate{set: sems, num: semReadyForBoarding},
			ReadyToFlight:          &sysvGate{set: sems, num: semReadyToFlight},
			PassengersWaitInFlight: &sysvGate{set: sems, num: semPassengersWaitInFlight},
			PlaneEmpty:             &sysvGate{set: sems, num: semPlaneEmpty},
		},
	}, nil
}

// Detach unmaps the shared segment from this process. The segment and
// semaphore set stay alive for other attached processes.
func (ipc *IPC) Detach() error {
	if ipc.seg == nil {
		return nil
	}
	if err := unix.SysvShmDetach(ipc.seg); err != nil {
		return fmt.Errorf("error detaching shared segment: %v", err)
	}
	ipc.seg = nil
	ipc.State = nil
	return nil
}

// Remove detaches and destroys the run's shared resources. Only the creating
// process calls this, at simulation teardown.
func (ipc *IPC) Remove() error {
	detachErr := ipc.Detach()
	if _, err := unix.SysvShmCtl(ipc.shmid, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("error removing shared segment: %v", err)
	}
	if err := ipc.sems.remove(); err != nil {
		return err
	}
	return detachErr
}
