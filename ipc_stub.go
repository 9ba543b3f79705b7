//go:build !linux

package airlift

import "errors"

// ErrIPCNotAvailable is returned when cross-process operation is attempted on
// a platform without SysV IPC support. The in-process backend (-local mode)
// works everywhere.
var ErrIPCNotAvailable = errors.New("cross-process mode requires SysV IPC; only available on Linux")

// IPC is a stub on non-Linux platforms. All constructors fail with
// ErrIPCNotAvailable.
type IPC struct {
	State   *SharedState
	Signals *SignalSet
}

func CreateIPC(key int) (*IPC, error) {
	return nil, ErrIPCNotAvailable
}

func ConnectIPC(key int) (*IPC, error) {
	return nil, ErrIPCNotAvailable
}

func (ipc *IPC) Detach() error {
	return ErrIPCNotAvailable
}

func (ipc *IPC) Remove() error {
	return ErrIPCNotAvailable
}
