package hardware

import "errors"

var (
	// ErrDaemonUnreachable is returned when the servo daemon cannot be
	// reached or the exchange times out.
	ErrDaemonUnreachable = errors.New("hardware: daemon unreachable")

	// ErrHardwareFault is returned when the daemon reports a fault
	// while executing a command.
	ErrHardwareFault = errors.New("hardware: fault")
)
