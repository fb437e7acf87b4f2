package lock

import "errors"

var (
	// ErrSetupMode rejects lock/unlock actuation while in Setup mode.
	ErrSetupMode = errors.New("cannot lock/unlock in setup mode")

	// ErrDriver marks a failed actuator move. The operation aborts but
	// the process keeps running; position is never advanced past a
	// failed move.
	ErrDriver = errors.New("motion driver failure")

	// ErrStorage marks a failed persistence read/write. On save, the
	// in-memory calibration value is kept even when this is returned.
	ErrStorage = errors.New("position storage failure")
)
