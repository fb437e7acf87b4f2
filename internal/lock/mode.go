package lock

import "fmt"

// Mode is the operating mode of the lock.
// Setup permits free manual positioning and calibration;
// Normal permits lock/unlock actuation.
type Mode int

const (
	ModeSetup Mode = iota
	ModeNormal
)

func (m Mode) String() string {
	if m == ModeSetup {
		return "setup"
	}
	return "normal"
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "setup":
		return ModeSetup, nil
	case "normal":
		return ModeNormal, nil
	default:
		return ModeSetup, fmt.Errorf("invalid mode %q: use \"setup\" or \"normal\"", s)
	}
}
