// Package lock implements the position/mode state machine driving a
// single motorized lock. A Controller tracks an absolute motor
// position, maps two calibrated positions (lock, unlock) onto that
// axis, and defers the return-to-center move to a background
// Scheduler. All mutable state is guarded by one controller-wide
// mutex shared between the HTTP facade and the scheduler.
package lock

import (
	"fmt"
	"sync"

	"github.com/yuewuo/AutoLock/internal/debug"
)

// MotionDriver performs a signed relative move of the physical
// actuator. Implementations must de-energize the actuator after every
// move and take time proportional to |delta|.
type MotionDriver interface {
	Move(delta int) error
}

// PositionStore durably saves and restores the calibrated positions.
// Load returns (0, 0) when nothing has been persisted yet.
type PositionStore interface {
	Save(lockPos, unlockPos int) error
	Load() (lockPos, unlockPos int, err error)
}

// Status is a consistent snapshot of the controller state.
type Status struct {
	Position      int    `json:"position"`
	LockPos       int    `json:"lock_pos"`
	UnlockPos     int    `json:"unlock_pos"`
	Mode          string `json:"mode"`
	PendingReturn bool   `json:"pending_return"`
}

// Controller owns the lock state machine. All exported methods are
// safe for concurrent use; each one holds the controller mutex for
// its whole body so cross-field invariants (position reflects the
// last completed move, pending flag matches the last actuation) hold
// atomically.
type Controller struct {
	mu     sync.Mutex
	driver MotionDriver
	store  PositionStore

	position      int
	lockPos       int
	unlockPos     int
	mode          Mode
	pendingReturn bool
}

// NewController creates a controller in Setup mode at position 0.
// Call Begin to load persisted calibration before serving requests.
func NewController(driver MotionDriver, store PositionStore) *Controller {
	return &Controller{
		driver: driver,
		store:  store,
		mode:   ModeSetup,
	}
}

// Begin loads the persisted positions. If the device was already
// calibrated (lock and unlock positions differ), it starts in Normal
// mode; otherwise it stays in Setup mode. The motor is assumed to be
// physically at its last rest point, which becomes logical position 0.
func (c *Controller) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lockPos, unlockPos, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	c.lockPos = lockPos
	c.unlockPos = unlockPos
	if c.lockPos != c.unlockPos {
		c.mode = ModeNormal
	}
	debug.Info("Controller ready: lock_pos=%d unlock_pos=%d mode=%s", c.lockPos, c.unlockPos, c.mode)
	return nil
}

// StepForward moves forward by steps and returns the new position.
// steps <= 0 is a no-op, not an error. The position only advances
// when the driver reports a completed move.
func (c *Controller) StepForward(steps int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if steps <= 0 {
		return c.position, nil
	}
	return c.step(steps)
}

// StepBackward moves backward by steps and returns the new position.
// steps <= 0 is a no-op, not an error.
func (c *Controller) StepBackward(steps int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if steps <= 0 {
		return c.position, nil
	}
	return c.step(-steps)
}

// step issues a relative move. Callers hold c.mu.
func (c *Controller) step(delta int) (int, error) {
	if err := c.driver.Move(delta); err != nil {
		return c.position, fmt.Errorf("%w: %w", ErrDriver, err)
	}
	c.position += delta
	return c.position, nil
}

// SetCenter re-anchors the current physical position as logical 0
// without moving the actuator.
func (c *Controller) SetCenter() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.position = 0
	debug.Info("Center set, position=0")
	return c.position
}

// SetLockPosition captures the current position as the lock reference
// and persists both calibrated positions. On a storage failure the
// in-memory value is still updated (best-effort durability): the new
// reference takes effect for this run but will not survive a restart.
func (c *Controller) SetLockPosition() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lockPos = c.position
	debug.Info("Lock position set to %d", c.lockPos)
	if err := c.store.Save(c.lockPos, c.unlockPos); err != nil {
		return c.lockPos, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return c.lockPos, nil
}

// SetUnlockPosition captures the current position as the unlock
// reference and persists both calibrated positions. Same best-effort
// durability as SetLockPosition.
func (c *Controller) SetUnlockPosition() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unlockPos = c.position
	debug.Info("Unlock position set to %d", c.unlockPos)
	if err := c.store.Save(c.lockPos, c.unlockPos); err != nil {
		return c.unlockPos, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return c.unlockPos, nil
}

// Lock moves to the calibrated lock position and flags a deferred
// return-to-center. Rejected with ErrSetupMode while in Setup mode.
// The return move itself is executed later by the Scheduler, so the
// caller is not held for the (slower) return motion.
func (c *Controller) Lock() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actuate(c.lockPos, "lock")
}

// Unlock moves to the calibrated unlock position and flags a deferred
// return-to-center. Rejected with ErrSetupMode while in Setup mode.
func (c *Controller) Unlock() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actuate(c.unlockPos, "unlock")
}

// actuate performs the delta move to target. Callers hold c.mu.
// A zero delta (already at target) still raises the pending flag.
// A failed move aborts the actuation: position is not advanced and
// no return is flagged, since the actuator never left its spot.
func (c *Controller) actuate(target int, op string) (int, error) {
	if c.mode == ModeSetup {
		return c.position, ErrSetupMode
	}

	delta := target - c.position
	if delta != 0 {
		if err := c.driver.Move(delta); err != nil {
			return c.position, fmt.Errorf("%s move: %w: %w", op, ErrDriver, err)
		}
		c.position = target
	}
	c.pendingReturn = true
	debug.Live("%s complete, position=%d (return to center pending)", op, c.position)
	return c.position, nil
}

// ProcessReturnToCenter executes the deferred return move if one is
// pending. It reports whether a return ran. The pending flag clears
// before the move is attempted, so a failed return is abandoned
// rather than retried (the next lock/unlock raises a fresh flag).
func (c *Controller) ProcessReturnToCenter() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pendingReturn {
		return false, nil
	}
	c.pendingReturn = false

	delta := -c.position
	if delta != 0 {
		if err := c.driver.Move(delta); err != nil {
			return false, fmt.Errorf("return to center: %w: %w", ErrDriver, err)
		}
		c.position = 0
	}
	debug.Return(c.position)
	return true, nil
}

// Mode returns the current operating mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode forces the operating mode. No validation against the
// calibration state: an operator may force Setup after calibrating or
// Normal before calibrating.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	debug.Info("Mode set to %s", m)
}

// SetModeFromString parses and applies a mode name ("setup"/"normal").
func (c *Controller) SetModeFromString(s string) error {
	m, err := ParseMode(s)
	if err != nil {
		return err
	}
	c.SetMode(m)
	return nil
}

// Position returns the current motor position.
func (c *Controller) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// LockPosition returns the calibrated lock reference.
func (c *Controller) LockPosition() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lockPos
}

// UnlockPosition returns the calibrated unlock reference.
func (c *Controller) UnlockPosition() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlockPos
}

// PendingReturn reports whether a return-to-center is waiting for the
// scheduler.
func (c *Controller) PendingReturn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingReturn
}

// Status returns a consistent snapshot of all fields, taken under the
// controller mutex.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Position:      c.position,
		LockPos:       c.lockPos,
		UnlockPos:     c.unlockPos,
		Mode:          c.mode.String(),
		PendingReturn: c.pendingReturn,
	}
}
