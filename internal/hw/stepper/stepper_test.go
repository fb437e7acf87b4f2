package stepper

import (
	"errors"
	"testing"
	"time"

	"github.com/yuewuo/AutoLock/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls   []gpioCall
	failPin int // WritePin to this pin fails (0 = never)
}

type gpioCall struct {
	op    string // "setup", "write"
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupOutput(pin int) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	if d.failPin != 0 && pin == d.failPin && level == gpio.High {
		return errors.New("write failed")
	}
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) Close() error {
	return nil
}

func (d *recordingDriver) writeCalls() []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

func newTestStepper(t *testing.T) (*Stepper, *recordingDriver) {
	t.Helper()
	drv := &recordingDriver{}
	s, err := NewStepper(drv, Config{
		IN1:       4,
		IN2:       5,
		IN3:       6,
		IN4:       7,
		StepDelay: 1 * time.Microsecond,
	})
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	drv.calls = nil // reset after init
	return s, drv
}

func TestStepper_NewReleasesCoils(t *testing.T) {
	drv := &recordingDriver{}
	if _, err := NewStepper(drv, Config{IN1: 4, IN2: 5, IN3: 6, IN4: 7, StepDelay: time.Microsecond}); err != nil {
		t.Fatalf("NewStepper: %v", err)
	}

	setups := 0
	for _, c := range drv.calls {
		if c.op == "setup" {
			setups++
		}
	}
	if setups != 4 {
		t.Errorf("expected 4 pin setups, got %d", setups)
	}

	// The last 4 writes must be the release (all low).
	writes := drv.writeCalls()
	if len(writes) < 4 {
		t.Fatalf("expected at least 4 writes, got %d", len(writes))
	}
	for _, c := range writes[len(writes)-4:] {
		if c.level != gpio.Low {
			t.Errorf("release should write Low to pin %d, got %v", c.pin, c.level)
		}
	}
}

func TestStepper_MoveForwardPhaseCount(t *testing.T) {
	s, drv := newTestStepper(t)

	if err := s.Move(10); err != nil {
		t.Fatalf("Move: %v", err)
	}

	// Each step writes 4 pins, plus a final 4-pin release.
	writes := drv.writeCalls()
	if got, want := len(writes), 10*4+4; got != want {
		t.Errorf("expected %d writes, got %d", want, got)
	}
}

func TestStepper_MoveBackward(t *testing.T) {
	s, drv := newTestStepper(t)

	if err := s.Move(-3); err != nil {
		t.Fatalf("Move: %v", err)
	}

	writes := drv.writeCalls()
	if got, want := len(writes), 3*4+4; got != want {
		t.Errorf("expected %d writes, got %d", want, got)
	}
	// One backward half-step from phase 0 lands on phase 7: IN1 and IN4 high.
	first := writes[:4]
	want := [4]gpio.Level{gpio.High, gpio.Low, gpio.Low, gpio.High}
	for i, c := range first {
		if c.level != want[i] {
			t.Errorf("phase 7 pin %d = %v, want %v", c.pin, c.level, want[i])
		}
	}
}

func TestStepper_MoveZeroIsNoop(t *testing.T) {
	s, drv := newTestStepper(t)

	if err := s.Move(0); err != nil {
		t.Fatalf("Move(0): %v", err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("Move(0) should not touch GPIO, got %d calls", len(drv.calls))
	}
}

func TestStepper_PhasePersistsAcrossMoves(t *testing.T) {
	s, drv := newTestStepper(t)

	if err := s.Move(1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	drv.calls = nil
	if err := s.Move(1); err != nil {
		t.Fatalf("Move: %v", err)
	}

	// Second single step from phase 1 lands on phase 2: IN2 high only.
	writes := drv.writeCalls()
	want := [4]gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.Low}
	for i, c := range writes[:4] {
		if c.level != want[i] {
			t.Errorf("phase 2 pin %d = %v, want %v", c.pin, c.level, want[i])
		}
	}
}

func TestStepper_InverseMoveReturnsToPhase(t *testing.T) {
	s, _ := newTestStepper(t)

	if err := s.Move(5); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := s.Move(-5); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if s.phase != 0 {
		t.Errorf("phase after +5/-5 = %d, want 0", s.phase)
	}
}

func TestStepper_WriteFailureReleasesCoils(t *testing.T) {
	drv := &recordingDriver{}
	s, err := NewStepper(drv, Config{IN1: 4, IN2: 5, IN3: 6, IN4: 7, StepDelay: time.Microsecond})
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	drv.failPin = 5
	drv.calls = nil

	if err := s.Move(4); err == nil {
		t.Fatal("expected error from failing pin")
	}

	// Even on failure, the final writes must release (all low).
	writes := drv.writeCalls()
	if len(writes) < 4 {
		t.Fatalf("expected release writes, got %d", len(writes))
	}
	for _, c := range writes[len(writes)-4:] {
		if c.level != gpio.Low {
			t.Errorf("expected release write Low on pin %d, got %v", c.pin, c.level)
		}
	}
}
