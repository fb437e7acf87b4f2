package stepper

import (
	"time"

	"github.com/yuewuo/AutoLock/internal/debug"
	"github.com/yuewuo/AutoLock/internal/hw/gpio"
)

// Config holds the hardware configuration for a ULN2003-driven stepper motor.
// Pins are the driver board inputs IN1-IN4 (BCM numbering).
type Config struct {
	IN1, IN2, IN3, IN4 int
	StepDelay          time.Duration // delay after each half-step. If 0, defaults to 2ms.
}

// halfStepSequence is the 8-phase half-step pattern for a 28BYJ-48
// stepper behind a ULN2003 board. Half-stepping doubles resolution
// and runs smoother than full steps.
var halfStepSequence = [8][4]gpio.Level{
	{gpio.High, gpio.Low, gpio.Low, gpio.Low},
	{gpio.High, gpio.High, gpio.Low, gpio.Low},
	{gpio.Low, gpio.High, gpio.Low, gpio.Low},
	{gpio.Low, gpio.High, gpio.High, gpio.Low},
	{gpio.Low, gpio.Low, gpio.High, gpio.Low},
	{gpio.Low, gpio.Low, gpio.High, gpio.High},
	{gpio.Low, gpio.Low, gpio.Low, gpio.High},
	{gpio.High, gpio.Low, gpio.Low, gpio.High},
}

// Stepper drives a ULN2003 stepper motor over four GPIO pins.
// It remembers the coil phase across moves so consecutive moves
// stay aligned with the magnetic sequence.
type Stepper struct {
	gpio  gpio.Driver
	pins  [4]int
	phase int
	delay time.Duration
}

// NewStepper creates a new stepper motor driver and puts the coils
// in the released (de-energized) state.
func NewStepper(g gpio.Driver, cfg Config) (*Stepper, error) {
	s := &Stepper{
		gpio:  g,
		pins:  [4]int{cfg.IN1, cfg.IN2, cfg.IN3, cfg.IN4},
		delay: cfg.StepDelay,
	}
	if s.delay <= 0 {
		s.delay = 2 * time.Millisecond
	}

	for _, pin := range s.pins {
		if err := g.SetupOutput(pin); err != nil {
			return nil, err
		}
	}
	if err := s.release(); err != nil {
		return nil, err
	}
	return s, nil
}

// Move moves the motor by a number of steps (positive = forward,
// negative = backward). The coils are always released afterwards to
// save power and prevent overheating, even when a step fails mid-move.
func (s *Stepper) Move(steps int) error {
	if steps == 0 {
		return nil
	}

	forward := steps > 0
	count := steps
	direction := "forward"
	if !forward {
		count = -steps
		direction = "backward"
	}

	debug.Move(count, direction)

	var stepErr error
	for i := 0; i < count; i++ {
		if stepErr = s.stepOnce(forward); stepErr != nil {
			break
		}
	}

	if err := s.release(); err != nil && stepErr == nil {
		return err
	}
	return stepErr
}

// stepOnce advances the phase by one half-step and energizes the coils.
func (s *Stepper) stepOnce(forward bool) error {
	if forward {
		s.phase = (s.phase + 1) % 8
	} else {
		s.phase = (s.phase + 7) % 8
	}

	if err := s.setPhase(s.phase); err != nil {
		return err
	}
	time.Sleep(s.delay)
	return nil
}

func (s *Stepper) setPhase(phase int) error {
	for i, pin := range s.pins {
		if err := s.gpio.WritePin(pin, halfStepSequence[phase][i]); err != nil {
			return err
		}
	}
	return nil
}

// release de-energizes all coils (all pins low).
func (s *Stepper) release() error {
	for _, pin := range s.pins {
		if err := s.gpio.WritePin(pin, gpio.Low); err != nil {
			return err
		}
	}
	return nil
}
