package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/yuewuo/AutoLock/internal/config"
	"github.com/yuewuo/AutoLock/internal/debug"
	"github.com/yuewuo/AutoLock/internal/hw/gpio"
	"github.com/yuewuo/AutoLock/internal/hw/stepper"
	"github.com/yuewuo/AutoLock/internal/lock"
	"github.com/yuewuo/AutoLock/internal/store"
	"github.com/yuewuo/AutoLock/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{val: 8080}
	flag.Var(webPort, "web", "web server port; -web 8980 for custom port (default 8080)")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	// Initialize GPIO driver
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize stepper motor
	motor, err := stepper.NewStepper(gpioDriver, stepper.Config{
		IN1:       cfg.Stepper.IN1Pin,
		IN2:       cfg.Stepper.IN2Pin,
		IN3:       cfg.Stepper.IN3Pin,
		IN4:       cfg.Stepper.IN4Pin,
		StepDelay: cfg.StepDelay(),
	})
	if err != nil {
		log.Fatalf("init stepper failed: %v", err)
	}
	debug.Value("Stepper pins", fmt.Sprintf("IN1=%d IN2=%d IN3=%d IN4=%d",
		cfg.Stepper.IN1Pin, cfg.Stepper.IN2Pin, cfg.Stepper.IN3Pin, cfg.Stepper.IN4Pin))

	// Controller with persisted calibration
	positions := store.NewFileStore(cfg.Storage.Path)
	ctrl := lock.NewController(motor, positions)
	if err := ctrl.Begin(); err != nil {
		log.Fatalf("load positions failed: %v", err)
	}

	// Tee debug output into the SSE stream
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

	// Background return-to-center loop
	scheduler := lock.NewScheduler(ctrl, cfg.ReturnPeriod())
	scheduler.OnReturn = func(position int) {
		broadcaster.BroadcastState("returned to center", ctrl.Status())
	}
	go scheduler.Run(ctx)

	// Web server (the only control surface)
	srv := web.NewServer(fmt.Sprintf(":%d", webPort.port()), ctrl, broadcaster, web.StepSizes{
		Small:     cfg.Steps.Small,
		Large:     cfg.Steps.Large,
		MaxCustom: cfg.Steps.MaxCustom,
	})
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("web server: %v", err)
	}
}

// webPortFlag implements flag.Value for -web: -web 8980 → 8980, defaults to 8080.
type webPortFlag struct {
	val int
}

func (w *webPortFlag) String() string {
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
