package simulator

import (
	"log/slog"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/driver"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/timer"
)

// Property and item names.
const (
	DefaultName = "Sim"

	Group = "Simulator"

	TestProperty     = "TEST"
	ExposureProperty = "EXPOSURE"
	ExposureItem     = "EXPOSURE"
)

// Defaults.
const (
	DefaultDelay = time.Second
	DefaultTick  = time.Second
)

const exposureTimer = 1

// Config configures a Sim.
type Config struct {
	// Slab runs the exposure countdown. Nil gives the device its own.
	Slab *timer.Slab

	// Queue serializes TEST completions. Nil gives the device its own,
	// deleted on Detach.
	Queue *timer.Queue

	Logger *slog.Logger

	// Delay is how long a TEST change takes.
	Delay time.Duration

	// Tick is the period of one countdown step.
	Tick time.Duration
}

// Sim is the simulator device.
type Sim struct {
	*driver.Base

	Test     *property.Property
	Exposure *property.Property

	logger   *slog.Logger
	queue    *timer.Queue
	ownQueue bool
	delay    time.Duration
	tick     time.Duration

	// countdown and seq are guarded by the device lock. seq tells a firing
	// countdown whether it is still the current one.
	countdown *timer.Timer
	seq       uint64
}

var _ bus.Device = (*Sim)(nil)

// NewSim creates a simulator device called name.
func NewSim(name string, cfg Config) *Sim {
	if name == "" {
		name = DefaultName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	s := &Sim{
		logger: cfg.Logger,
		queue:  cfg.Queue,
		delay:  cfg.Delay,
		tick:   cfg.Tick,
	}
	if s.queue == nil {
		s.queue = timer.NewQueue(cfg.Logger)
		s.ownQueue = true
	}
	s.Base = driver.NewBase(s, name, driver.Config{
		Version:   0x0001,
		Interface: driver.InterfaceCCD | driver.InterfaceAux,
		Slab:      cfg.Slab,
		Logger:    cfg.Logger,
	})

	s.Test = property.NewSwitch(name, TestProperty, Group, "Test", property.Ok, property.ReadWrite, property.AnyOfMany,
		property.SwitchItem("1", "Item 1", false),
		property.SwitchItem("2", "Item 2", false),
		property.SwitchItem("3", "Item 3", false),
		property.SwitchItem("4", "Item 4", false),
	)
	s.Exposure = property.NewNumber(name, ExposureProperty, Group, "Exposure", property.Ok, property.ReadWrite,
		property.FormattedNumberItem(ExposureItem, "Duration (s)", "%.0f", 0, 3600, 1, 0))
	_ = s.Define(s.Test)
	_ = s.Define(s.Exposure)
	return s
}

// ChangeProperty handles CONNECTION, TEST and EXPOSURE.
func (s *Sim) ChangeProperty(_ *bus.Bus, _ bus.Client, patch *property.Property) error {
	s.Lock()
	defer s.Unlock()

	if s.HandleStandard(patch) {
		return nil
	}
	switch patch.Name {
	case TestProperty:
		if patch.Type == property.SwitchVector {
			return s.changeTest(patch)
		}
	case ExposureProperty:
		if patch.Type == property.NumberVector {
			return s.changeExposure(patch)
		}
	}
	return nil
}

func (s *Sim) changeTest(patch *property.Property) error {
	s.Test.CopyValues(patch, false)
	s.Test.State = property.Busy
	_ = s.Update(s.Test, "")

	var set []string
	for _, it := range patch.Items {
		if it.Switch && s.Test.Item(it.Name) != nil {
			set = append(set, it.Name)
		}
	}
	err := s.queue.Add(s.Name(), s.delay, func() {
		s.Lock()
		defer s.Unlock()
		for _, name := range set {
			s.Test.SetSwitch(name, false)
		}
		s.Test.State = property.Ok
		_ = s.Update(s.Test, "")
	})
	if err != nil {
		s.Test.State = property.Alert
		_ = s.Update(s.Test, err.Error())
	}
	return err
}

func (s *Sim) changeExposure(patch *property.Property) error {
	s.Exposure.CopyValues(patch, false)
	n := &s.Exposure.Items[0].Number

	if n.Value <= 0 {
		message := ""
		if s.countdown != nil {
			s.Timers().Cancel(s.countdown)
			s.countdown = nil
			s.seq++
			message = "Exposure aborted"
		}
		s.Exposure.State = property.Ok
		_ = s.Update(s.Exposure, message)
		return nil
	}

	s.Exposure.State = property.Busy
	_ = s.Update(s.Exposure, "")

	if s.countdown != nil && s.Timers().Reschedule(s.countdown, s.tick) == nil {
		return nil
	}
	s.seq++
	t, err := s.Timers().SetTimer(s.Name(), exposureTimer, s.seq, s.tick, s.step)
	if err != nil {
		s.countdown = nil
		s.Exposure.State = property.Alert
		_ = s.Update(s.Exposure, err.Error())
		return err
	}
	s.countdown = t
	return nil
}

// step is the countdown timer callback.
func (s *Sim) step(_ string, _ int, data any, _ time.Duration) {
	s.Lock()
	defer s.Unlock()

	if seq, _ := data.(uint64); s.countdown == nil || seq != s.seq {
		return
	}
	n := &s.Exposure.Items[0].Number
	n.Value--
	if n.Value <= 0 {
		n.Value = 0
		s.Exposure.State = property.Ok
		s.countdown = nil
		_ = s.Update(s.Exposure, "Exposure done")
		return
	}
	_ = s.Update(s.Exposure, "")
	if err := s.Timers().Reschedule(s.countdown, s.tick); err != nil {
		s.logger.Warn("countdown stopped", "device", s.Name(), "error", err)
		s.countdown = nil
		s.Exposure.State = property.Alert
		_ = s.Update(s.Exposure, err.Error())
	}
}

// Detach drops pending TEST completions and stops the countdown before
// releasing the standard resources.
func (s *Sim) Detach(b *bus.Bus) error {
	if n := s.queue.Remove(s.Name()); n > 0 {
		s.logger.Debug("pending tests dropped", "device", s.Name(), "count", n)
	}
	err := s.Base.Detach(b)

	s.Lock()
	s.countdown = nil
	s.seq++
	if s.Exposure.State == property.Busy {
		s.Exposure.State = property.Alert
	}
	if s.Test.State == property.Busy {
		s.Test.State = property.Ok
	}
	s.Unlock()

	if s.ownQueue {
		s.queue.Delete()
		s.queue = timer.NewQueue(s.logger)
	}
	return err
}
