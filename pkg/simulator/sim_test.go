package simulator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/driver"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/simulator"
	"github.com/indigo-bus/indigo-go/pkg/timer"
)

type update struct {
	p       *property.Property
	message string
}

// watch attaches a client that forwards copies of every update.
func watch(t *testing.T, b *bus.Bus) <-chan update {
	t.Helper()
	ch := make(chan update, 64)
	require.NoError(t, b.AttachClient(&bus.ClientFuncs{
		ClientName: "watcher",
		OnUpdate: func(_ *bus.Bus, _ bus.Device, p *property.Property, message string) error {
			ch <- update{p.Clone(), message}
			return nil
		},
	}))
	return ch
}

// next returns the next update of the named property.
func next(t *testing.T, ch <-chan update, name string) update {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-ch:
			if u.p.Name == name {
				return u
			}
		case <-deadline:
			t.Fatalf("no update of %s", name)
			return update{}
		}
	}
}

func setup(t *testing.T, cfg simulator.Config) (*bus.Bus, *simulator.Sim, <-chan update) {
	t.Helper()
	if cfg.Delay == 0 {
		cfg.Delay = 50 * time.Millisecond
	}
	if cfg.Tick == 0 {
		cfg.Tick = 20 * time.Millisecond
	}
	b := bus.New(bus.Config{})
	ch := watch(t, b)
	sim := simulator.NewSim("", cfg)
	require.NoError(t, b.AttachDevice(sim))
	t.Cleanup(func() { _ = b.DetachDevice(sim) })
	return b, sim, ch
}

func change(t *testing.T, b *bus.Bus, p *property.Property) {
	t.Helper()
	require.NoError(t, b.ChangeProperty(&bus.ClientFuncs{ClientName: "test"}, p))
}

func testRequest(items ...string) *property.Property {
	p := property.NewRequest(property.SwitchVector, simulator.DefaultName, simulator.TestProperty)
	for _, name := range items {
		p.Items = append(p.Items, property.SwitchItem(name, "", true))
	}
	return p
}

func exposureRequest(v float64) *property.Property {
	p := property.NewRequest(property.NumberVector, simulator.DefaultName, simulator.ExposureProperty)
	p.Items = append(p.Items, property.NumberItem(simulator.ExposureItem, "", 0, 0, 0, v))
	return p
}

func TestNewSim(t *testing.T) {
	sim := simulator.NewSim("", simulator.Config{})
	assert.Equal(t, simulator.DefaultName, sim.Name())

	for _, name := range []string{driver.InfoProperty, driver.ConnectionProperty, simulator.TestProperty, simulator.ExposureProperty} {
		assert.NotNil(t, sim.Property(name), name)
	}
	assert.Equal(t, property.AnyOfMany, sim.Test.Rule)
	assert.Len(t, sim.Test.Items, 4)
	assert.Equal(t, "%.0f", sim.Exposure.Items[0].Number.Format)
	assert.Equal(t, 3600.0, sim.Exposure.Items[0].Number.Max)
}

func TestTestSwitch(t *testing.T) {
	b, sim, ch := setup(t, simulator.Config{})

	change(t, b, testRequest("2", "4"))

	busy := next(t, ch, simulator.TestProperty)
	assert.Equal(t, property.Busy, busy.p.State)
	on, _ := busy.p.Switch("2")
	assert.True(t, on)
	on, _ = busy.p.Switch("4")
	assert.True(t, on)

	done := next(t, ch, simulator.TestProperty)
	assert.Equal(t, property.Ok, done.p.State)
	for _, it := range done.p.Items {
		assert.False(t, it.Switch, it.Name)
	}

	sim.Lock()
	defer sim.Unlock()
	assert.Equal(t, property.Ok, sim.Test.State)
}

func TestTestCompletionsRunInOrder(t *testing.T) {
	q := timer.NewQueue(nil)
	defer q.Delete()
	b, _, ch := setup(t, simulator.Config{Queue: q})

	change(t, b, testRequest("1"))
	change(t, b, testRequest("3"))

	assert.Equal(t, property.Busy, next(t, ch, simulator.TestProperty).p.State)
	second := next(t, ch, simulator.TestProperty)
	assert.Equal(t, property.Busy, second.p.State)
	on, _ := second.p.Switch("1")
	assert.True(t, on)

	// The first completion clears only item 1.
	first := next(t, ch, simulator.TestProperty)
	assert.Equal(t, property.Ok, first.p.State)
	on, _ = first.p.Switch("1")
	assert.False(t, on)
	on, _ = first.p.Switch("3")
	assert.True(t, on)

	last := next(t, ch, simulator.TestProperty)
	on, _ = last.p.Switch("3")
	assert.False(t, on)
}

func TestExposureCountdown(t *testing.T) {
	b, _, ch := setup(t, simulator.Config{})

	change(t, b, exposureRequest(3))

	u := next(t, ch, simulator.ExposureProperty)
	assert.Equal(t, property.Busy, u.p.State)
	assert.Equal(t, 3.0, u.p.Items[0].Number.Value)

	for _, want := range []float64{2, 1} {
		u = next(t, ch, simulator.ExposureProperty)
		assert.Equal(t, property.Busy, u.p.State)
		assert.Equal(t, want, u.p.Items[0].Number.Value)
	}

	u = next(t, ch, simulator.ExposureProperty)
	assert.Equal(t, property.Ok, u.p.State)
	assert.Equal(t, 0.0, u.p.Items[0].Number.Value)
	assert.Equal(t, "Exposure done", u.message)
}

func TestExposureAbort(t *testing.T) {
	b, sim, ch := setup(t, simulator.Config{Tick: time.Hour})

	change(t, b, exposureRequest(10))
	assert.Equal(t, property.Busy, next(t, ch, simulator.ExposureProperty).p.State)

	change(t, b, exposureRequest(0))
	u := next(t, ch, simulator.ExposureProperty)
	assert.Equal(t, property.Ok, u.p.State)
	assert.Equal(t, "Exposure aborted", u.message)

	assert.Zero(t, sim.Timers().InUse())
}

func TestExposureClamped(t *testing.T) {
	b, _, ch := setup(t, simulator.Config{Tick: time.Hour})

	change(t, b, exposureRequest(5000))
	u := next(t, ch, simulator.ExposureProperty)
	assert.Equal(t, 3600.0, u.p.Items[0].Number.Value)
}

func TestDetachStopsWork(t *testing.T) {
	b := bus.New(bus.Config{})
	ch := watch(t, b)
	sim := simulator.NewSim("Sim 2", simulator.Config{Delay: time.Hour, Tick: time.Hour})
	require.NoError(t, b.AttachDevice(sim))

	p := exposureRequest(5)
	p.Device = "Sim 2"
	change(t, b, p)
	p = testRequest("1")
	p.Device = "Sim 2"
	change(t, b, p)
	next(t, ch, simulator.TestProperty)

	require.NoError(t, b.DetachDevice(sim))
	assert.Zero(t, sim.Timers().InUse())

	sim.Lock()
	assert.Equal(t, property.Alert, sim.Exposure.State)
	assert.Equal(t, property.Ok, sim.Test.State)
	sim.Unlock()

	// A reattached simulator starts from a clean slate.
	require.NoError(t, b.AttachDevice(sim))
	p = exposureRequest(1)
	p.Device = "Sim 2"
	change(t, b, p)
	assert.Equal(t, property.Busy, next(t, ch, simulator.ExposureProperty).p.State)
	require.NoError(t, b.DetachDevice(sim))
}
