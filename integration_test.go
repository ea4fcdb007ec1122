package indigo_test

import (
	"context"
	"testing"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/connection"
	"github.com/indigo-bus/indigo-go/pkg/driver"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/simulator"
	"github.com/indigo-bus/indigo-go/pkg/timer"
	"github.com/indigo-bus/indigo-go/pkg/transport"
	"github.com/indigo-bus/indigo-go/pkg/wire"
)

type event struct {
	kind string
	p    *property.Property
}

// recorder is a client that forwards copies of what it is sent.
func recorder(t *testing.T, b *bus.Bus) <-chan event {
	t.Helper()
	ch := make(chan event, 256)
	forward := func(kind string) func(*bus.Bus, bus.Device, *property.Property, string) error {
		return func(_ *bus.Bus, _ bus.Device, p *property.Property, _ string) error {
			ch <- event{kind, p.Clone()}
			return nil
		}
	}
	err := b.AttachClient(&bus.ClientFuncs{
		ClientName: "recorder",
		OnDefine:   forward("define"),
		OnUpdate:   forward("update"),
		OnDelete:   forward("delete"),
	})
	if err != nil {
		t.Fatalf("Failed to attach recorder: %v", err)
	}
	return ch
}

// await returns the first event of kind for key that satisfies ok.
func await(t *testing.T, ch <-chan event, kind, key string, ok func(*property.Property) bool) *property.Property {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.kind == kind && e.p.Key() == key && (ok == nil || ok(e.p)) {
				return e.p
			}
		case <-deadline:
			t.Fatalf("no %s of %s", kind, key)
			return nil
		}
	}
}

// startSimServer serves a bus with the simulator attached on addr.
func startSimServer(t *testing.T, addr string) (*transport.Server, *bus.Bus) {
	t.Helper()
	slab := timer.NewSlab(timer.Config{})
	t.Cleanup(slab.Close)

	b := bus.New(bus.Config{})
	sim := simulator.NewSim("", simulator.Config{
		Slab:  slab,
		Delay: 50 * time.Millisecond,
		Tick:  20 * time.Millisecond,
	})
	if err := b.AttachDevice(sim); err != nil {
		t.Fatalf("Failed to attach simulator: %v", err)
	}

	server, err := transport.NewServer(transport.ServerConfig{Address: addr, Bus: b})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		_ = server.Shutdown()
		_ = b.DetachDevice(sim)
	})
	return server, b
}

// TestE2E_SimulatorOverTCP drives the simulator through a server from a
// second bus.
func TestE2E_SimulatorOverTCP(t *testing.T) {
	server, _ := startSimServer(t, "127.0.0.1:0")

	local := bus.New(bus.Config{})
	events := recorder(t, local)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	remote, err := wire.Dial(ctx, local, server.Addr().String(), wire.Config{})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() {
		_ = remote.Close()
		<-remote.Done()
	}()

	device := simulator.DefaultName + " @ 127.0.0.1"
	key := device + "." + simulator.TestProperty
	def := await(t, events, "define", key, nil)
	if def.State != property.Ok {
		t.Errorf("TEST state = %v, want Ok", def.State)
	}

	req := property.NewRequest(property.SwitchVector, device, simulator.TestProperty,
		property.SwitchItem("2", "", true))
	if err := local.ChangeProperty(&bus.ClientFuncs{ClientName: "e2e"}, req); err != nil {
		t.Fatalf("ChangeProperty failed: %v", err)
	}

	busy := await(t, events, "update", key, func(p *property.Property) bool { return p.State == property.Busy })
	if on, _ := busy.Switch("2"); !on {
		t.Error("item 2 should be on while busy")
	}
	done := await(t, events, "update", key, func(p *property.Property) bool { return p.State == property.Ok })
	if on, _ := done.Switch("2"); on {
		t.Error("item 2 should be off again when done")
	}

	_ = remote.Close()
	<-remote.Done()
	// A lost server deletes all of its devices' properties at once.
	await(t, events, "delete", device+".", nil)
	for _, d := range local.Devices() {
		if d.Name() == remote.Name() {
			t.Errorf("%s still attached after close", d.Name())
		}
	}
}

// TestE2E_LinkSurvivesServerRestart restarts the server under a link and
// expects the remote devices to come back.
func TestE2E_LinkSurvivesServerRestart(t *testing.T) {
	server, _ := startSimServer(t, "127.0.0.1:0")
	addr := server.Addr().String()

	local := bus.New(bus.Config{})
	events := recorder(t, local)

	link := connection.NewLink(addr, func(ctx context.Context) (connection.Session, error) {
		d, err := wire.Dial(ctx, local, addr, wire.Config{})
		if err != nil {
			return nil, err
		}
		return d, nil
	}, connection.Config{
		Backoff: connection.BackoffConfig{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond},
	})
	link.Start(context.Background())
	defer link.Close()

	device := simulator.DefaultName + " @ 127.0.0.1"
	key := device + "." + driver.ConnectionProperty
	await(t, events, "define", key, nil)

	if err := server.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	await(t, events, "delete", device+".", nil)

	startSimServer(t, addr)

	await(t, events, "define", key, nil)
	if n := link.Sessions(); n < 2 {
		t.Errorf("Sessions() = %d, want at least 2", n)
	}
}
