package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/property"
)

// syncBuffer is written by bus callbacks and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

type fixture struct {
	bus      *bus.Bus
	console  *Console
	out      *syncBuffer
	device   *bus.DeviceFuncs
	exposure *property.Property
	changes  []*property.Property
	blobs    []property.BlobMode
}

// newFixture attaches a device named like a mirrored remote one.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{out: &syncBuffer{}}
	f.bus = bus.New(bus.Config{})

	const name = "CCD @ observatory"
	f.exposure = property.NewNumber(name, "CCD_EXPOSURE", "Camera", "Exposure", property.Idle, property.ReadWrite,
		property.FormattedNumberItem("EXPOSURE", "Duration", "%.1f", 0, 3600, 0, 1))
	connection := property.NewSwitch(name, "CONNECTION", "Main", "Connection", property.Ok, property.ReadWrite, property.OneOfMany,
		property.SwitchItem("CONNECTED", "Connected", false),
		property.SwitchItem("DISCONNECTED", "Disconnected", true))
	info := property.NewText(name, "INFO", "Main", "Info", property.Ok, property.ReadOnly,
		property.TextItem("NAME", "Name", "Simulator"))
	props := []*property.Property{connection, f.exposure, info}

	d := &bus.DeviceFuncs{DeviceName: name}
	d.OnEnumerate = func(b *bus.Bus, c bus.Client, filter *property.Property) error {
		for _, p := range props {
			if p.Match(filter) {
				_ = b.DefinePropertyTo(c, d, p, "")
			}
		}
		return nil
	}
	d.OnChange = func(_ *bus.Bus, _ bus.Client, patch *property.Property) error {
		f.changes = append(f.changes, patch.Clone())
		return nil
	}
	d.OnEnableBlob = func(_ *bus.Bus, _ bus.Client, _ *property.Property, mode property.BlobMode) error {
		f.blobs = append(f.blobs, mode)
		return nil
	}
	f.device = d
	require.NoError(t, f.bus.AttachDevice(d))

	f.console = NewConsole("console", f.out)
	require.NoError(t, f.bus.AttachClient(f.console))
	require.NoError(t, f.bus.EnumerateProperties(f.console, nil))
	return f
}

func TestConsoleListAndGet(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.console.Exec("list"))
	assert.Contains(t, f.out.take(), "CCD @ observatory")

	f.console.Exec("list CCD")
	out := f.out.take()
	assert.Contains(t, out, "CCD_EXPOSURE")
	assert.Contains(t, out, "CONNECTION")
	assert.Contains(t, out, "INFO")

	f.console.Exec("get CCD.CCD_EXPOSURE")
	out = f.out.take()
	assert.Contains(t, out, "CCD @ observatory.CCD_EXPOSURE (Number, Idle, rw)")
	assert.Contains(t, out, "EXPOSURE")
	assert.Contains(t, out, "= 1.0")

	f.console.Exec("get CCD.NOPE")
	assert.Contains(t, f.out.take(), "Error: unknown property")

	f.console.Exec("get Mount.CONNECTION")
	assert.Contains(t, f.out.take(), `Error: unknown device "Mount"`)
}

func TestConsoleSet(t *testing.T) {
	f := newFixture(t)

	f.console.Exec("set CCD.CCD_EXPOSURE.EXPOSURE=0:30")
	require.Empty(t, f.out.take())
	require.Len(t, f.changes, 1)
	assert.Equal(t, "CCD @ observatory", f.changes[0].Device)
	assert.InDelta(t, 0.5, f.changes[0].Items[0].Number.Value, 1e-9)

	f.console.Exec("set CCD @ observatory.CONNECTION.CONNECTED=On,DISCONNECTED=Off")
	require.Len(t, f.changes, 2)
	on, _ := f.changes[1].Switch("CONNECTED")
	assert.True(t, on)
	off, _ := f.changes[1].Switch("DISCONNECTED")
	assert.False(t, off)

	tests := []struct {
		line string
		want string
	}{
		{"set CCD.INFO.NAME=x", "read-only"},
		{"set CCD.CCD_EXPOSURE.GAIN=1", "no item GAIN"},
		{"set CCD.CCD_EXPOSURE.EXPOSURE=soon", "EXPOSURE"},
		{"set CCD.CONNECTION.CONNECTED=maybe", "want On or Off"},
		{"set CCD", "usage"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f.console.Exec(tt.line)
			out := f.out.take()
			assert.True(t, strings.HasPrefix(out, "Error: "), out)
			assert.Contains(t, out, tt.want)
		})
	}
	assert.Len(t, f.changes, 2)
}

func TestConsoleSetLocked(t *testing.T) {
	f := newFixture(t)
	f.bus.SetDeviceToken("CCD @ observatory", 42)

	f.console.Exec("set CCD.CCD_EXPOSURE.EXPOSURE=2")
	out := f.out.take()
	assert.Contains(t, out, "locked for exclusive access")
	assert.Contains(t, out, "Error: ")
	assert.Empty(t, f.changes)
}

func TestConsoleBlob(t *testing.T) {
	f := newFixture(t)

	f.console.Exec("blob CCD URL")
	assert.Contains(t, f.out.take(), "BLOBs from CCD @ observatory: URL")
	f.console.Exec("blob CCD")
	assert.Equal(t, []property.BlobMode{property.BlobURL, property.BlobAlso}, f.blobs)
}

func TestConsoleWatch(t *testing.T) {
	f := newFixture(t)

	f.exposure.Items[0].Number.Value = 2
	f.exposure.State = property.Busy
	require.NoError(t, f.bus.UpdateProperty(f.device, f.exposure, ""))
	assert.Empty(t, f.out.take(), "updates are quiet until watch is on")

	f.console.Exec("watch on")
	f.exposure.Items[0].Number.Value = 1.5
	require.NoError(t, f.bus.UpdateProperty(f.device, f.exposure, "exposing"))
	assert.Equal(t, "CCD @ observatory.CCD_EXPOSURE Busy EXPOSURE=1.5 \"exposing\"\n", f.out.take())

	require.NoError(t, f.bus.SendMessage(f.device, "cooler on"))
	assert.Equal(t, "[CCD @ observatory] cooler on\n", f.out.take())

	require.NoError(t, f.bus.DeleteProperty(f.device, &property.Property{Device: f.device.DeviceName}, ""))
	out := f.out.take()
	assert.Contains(t, out, "- CCD @ observatory.CCD_EXPOSURE")
	assert.Contains(t, out, "- CCD @ observatory.INFO")

	f.console.Exec("list")
	assert.Equal(t, "No devices\n", f.out.take())

	f.console.Exec("watch maybe")
	assert.Contains(t, f.out.take(), "usage: watch on|off")
}

func TestConsoleCommands(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.console.Exec(""))
	assert.True(t, f.console.Exec("help"))
	assert.Contains(t, f.out.take(), "INDIGO Console Commands")
	assert.True(t, f.console.Exec("frobnicate"))
	assert.Contains(t, f.out.take(), "unknown command: frobnicate")
	assert.False(t, f.console.Exec("quit"))
}
