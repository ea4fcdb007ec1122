package mirror_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/mirror"
	"github.com/indigo-bus/indigo-go/pkg/mirror/mocks"
	"github.com/indigo-bus/indigo-go/pkg/property"
)

func TestTopics(t *testing.T) {
	topics := mirror.Topics{Prefix: "indigo"}
	assert.Equal(t, "indigo/CCD @ host/CCD_EXPOSURE", topics.Property("CCD @ host", "CCD_EXPOSURE"))
	assert.Equal(t, "indigo/a_b/N_/set", topics.Set("a/b", "N#"))
	assert.Equal(t, "indigo/+/+/set", topics.AllSets())

	tests := []struct {
		topic        string
		device, name string
		ok           bool
	}{
		{"indigo/CCD/EXPOSURE/set", "CCD", "EXPOSURE", true},
		{"indigo/CCD/EXPOSURE", "", "", false},
		{"other/CCD/EXPOSURE/set", "", "", false},
		{"indigo//EXPOSURE/set", "", "", false},
		{"indigo/CCD/a/b/set", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			device, name, ok := topics.ParseSet(tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.device, device)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestEncodeState(t *testing.T) {
	p := property.NewNumber("CCD", "CCD_EXPOSURE", "Camera", "Exposure", property.Busy, property.ReadWrite,
		property.NumberItem("EXPOSURE", "Duration", 0, 3600, 1, 4.5))
	raw, err := mirror.EncodeState(p, "exposing")
	require.NoError(t, err)

	var doc mirror.StatePayload
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "CCD", doc.Device)
	assert.Equal(t, p.Type.String(), doc.Type)
	assert.Equal(t, "Busy", doc.State)
	assert.Equal(t, "exposing", doc.Message)
	assert.Equal(t, 4.5, doc.Items["EXPOSURE"])

	t.Run("blob values are not published", func(t *testing.T) {
		it := property.BlobItem("IMAGE", "Image")
		it.Blob.Format = ".fits"
		it.Blob.Size = 3
		it.Blob.Value = []byte("abc")
		raw, err := mirror.EncodeState(property.NewBlob("CCD", "CCD_IMAGE", "Image", "Image", property.Ok, it), "")
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"IMAGE":{"format":".fits","size":3}`)
		assert.NotContains(t, string(raw), "YWJj")
	})
}

func TestDecodeRequest(t *testing.T) {
	number := property.NewNumber("Mount", "COORDS", "Main", "Coords", property.Ok, property.ReadWrite,
		property.NumberItem("RA", "RA", 0, 24, 0, 0),
		property.NumberItem("DEC", "Dec", -90, 90, 0, 0))
	sw := property.NewSwitch("CCD", "CONNECTION", "Main", "Connection", property.Ok, property.ReadWrite, property.OneOfMany,
		property.SwitchItem("CONNECTED", "Connected", false),
		property.SwitchItem("DISCONNECTED", "Disconnected", true))
	info := property.NewText("CCD", "INFO", "Main", "Info", property.Ok, property.ReadOnly,
		property.TextItem("NAME", "Name", "x"))

	t.Run("numbers", func(t *testing.T) {
		req, err := mirror.DecodeRequest(number, []byte(`{"RA":"12:30","DEC":-10}`))
		require.NoError(t, err)
		require.Len(t, req.Items, 2)
		assert.Equal(t, "RA", req.Items[0].Name)
		assert.InDelta(t, 12.5, req.Items[0].Number.Value, 1e-9)
		assert.Equal(t, -10.0, req.Items[1].Number.Value)
		assert.Equal(t, property.NumberVector, req.Type)
	})

	t.Run("switches", func(t *testing.T) {
		req, err := mirror.DecodeRequest(sw, []byte(`{"CONNECTED":"On"}`))
		require.NoError(t, err)
		on, ok := req.Switch("CONNECTED")
		assert.True(t, ok)
		assert.True(t, on)
	})

	errorCases := []struct {
		name    string
		p       *property.Property
		payload string
	}{
		{"read-only", info, `{"NAME":"y"}`},
		{"not json", number, `RA=1`},
		{"unknown item", number, `{"AZ":1}`},
		{"bad number", number, `{"RA":"abc"}`},
		{"wrong type", sw, `{"CONNECTED":1}`},
		{"empty", number, `{}`},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mirror.DecodeRequest(tt.p, []byte(tt.payload))
			assert.ErrorIs(t, err, mirror.ErrInvalidPayload)
		})
	}
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// recorder backs a MockPublisher that accepts every call.
type recorder struct {
	mu      sync.Mutex
	msgs    []published
	handler mirror.MessageHandler
}

func newRecorder(t *testing.T) (*mocks.MockPublisher, *recorder) {
	pub := mocks.NewMockPublisher(t)
	r := &recorder{}
	pub.EXPECT().Subscribe("indigo/+/+/set", mock.Anything).
		RunAndReturn(func(_ string, h mirror.MessageHandler) error {
			r.mu.Lock()
			r.handler = h
			r.mu.Unlock()
			return nil
		}).Once()
	pub.EXPECT().Publish(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(topic string, payload []byte, retained bool) error {
			r.mu.Lock()
			r.msgs = append(r.msgs, published{topic, append([]byte(nil), payload...), retained})
			r.mu.Unlock()
			return nil
		}).Maybe()
	return pub, r
}

func (r *recorder) last(topic string) (published, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].topic == topic {
			return r.msgs[i], true
		}
	}
	return published{}, false
}

func state(t *testing.T, r *recorder, topic string) mirror.StatePayload {
	t.Helper()
	msg, ok := r.last(topic)
	require.True(t, ok, "nothing published to %s", topic)
	assert.True(t, msg.retained)
	var doc mirror.StatePayload
	require.NoError(t, json.Unmarshal(msg.payload, &doc))
	return doc
}

// camera is a device with one changeable number and one read-only text.
func camera() (*bus.DeviceFuncs, *property.Property, chan *property.Property) {
	exposure := property.NewNumber("CCD", "CCD_EXPOSURE", "Camera", "Exposure", property.Idle, property.ReadWrite,
		property.NumberItem("EXPOSURE", "Duration", 0, 3600, 1, 0))
	info := property.NewText("CCD", "INFO", "Main", "Info", property.Ok, property.ReadOnly,
		property.TextItem("NAME", "Name", "Simulator"))
	changes := make(chan *property.Property, 4)
	d := &bus.DeviceFuncs{DeviceName: "CCD"}
	d.OnEnumerate = func(b *bus.Bus, c bus.Client, filter *property.Property) error {
		for _, p := range []*property.Property{exposure, info} {
			if p.Match(filter) {
				_ = b.DefinePropertyTo(c, d, p, "")
			}
		}
		return nil
	}
	d.OnChange = func(b *bus.Bus, _ bus.Client, patch *property.Property) error {
		if !exposure.Match(patch) {
			return nil
		}
		exposure.CopyValues(patch, false)
		exposure.State = property.Busy
		changes <- patch
		return b.UpdateProperty(d, exposure, "")
	}
	return d, exposure, changes
}

func TestMirror(t *testing.T) {
	b := bus.New(bus.Config{})
	dev, exposure, changes := camera()
	require.NoError(t, b.AttachDevice(dev))

	pub, rec := newRecorder(t)
	m := mirror.New(pub, mirror.Options{})
	require.NoError(t, b.AttachClient(m))

	t.Run("attach publishes every property", func(t *testing.T) {
		doc := state(t, rec, "indigo/CCD/CCD_EXPOSURE")
		assert.Equal(t, "Idle", doc.State)
		assert.Equal(t, 0.0, doc.Items["EXPOSURE"])
		doc = state(t, rec, "indigo/CCD/INFO")
		assert.Equal(t, "Simulator", doc.Items["NAME"])
	})

	t.Run("set topic becomes a change request", func(t *testing.T) {
		require.NotNil(t, rec.handler)
		require.NoError(t, rec.handler("indigo/CCD/CCD_EXPOSURE/set", []byte(`{"EXPOSURE":"0:30"}`)))
		patch := <-changes
		assert.InDelta(t, 0.5, patch.Items[0].Number.Value, 1e-9)

		doc := state(t, rec, "indigo/CCD/CCD_EXPOSURE")
		assert.Equal(t, "Busy", doc.State)
		assert.InDelta(t, 0.5, doc.Items["EXPOSURE"], 1e-9)
		assert.InDelta(t, 0.5, exposure.Items[0].Number.Value, 1e-9)
	})

	t.Run("bad set requests", func(t *testing.T) {
		assert.ErrorIs(t, rec.handler("indigo/CCD/NOPE/set", []byte(`{}`)), mirror.ErrUnknownProperty)
		assert.ErrorIs(t, rec.handler("indigo/CCD/INFO/set", []byte(`{"NAME":"x"}`)), mirror.ErrInvalidPayload)
		assert.ErrorIs(t, rec.handler("indigo/CCD/set", nil), mirror.ErrInvalidTopic)
	})

	t.Run("locked device rejects the broker", func(t *testing.T) {
		b.SetDeviceToken("CCD", 0x1234)
		defer b.SetDeviceToken("CCD", 0)
		err := rec.handler("indigo/CCD/CCD_EXPOSURE/set", []byte(`{"EXPOSURE":2}`))
		assert.ErrorIs(t, err, bus.ErrLockError)
		assert.Empty(t, changes)
	})

	t.Run("messages", func(t *testing.T) {
		require.NoError(t, b.SendMessage(dev, "cooling"))
		msg, ok := rec.last("indigo/message")
		require.True(t, ok)
		assert.False(t, msg.retained)
		assert.JSONEq(t, `{"device":"CCD","message":"cooling"}`, string(msg.payload))
	})

	t.Run("detaching the device clears retained state", func(t *testing.T) {
		require.NoError(t, b.DetachDevice(dev))
		for _, topic := range []string{"indigo/CCD/CCD_EXPOSURE", "indigo/CCD/INFO"} {
			msg, ok := rec.last(topic)
			require.True(t, ok)
			assert.Empty(t, msg.payload, topic)
			assert.True(t, msg.retained)
		}
		assert.ErrorIs(t, rec.handler("indigo/CCD/CCD_EXPOSURE/set", []byte(`{"EXPOSURE":1}`)), mirror.ErrUnknownProperty)
	})

	pub.EXPECT().Close().Return(nil).Once()
	require.NoError(t, b.DetachClient(m))
}

func TestMirrorSubscribeFailure(t *testing.T) {
	pub := mocks.NewMockPublisher(t)
	pub.EXPECT().Subscribe(mock.Anything, mock.Anything).Return(mirror.ErrNotConnected)

	b := bus.New(bus.Config{})
	err := b.AttachClient(mirror.New(pub, mirror.Options{Name: "mqtt"}))
	assert.ErrorIs(t, err, bus.ErrFailed)
	assert.Empty(t, b.Clients())
}
