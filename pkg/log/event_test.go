package log

import "testing"

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"direction in", DirectionIn.String(), "IN"},
		{"direction out", DirectionOut.String(), "OUT"},
		{"direction unknown", Direction(99).String(), "UNKNOWN"},
		{"layer transport", LayerTransport.String(), "TRANSPORT"},
		{"layer wire", LayerWire.String(), "WIRE"},
		{"layer bus", LayerBus.String(), "BUS"},
		{"layer unknown", Layer(99).String(), "UNKNOWN"},
		{"category message", CategoryMessage.String(), "MESSAGE"},
		{"category control", CategoryControl.String(), "CONTROL"},
		{"category state", CategoryState.String(), "STATE"},
		{"category error", CategoryError.String(), "ERROR"},
		{"category unknown", Category(99).String(), "UNKNOWN"},
		{"role server", RoleServer.String(), "SERVER"},
		{"role client", RoleClient.String(), "CLIENT"},
		{"role unknown", Role(99).String(), "UNKNOWN"},
		{"entity connection", StateEntityConnection.String(), "CONNECTION"},
		{"entity protocol", StateEntityProtocol.String(), "PROTOCOL"},
		{"entity device", StateEntityDevice.String(), "DEVICE"},
		{"entity client", StateEntityClient.String(), "CLIENT"},
		{"entity unknown", StateEntity(99).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestRecordKindString(t *testing.T) {
	want := map[RecordKind]string{
		RecordDefine:         "DEFINE",
		RecordUpdate:         "UPDATE",
		RecordDelete:         "DELETE",
		RecordChange:         "CHANGE",
		RecordMessage:        "MESSAGE",
		RecordGetProperties:  "GET_PROPERTIES",
		RecordEnableBlob:     "ENABLE_BLOB",
		RecordSwitchProtocol: "SWITCH_PROTOCOL",
		RecordKind(99):       "UNKNOWN",
	}
	for k, s := range want {
		if got := k.String(); got != s {
			t.Errorf("RecordKind(%d).String() = %q, want %q", k, got, s)
		}
	}
}
