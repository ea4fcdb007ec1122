package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID). Empty for
	// bus events that are not tied to a connection.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates record flow relative to this process.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole tells whether this end accepted or dialed the connection.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Device and Property name the bus object the event concerns.
	Device   string `cbor:"8,keyasint,omitempty"`
	Property string `cbor:"9,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Record      *RecordEvent      `cbor:"11,keyasint,omitempty"` // Wire and bus layers
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Connection/protocol/attachment state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of record flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming record.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing record.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the socket layer (raw XML text).
	LayerTransport Layer = 0
	// LayerWire is the XML adapter layer (decoded records).
	LayerWire Layer = 1
	// LayerBus is the in-process property bus.
	LayerBus Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerBus:
		return "BUS"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a property record (def/set/new/del/message).
	CategoryMessage Category = 0
	// CategoryControl indicates a negotiation record (getProperties,
	// enableBLOB, switchProtocol).
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint accepted or dialed the
// connection.
type Role uint8

const (
	// RoleServer indicates the connection was accepted by the server.
	RoleServer Role = 0
	// RoleClient indicates the connection was dialed to a remote server.
	RoleClient Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleServer:
		return "SERVER"
	case RoleClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw protocol text at the transport layer.
type FrameEvent struct {
	// Size is the text size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (may be truncated for large BLOBs).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// RecordEvent captures one decoded protocol record or bus broadcast.
type RecordEvent struct {
	// Kind is the record kind.
	Kind RecordKind `cbor:"1,keyasint"`

	// Type is the property type ("Text", "Number", ...), if any.
	Type string `cbor:"2,keyasint,omitempty"`

	// State is the property state, if any.
	State string `cbor:"3,keyasint,omitempty"`

	// Items is the number of items carried.
	Items int `cbor:"4,keyasint,omitempty"`

	// Message is the attached human-readable message.
	Message string `cbor:"5,keyasint,omitempty"`

	// Version is the protocol version in effect, e.g. "2.0".
	Version string `cbor:"6,keyasint,omitempty"`

	// Mode is the BLOB mode of enableBLOB records.
	Mode string `cbor:"7,keyasint,omitempty"`
}

// RecordKind distinguishes protocol records.
type RecordKind uint8

const (
	// RecordDefine is a defXVector record or define broadcast.
	RecordDefine RecordKind = 0
	// RecordUpdate is a setXVector record or update broadcast.
	RecordUpdate RecordKind = 1
	// RecordDelete is a delProperty record or delete broadcast.
	RecordDelete RecordKind = 2
	// RecordChange is a newXVector record or change request.
	RecordChange RecordKind = 3
	// RecordMessage is a free-text message.
	RecordMessage RecordKind = 4
	// RecordGetProperties is an enumeration request.
	RecordGetProperties RecordKind = 5
	// RecordEnableBlob is a BLOB delivery mode request.
	RecordEnableBlob RecordKind = 6
	// RecordSwitchProtocol is a protocol upgrade acknowledgment.
	RecordSwitchProtocol RecordKind = 7
)

// String returns the record kind name.
func (k RecordKind) String() string {
	switch k {
	case RecordDefine:
		return "DEFINE"
	case RecordUpdate:
		return "UPDATE"
	case RecordDelete:
		return "DELETE"
	case RecordChange:
		return "CHANGE"
	case RecordMessage:
		return "MESSAGE"
	case RecordGetProperties:
		return "GET_PROPERTIES"
	case RecordEnableBlob:
		return "ENABLE_BLOB"
	case RecordSwitchProtocol:
		return "SWITCH_PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection and attachment lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityProtocol indicates a protocol version negotiation.
	StateEntityProtocol StateEntity = 1
	// StateEntityDevice indicates a device attach or detach.
	StateEntityDevice StateEntity = 2
	// StateEntityClient indicates a client attach or detach.
	StateEntityClient StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityProtocol:
		return "PROTOCOL"
	case StateEntityDevice:
		return "DEVICE"
	case StateEntityClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the bus result code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
