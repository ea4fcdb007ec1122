package property

import (
	"errors"
	"fmt"
)

// ErrUnknownValue is returned when parsing an unknown wire spelling.
var ErrUnknownValue = errors.New("unknown value")

// Type is the type shared by all items of a property.
type Type uint8

const (
	// TextVector holds text items.
	TextVector Type = iota + 1

	// NumberVector holds number items with range and format.
	NumberVector

	// SwitchVector holds boolean items governed by a Rule.
	SwitchVector

	// LightVector holds read-only status lights.
	LightVector

	// BlobVector holds binary large objects.
	BlobVector
)

// String returns the wire spelling used in element names (defTextVector).
func (t Type) String() string {
	switch t {
	case TextVector:
		return "Text"
	case NumberVector:
		return "Number"
	case SwitchVector:
		return "Switch"
	case LightVector:
		return "Light"
	case BlobVector:
		return "BLOB"
	default:
		return "UNKNOWN"
	}
}

// ParseType parses the spelling produced by Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "Text":
		return TextVector, nil
	case "Number":
		return NumberVector, nil
	case "Switch":
		return SwitchVector, nil
	case "Light":
		return LightVector, nil
	case "BLOB":
		return BlobVector, nil
	}
	return 0, fmt.Errorf("%w: type %q", ErrUnknownValue, s)
}

// State is the operational status of a property.
type State uint8

const (
	// Idle means the property is not in use.
	Idle State = iota

	// Ok means the last operation completed.
	Ok

	// Busy means an accepted request has not completed yet.
	Busy

	// Alert means the last operation failed.
	Alert
)

// String returns the wire spelling.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Ok:
		return "Ok"
	case Busy:
		return "Busy"
	case Alert:
		return "Alert"
	default:
		return "UNKNOWN"
	}
}

// ParseState parses a wire state. Unknown spellings map to Idle with an
// error so that callers can decide whether to tolerate them.
func ParseState(s string) (State, error) {
	switch s {
	case "Idle":
		return Idle, nil
	case "Ok":
		return Ok, nil
	case "Busy":
		return Busy, nil
	case "Alert":
		return Alert, nil
	}
	return Idle, fmt.Errorf("%w: state %q", ErrUnknownValue, s)
}

// Perm is the access permission of a property.
type Perm uint8

const (
	// ReadOnly properties cannot be changed by clients.
	ReadOnly Perm = iota + 1

	// ReadWrite properties can be read and changed.
	ReadWrite

	// WriteOnly properties are changed by clients but never report values.
	WriteOnly
)

// String returns the wire spelling.
func (p Perm) String() string {
	switch p {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	case WriteOnly:
		return "wo"
	default:
		return "UNKNOWN"
	}
}

// ParsePerm parses a wire permission.
func ParsePerm(s string) (Perm, error) {
	switch s {
	case "ro":
		return ReadOnly, nil
	case "rw":
		return ReadWrite, nil
	case "wo":
		return WriteOnly, nil
	}
	return ReadWrite, fmt.Errorf("%w: perm %q", ErrUnknownValue, s)
}

// Rule constrains the switches of a switch vector.
type Rule uint8

const (
	// OneOfMany requires exactly one switch on.
	OneOfMany Rule = iota + 1

	// AtMostOne allows zero or one switch on.
	AtMostOne

	// AnyOfMany allows any combination.
	AnyOfMany
)

// String returns the wire spelling.
func (r Rule) String() string {
	switch r {
	case OneOfMany:
		return "OneOfMany"
	case AtMostOne:
		return "AtMostOne"
	case AnyOfMany:
		return "AnyOfMany"
	default:
		return "UNKNOWN"
	}
}

// ParseRule parses a wire rule.
func ParseRule(s string) (Rule, error) {
	switch s {
	case "OneOfMany":
		return OneOfMany, nil
	case "AtMostOne":
		return AtMostOne, nil
	case "AnyOfMany":
		return AnyOfMany, nil
	}
	return OneOfMany, fmt.Errorf("%w: rule %q", ErrUnknownValue, s)
}

// BlobMode selects how BLOB updates are delivered to a client.
type BlobMode uint8

const (
	// BlobNever suppresses BLOB updates. It is the default.
	BlobNever BlobMode = iota

	// BlobAlso delivers BLOB payloads inline.
	BlobAlso

	// BlobURL delivers a URL instead of the payload where one is known.
	BlobURL
)

// String returns the wire spelling.
func (m BlobMode) String() string {
	switch m {
	case BlobNever:
		return "Never"
	case BlobAlso:
		return "Also"
	case BlobURL:
		return "URL"
	default:
		return "UNKNOWN"
	}
}

// ParseBlobMode parses the text content of an enableBLOB element.
func ParseBlobMode(s string) (BlobMode, error) {
	switch s {
	case "Never":
		return BlobNever, nil
	case "Also":
		return BlobAlso, nil
	case "URL":
		return BlobURL, nil
	}
	return BlobNever, fmt.Errorf("%w: blob mode %q", ErrUnknownValue, s)
}
