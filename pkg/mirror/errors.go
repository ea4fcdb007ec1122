package mirror

import "errors"

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrNotConnected     = errors.New("mqtt not connected")
	ErrPublishFailed    = errors.New("mqtt publish failed")
	ErrSubscribeFailed  = errors.New("mqtt subscribe failed")
	ErrInvalidTopic     = errors.New("invalid topic")

	// ErrUnknownProperty is returned for set requests naming a property
	// the mirror has not seen defined.
	ErrUnknownProperty = errors.New("unknown property")

	ErrInvalidPayload = errors.New("invalid payload")
)
