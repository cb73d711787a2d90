// Package codec is a port collection about item codec related interactions.
//
// The streaming envelope codec requires ahead of time knowledge on how a single
// item converts to and from its serialised representation.
// This port expresses that knowledge as a value, so the envelope codec itself
// stays independent from how the conversion is implemented.
package codec

// Codec defines the typeless common codec bundle,
// which should have the ability to marshal/unmarshal various types.
type Codec interface {
	Marshaler
	Unmarshaler
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
}

type Unmarshaler interface {
	Unmarshal(data []byte, ptr any) error
}
