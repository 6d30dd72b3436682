package cmpfetch

import (
	"errors"

	"github.com/pthm/cmpfetch/lib/payload"
)

// Aliases for lib/payload types, for convenience.
type (
	Payload       = payload.Payload
	StaticPayload = payload.Static
	PayloadSlot   = payload.Slot
	PayloadCodec  = payload.Codec
)

// NewPayload creates an empty request payload store.
func NewPayload() *Payload { return payload.New() }

// NewStaticPayload creates an empty static page payload.
func NewStaticPayload() *StaticPayload { return payload.NewStatic() }

// NewPayloadCodec creates a codec for embedding payloads in pages.
func NewPayloadCodec(key []byte) (*PayloadCodec, error) {
	return payload.NewCodec(key)
}

// IsPayloadRejected checks whether err means an embedded payload blob was
// malformed, tampered with, or undecryptable. Clients treat a rejected
// payload as absent and fall back to fetching live.
func IsPayloadRejected(err error) bool {
	return errors.Is(err, payload.ErrInvalidFormat) ||
		errors.Is(err, payload.ErrSignatureInvalid) ||
		errors.Is(err, payload.ErrDecryptFailed)
}
