package uuid

import (
	"crypto/rand"
	"fmt"
)

// UUID is a 128-bit universally unique identifier.
type UUID [16]byte

// Nil is the zero value for a UUID.
var Nil = UUID{}

// NewV4 generates a random UUID (version 4).
func NewV4() (UUID, error) {
	var u UUID
	if _, err := rand.Read(u[:]); err != nil {
		return Nil, err
	}

	u[6] = (u[6] & 0x0f) | 0x40 // Version 4
	u[8] = (u[8] & 0x3f) | 0x80 // Variant RFC4122

	return u, nil
}

// MustNewV4 panics if UUID generation fails.
func MustNewV4() UUID {
	u, err := NewV4()
	if err != nil {
		panic(fmt.Errorf("failed to generate UUID: %w", err))
	}
	return u
}

// NewString returns a fresh UUIDv4 in string form.
func NewString() string {
	return MustNewV4().String()
}

// String returns the UUID in standard hexadecimal format.
func (u UUID) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x",
		u[0:4], u[4:6], u[6:8], u[8:10], u[10:])
}
