package tinypoll

import (
	"strings"
)

// Token is an opaque, caller-chosen identifier, attached to a registration,
// and echoed back on the corresponding [Event]. It is never interpreted.
//
// Tokens are not checked for uniqueness, registering two sources with the
// same token makes the resulting events ambiguous.
type Token uint64

// Interests is a set of readiness directions, built from [Readable] and
// [Writable], combined using bitwise OR.
type Interests uint8

const (
	// Writable indicates interest in the source becoming writable.
	//
	// NOTE: Not implemented, [Registrator.Register] fails with
	// [ErrWritableUnsupported] if it is requested.
	Writable Interests = 0b0000_0001
	// Readable indicates interest in the source becoming readable.
	Readable Interests = 0b0000_0010
)

// IsReadable reports whether the set contains [Readable].
func (x Interests) IsReadable() bool { return x&Readable != 0 }

// IsWritable reports whether the set contains [Writable].
func (x Interests) IsWritable() bool { return x&Writable != 0 }

func (x Interests) String() string {
	if x == 0 {
		return "NONE"
	}
	var parts []string
	if x.IsReadable() {
		parts = append(parts, "READABLE")
	}
	if x.IsWritable() {
		parts = append(parts, "WRITABLE")
	}
	if x&^(Readable|Writable) != 0 {
		parts = append(parts, "UNKNOWN")
	}
	return strings.Join(parts, "|")
}

// validate rejects any set that cannot be registered end-to-end. It runs
// before any syscall, so a rejected set never partially registers.
func (x Interests) validate() error {
	switch {
	case x.IsWritable():
		return ErrWritableUnsupported
	case !x.IsReadable():
		return ErrEmptyInterests
	}
	return nil
}
