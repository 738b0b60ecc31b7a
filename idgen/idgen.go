// Package idgen provides pluggable ID generation for request tracing.
//
// The format is a startup-time decision: short hex IDs keep log lines
// compact, UUIDv7 IDs are time-sortable and globally unique.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// Format names accepted by ByName.
const (
	FormatHex  = "hex"
	FormatUUID = "uuid"
)

// Hex returns a Generator of random lowercase hex IDs with length characters.
// length is rounded up to an even number.
func Hex(length int) Generator {
	n := (length + 1) / 2
	return func() string {
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		return hex.EncodeToString(buf)
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// ByName returns the generator for a format name: "hex" (8 characters) or
// "uuid". The empty name selects hex.
func ByName(name string) (Generator, error) {
	switch name {
	case "", FormatHex:
		return Hex(8), nil
	case FormatUUID:
		return UUIDv7(), nil
	}
	return nil, fmt.Errorf("idgen: unknown id format %q (use hex or uuid)", name)
}
