// Package guuid provides the opaque 16-byte handle type used to key calls and
// peers in the call registry, without exposing registry internals to rxcall.
package guuid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// GUUID is a 16-byte globally unique identifier used as a CallID or PeerID.
type GUUID [16]byte

// New generates a new GUUID using crypto/rand for high entropy.
func New() (GUUID, error) {
	var g GUUID
	if _, err := rand.Read(g[:]); err != nil {
		return GUUID{}, fmt.Errorf("failed to generate GUUID: %w", err)
	}
	return g, nil
}

// NewWithTimestamp generates a GUUID with an embedded timestamp for ordering.
// First 8 bytes: Unix timestamp (nanoseconds). Last 8 bytes: random data.
func NewWithTimestamp() (GUUID, error) {
	var g GUUID
	binary.BigEndian.PutUint64(g[:8], uint64(time.Now().UnixNano()))
	if _, err := rand.Read(g[8:]); err != nil {
		return GUUID{}, fmt.Errorf("failed to generate timestamped GUUID: %w", err)
	}
	return g, nil
}

// FromString parses a GUUID from its hex string representation, hyphens allowed.
func FromString(s string) (GUUID, error) {
	cleaned := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			cleaned = append(cleaned, s[i])
		}
	}
	if len(cleaned) != 32 {
		return GUUID{}, fmt.Errorf("invalid GUUID string length: expected 32 hex chars, got %d", len(cleaned))
	}
	b, err := hex.DecodeString(string(cleaned))
	if err != nil {
		return GUUID{}, fmt.Errorf("invalid GUUID string format: %w", err)
	}
	var g GUUID
	copy(g[:], b)
	return g, nil
}

// String returns the plain hex representation.
func (g GUUID) String() string {
	return hex.EncodeToString(g[:])
}

// StringWithHyphens returns a UUID-compatible hyphenated string.
func (g GUUID) StringWithHyphens() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", g[0:4], g[4:6], g[6:8], g[8:10], g[10:16])
}

// Bytes returns the raw byte slice backing the GUUID.
func (g GUUID) Bytes() []byte {
	return g[:]
}

// IsZero reports whether the GUUID is the zero value.
func (g GUUID) IsZero() bool {
	return g == GUUID{}
}

// Timestamp extracts the embedded timestamp from a NewWithTimestamp GUUID.
// Returns garbage if g was not created with NewWithTimestamp.
func (g GUUID) Timestamp() time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(g[:8])))
}

// Equal compares two GUUIDs for equality.
func (g GUUID) Equal(other GUUID) bool {
	return g == other
}

// MarshalText implements encoding.TextMarshaler.
func (g GUUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GUUID) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Zero returns the zero-valued GUUID.
func Zero() GUUID {
	return GUUID{}
}
