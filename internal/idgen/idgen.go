// Package idgen generates the identifiers used by every entity in the
// model: real IDs for elements/relationships/views/folders, visual IDs,
// operation IDs and request IDs.
package idgen

import "github.com/google/uuid"

// New returns a fresh random v4 UUID string, used as the default real-ID
// scheme for every created concept.
func New() string {
	return uuid.New().String()
}

// NewPrefixed returns a new ID with a short human-legible prefix, e.g.
// "elem-3f9a...". Prefixes make log lines and debugging sessions readable
// without weakening uniqueness (the suffix is still a full UUID).
func NewPrefixed(prefix string) string {
	return prefix + "-" + uuid.New().String()
}
