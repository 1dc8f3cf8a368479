package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for document-level identifiers.
const (
	PrefixTrip = "trip"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "trip-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewBlockID returns an identifier for a document block.
// Blocks use UUIDs so editors can mint them offline in the same format.
func NewBlockID() string {
	return uuid.NewString()
}
