// Package identity derives content-addressed chunk identifiers.
package identity

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// Delimiter joins the key fields before hashing. The unit separator does not
// occur in corpus text.
const Delimiter = "\x1f"

// StableID hashes (sourceCode, section, text) with SHA-256 and keeps the
// leading 128 bits, rendered in UUID form so every vector store accepts it.
// Identical inputs always produce the identical id.
func StableID(sourceCode, section, text string) string {
	h := sha256.New()
	h.Write([]byte(sourceCode))
	h.Write([]byte(Delimiter))
	h.Write([]byte(section))
	h.Write([]byte(Delimiter))
	h.Write([]byte(text))
	sum := h.Sum(nil)

	// FromBytes only fails on a length other than 16
	id, _ := uuid.FromBytes(sum[:16])
	return id.String()
}
