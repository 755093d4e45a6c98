package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash returns the sha256 hex digest of a unit's source bytes.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
