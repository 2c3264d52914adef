package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short, stable identifier of a secret token so it
// can be logged or compared without exposing the token itself.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}
