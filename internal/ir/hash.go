package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainQuery separates query fingerprints from any other digest computed
// over canonical JSON. The version suffix changes with the wire form.
const DomainQuery = "repokit/query/v1"

// Fingerprint returns the hex SHA-256 of domain, a zero byte, then the
// canonical bytes. Equal canonical documents share a fingerprint.
func Fingerprint(domain string, canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}
