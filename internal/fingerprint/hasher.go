// Package fingerprint produces one-way digests of normalized identifiers so
// duplicate lookups never touch plaintext Aadhaar or PAN values.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"kycintake/internal/domain"
	"kycintake/internal/extract"
)

// Hash returns the SHA-256 hex digest of a normalized identifier. Identical
// input always yields the same digest, so the value works as an equality key.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// FromIdentifiers normalizes the raw Aadhaar and PAN values and hashes each
// one that survives normalization. A hash is nil iff its source was empty or
// the "N/A" sentinel.
func FromIdentifiers(rawAadhaar, rawPAN string) domain.IdentityFingerprint {
	var fp domain.IdentityFingerprint

	if aadhaar := extract.Normalize(rawAadhaar); aadhaar != "" {
		h := Hash(aadhaar)
		fp.AadhaarHash = &h
	}
	if pan := extract.Normalize(rawPAN); pan != "" {
		h := Hash(pan)
		fp.PANHash = &h
	}

	return fp
}
