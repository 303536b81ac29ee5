// Package cryptox holds the content-integrity primitives used by the blob
// stores.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/blake2b"
)

// SumSize is the length in bytes of a Checksum result.
const SumSize = blake2b.Size256

// Checksum returns the BLAKE2b-256 digest of data.
func Checksum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// Verify reports whether sum is the checksum of data. The comparison runs in
// constant time.
func Verify(data, sum []byte) bool {
	if len(sum) != SumSize {
		return false
	}
	return subtle.ConstantTimeCompare(Checksum(data), sum) == 1
}
