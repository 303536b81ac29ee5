// Package common defines shared sentinel errors used across claimkeeper
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-tier errors.
	ErrorNotFound        = errors.New("not found")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrSnapshotCorrupted = errors.New("snapshot corrupted")

	// Session errors.
	ErrSubmitted        = errors.New("claim already submitted")
	ErrIndexOutOfRange  = errors.New("file index out of range")
	ErrFileRejected     = errors.New("file rejected")
	ErrUnsupportedValue = errors.New("unsupported field value")

	// Legacy data errors.
	ErrLegacyDecode = errors.New("cannot decode legacy inline data")
)
