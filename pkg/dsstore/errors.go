package dsstore

import "errors"

var (
	// ErrNotFound means no container file exists at the path. Callers treat
	// this as "no metadata", not as a failure.
	ErrNotFound = errors.New("dsstore: no store file")

	// ErrCorrupt means the file exists but fails structural validation
	// (bad header, truncated block, invalid addresses). Callers fall back
	// to defaults.
	ErrCorrupt = errors.New("dsstore: corrupt store file")

	// ErrMalformedRecord means a single record's declared length exceeds
	// the available bytes. The record is skipped; decoding continues.
	ErrMalformedRecord = errors.New("dsstore: malformed record")

	// ErrWriteFailed means the filesystem write or rename failed. The
	// original file is left untouched.
	ErrWriteFailed = errors.New("dsstore: write failed")
)
