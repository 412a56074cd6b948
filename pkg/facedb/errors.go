package facedb

import "errors"

var (
	// ErrDuplicateLowConfidence is returned when an enrollment
	// embedding resembles an already-enrolled face under a different
	// name closely enough that merging would risk mixing identities.
	ErrDuplicateLowConfidence = errors.New("facedb: embedding matches another identity")

	// ErrNotFound is returned when the named record does not exist.
	ErrNotFound = errors.New("facedb: not found")

	// ErrBadEmbedding is returned for empty or mismatched vectors.
	ErrBadEmbedding = errors.New("facedb: bad embedding")
)
