package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// Protocol rejection taxonomy. Every rejected message maps to exactly
	// one of these so an auditor can attribute it to a single cause.
	ErrPuzzleInvalid            = errors.New("puzzle solution invalid")
	ErrSignatureInvalid         = errors.New("signature verification failed")
	ErrAccessDenied             = errors.New("access policy not satisfied")
	ErrQuorumNotReached         = errors.New("quorum not reached")
	ErrRoundStale               = errors.New("message references a closed or unopened round")
	ErrRoundIncomplete          = errors.New("round deadline expired with missing contributions")
	ErrReconstructionIncomplete = errors.New("cannot reconstruct with missing shares")
)
