package internalerr

import "errors"

// Sentinel errors shared across packages. Wrap them with fmt.Errorf("...: %w", err)
// and test with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInconsistentData marks stored data that contradicts itself, such as an
	// embedding whose size differs from the query vector. It is a server fault.
	ErrInconsistentData = errors.New("inconsistent stored data")
)
