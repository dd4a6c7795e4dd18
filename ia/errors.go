package ia

import "errors"

// Sentinel errors returned by the channel model and the solver. They
// are wrapped with context via fmt.Errorf and matched with errors.Is.
//
// ErrSingularMatrix is the only runtime numerical failure; everything
// else is a configuration or usage error. A harness driving random
// channel realizations should treat ErrSingularMatrix as retryable with
// a fresh draw and everything else as fatal to the configuration.
var (
	// ErrShapeMismatch is returned when Nr/Nt/Ns lengths disagree with K
	// or a supplied channel matrix has the wrong concatenated shape.
	ErrShapeMismatch = errors.New("ia: shape mismatch")

	// ErrIndexOutOfRange is returned for an out-of-range user index in
	// block extraction.
	ErrIndexOutOfRange = errors.New("ia: user index out of range")

	// ErrNotInitialized is returned when the iteration is invoked before
	// the channel matrix or the precoders have been initialized.
	ErrNotInitialized = errors.New("ia: not initialized")

	// ErrDimensionMismatch is returned when solver state sized against a
	// previous channel no longer matches the attached channel model.
	ErrDimensionMismatch = errors.New("ia: dimensions inconsistent with attached channel")

	// ErrSingularMatrix is returned when the zero-forcing receive filter
	// computation hits a singular or severely ill-conditioned matrix.
	ErrSingularMatrix = errors.New("ia: singular matrix in receive filter computation")
)
