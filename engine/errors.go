package engine

import "fmt"

// Sentinel errors, in the style of kryptco-kr's error.go: package-level
// fmt.Errorf values rather than a wrapping error framework.
var (
	ErrHeapKeyMissing      = fmt.Errorf("engine: heap key not present")
	ErrFieldLengthMismatch = fmt.Errorf("engine: field write length does not match declared field length")
	ErrNumericOverflow     = fmt.Errorf("engine: numeric value does not fit declared field width")
	ErrUnknownField        = fmt.Errorf("engine: unknown field identifier")
	ErrDynamicSizeMissing  = fmt.Errorf("engine: no byte blob available to resolve dynamic array size")
	ErrCipherNotInstalled  = fmt.Errorf("engine: no cipher installed for this connection")
	ErrCipherFailure       = fmt.Errorf("engine: AEAD operation failed")
	ErrTaskIDConflict      = fmt.Errorf("engine: task provider returned a task ID conflicting with the loaded program")
	ErrNotImplemented      = fmt.Errorf("engine: instruction reserved and not implemented")
)
