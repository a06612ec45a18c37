package authenc

import "errors"

var (
	// ErrInvalidKeyLength is returned when a key, or a part of
	// an authenc key blob, has an unsupported length.
	ErrInvalidKeyLength = errors.New("authenc: invalid key length")
	// ErrKeyDerivation is returned when the engine fails while
	// deriving authentication key material.
	ErrKeyDerivation = errors.New("authenc: key derivation failed")
	// ErrInvalidTagSize is returned for unsupported tag sizes.
	ErrInvalidTagSize = errors.New("authenc: invalid tag size")
	// ErrInvalidLength is returned when the payload is too short
	// or not aligned to the cipher's block size.
	ErrInvalidLength = errors.New("authenc: invalid payload length")
	// ErrInvalidIV is returned when the IV has the wrong size or
	// an invalid CCM length field.
	ErrInvalidIV = errors.New("authenc: invalid IV format")
	// ErrInvalidAssociatedDataLength is returned when an IPsec
	// wrapped suite is given associated data that is neither 16
	// nor 20 bytes.
	ErrInvalidAssociatedDataLength = errors.New("authenc: invalid associated data length")
	// ErrLengthOverflow is returned when a CCM payload does not
	// fit in the IV's length field.
	ErrLengthOverflow = errors.New("authenc: payload length overflows CCM length field")
	// ErrAuthentication is returned when the tag does not match.
	ErrAuthentication = errors.New("authenc: message authentication failure")
	// ErrEngine matches every *EngineError.
	ErrEngine = errors.New("authenc: engine failure")
)

// EngineError records a primitive failure and the plan step that
// caused it.
type EngineError struct {
	Step Step
	Err  error
}

func (e *EngineError) Error() string {
	return "authenc: engine failure at " + e.Step.String() + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEngine.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}
