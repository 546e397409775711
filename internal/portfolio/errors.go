package portfolio

import "errors"

// ErrUnknownAsset is returned when a holding references no catalog asset
var ErrUnknownAsset = errors.New("Unknown asset. Please choose a supported cryptocurrency.")

// ValidationError rejects a holding at the write boundary with a reason
// suitable for showing to the user
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidation reports whether err is a validation failure, including an unknown asset
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || errors.Is(err, ErrUnknownAsset)
}
