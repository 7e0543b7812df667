package fees

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPrice is returned when the vehicle price is zero or negative.
	ErrInvalidPrice = errors.New("vehicle price must be greater than zero")
	// ErrInvalidVehicleType is returned for vehicle types other than Common and Luxury.
	ErrInvalidVehicleType = errors.New("vehicle type is not valid")
	// ErrMisconfigured marks fee configuration problems. Match with errors.Is.
	ErrMisconfigured = errors.New("fee misconfigured")
)

// ConfigError describes a fee rule group that cannot be evaluated.
type ConfigError struct {
	FeeCode string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.FeeCode, e.Reason)
}

// Is lets errors.Is(err, ErrMisconfigured) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMisconfigured
}

func misconfigured(code, format string, args ...any) error {
	return &ConfigError{FeeCode: code, Reason: fmt.Sprintf(format, args...)}
}
