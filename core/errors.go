package core

import (
	"errors"
	"fmt"
)

// ErrHostUnavailable is returned by snapshot providers when the host
// collaborator cannot be reached at all.
var ErrHostUnavailable = errors.New("host session unavailable")

// AcquisitionError reports that a snapshot could not be pulled from the host.
// It is the only error that aborts a processing pass.
type AcquisitionError struct {
	Err error
}

// Error implements the error interface.
func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return "snapshot acquisition failed"
	}
	return fmt.Sprintf("snapshot acquisition failed: %v", e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *AcquisitionError) Unwrap() error { return e.Err }
