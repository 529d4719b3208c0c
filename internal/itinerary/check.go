package itinerary

import (
	"errors"
	"fmt"
)

// ErrEmptyItinerary is returned for a successful envelope that carries no segments.
var ErrEmptyItinerary = errors.New("itinerary has no route segments")

// BackendError carries the message of an envelope with success=false.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return "failed to fetch route"
	}
	return e.Message
}

// Check enforces the caller side of the normalizer contract: the envelope must
// report success and carry at least one segment before it may be assembled.
func (r *RouteResponse) Check() error {
	if r == nil {
		return fmt.Errorf("nil route response: %w", ErrEmptyItinerary)
	}
	if !r.Success {
		return &BackendError{Message: r.Message}
	}
	if len(r.Segments) == 0 {
		return ErrEmptyItinerary
	}
	return nil
}
