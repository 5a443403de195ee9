package hotspot

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/hotspotd/internal/usecase/catalog"
)

// Sentinel errors returned by client operations.
// Use errors.Is() to check.
var (
	// ErrNotFound signals a missing question or group.
	ErrNotFound = errors.New("hotspot: not found")
	// ErrValidation signals rejected input (including duplicate question ids).
	ErrValidation = errors.New("hotspot: validation failed")
	// ErrUnavailable signals a store or index failure.
	ErrUnavailable = errors.New("hotspot: service unavailable")
)

// envelopeErr maps a non-success envelope to a sentinel-wrapped error.
func envelopeErr(resp catalog.Response) error {
	switch resp.Code {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrValidation, resp.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Message)
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Message)
	}
}
