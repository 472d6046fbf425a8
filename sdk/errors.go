package stagelink

import (
	"fmt"
	"net/url"

	"github.com/stagelink-ai/stagelink-go/pkg/core"
)

// Error is the canonical SDK error type.
type Error = core.Error

// Error types.
const (
	ErrPrecondition   = core.ErrPrecondition
	ErrDevice         = core.ErrDevice
	ErrNetwork        = core.ErrNetwork
	ErrValidation     = core.ErrValidation
	ErrAuthentication = core.ErrAuthentication
	ErrAPI            = core.ErrAPI
)

// Error constructors.
var (
	NewPreconditionError = core.NewPreconditionError
	NewDeviceError       = core.NewDeviceError
	NewNetworkError      = core.NewNetworkError
	NewValidationError   = core.NewValidationError
)

// TransportError represents transport-level failures (DNS, timeouts,
// connection reset, TLS handshake) while talking to the service.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from canonical SDK errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}
