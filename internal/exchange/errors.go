package exchange

import (
	"fmt"

	"github.com/pkg/errors"

	"usdtdesk/internal/domain"
)

// APIError is an exchange-level failure: the endpoint answered but reported a
// non-success result. It carries the exchange's own error code and message.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange error %s: %s", e.Code, e.Message)
}

// TransportError is an HTTP-level failure before any body could be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is an unparseable or structurally unexpected response body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failure: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusFor maps a submission failure onto the log status recorded for the
// attempt: exchange-reported failures keep their own status, transport and
// decode failures fall under processing errors.
func StatusFor(err error) domain.LogStatus {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return domain.LogStatusAPIError
	}
	return domain.LogStatusProcessingError
}
