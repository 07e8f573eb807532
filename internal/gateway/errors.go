package gateway

import "errors"

type ErrorKind string

const (
	KindEmptyResponse ErrorKind = "EMPTY_RESPONSE"
	KindProvider      ErrorKind = "PROVIDER_ERROR"
)

// EmptyResponseMessage is reported when the provider produced no text.
const EmptyResponseMessage = "No valid response generated"

// Error is the only error type Recommend returns. Provider errors keep the
// provider's message verbatim.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind == KindEmptyResponse {
		return EmptyResponseMessage
	}
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of a gateway error. Anything that is not a
// gateway error is treated as a provider failure.
func KindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindProvider
}
