package imsp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField      = errors.New("unknown field")
	ErrFixedField        = errors.New("field can not be overridden")
	ErrOutOfRange        = errors.New("value out of range")
	ErrEncoding          = errors.New("message can not be encoded")
	ErrMalformedResponse = errors.New("malformed gateway response")
	ErrTransport         = errors.New("gateway request failed")
)

// FieldError is returned when a submission override can not be applied.
type FieldError struct {
	Key string // wire name of the field
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// EncodingError is returned when the message text contains a character that
// the target character set can not represent.
type EncodingError struct {
	Charset string // target character set
	Err     error  // error of the underlying transformer
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode message to %s: %v", e.Charset, e.Err)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

func (e *EncodingError) Unwrap() error { return e.Err }

// MalformedResponseError describes a gateway response without usable records.
type MalformedResponseError struct {
	Records   int      // number of parsed records
	Malformed []string // raw text of the records without an address
}

func (e *MalformedResponseError) Error() string {
	if e.Records == 0 && len(e.Malformed) == 0 {
		return ErrMalformedResponse.Error() + ": no records"
	}
	return fmt.Sprintf("%v: %d records without address [%s]",
		ErrMalformedResponse, len(e.Malformed), strings.Join(e.Malformed, "; "))
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// TransportError is returned by HTTPPoster when the gateway answers with a
// non-success HTTP status.
type TransportError struct {
	StatusCode int    // HTTP status code
	Body       string // response body, if any
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: http status %d", ErrTransport, e.StatusCode)
	}
	return fmt.Sprintf("%v: http status %d: %s", ErrTransport, e.StatusCode, e.Body)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
