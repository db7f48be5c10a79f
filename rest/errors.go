package rest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
)

// ErrorKind classifies why a call did not produce a success outcome.
type ErrorKind int

const (
	// KindTransport covers connection, TLS, timeout and decode failures.
	KindTransport ErrorKind = iota
	// KindProtocolStatus means the server answered with a status outside the expected set.
	KindProtocolStatus
	// KindAuth means a login did not establish a session.
	KindAuth
	// KindContractViolation means the caller asked for something the client does not support.
	KindContractViolation
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocolStatus:
		return "protocol_status"
	case KindAuth:
		return "auth"
	case KindContractViolation:
		return "contract_violation"
	default:
		return "unknown"
	}
}

// Fault narrows a transport error down to what went wrong on the wire.
type Fault string

const (
	FaultTimeout           Fault = "timeout"
	FaultConnectionRefused Fault = "connection_refused"
	FaultConnectionReset   Fault = "connection_reset"
	FaultTLS               Fault = "tls"
	FaultDNS               Fault = "dns"
	FaultMalformedResponse Fault = "malformed_response"
	FaultInvalidRequest    Fault = "invalid_request"
	FaultPanic             Fault = "panic"
	FaultUnknown           Fault = "unknown"
)

// Error is the single failure type returned by the client. Callers branch on
// Kind (and Fault for transport errors) instead of parsing log text.
type Error struct {
	Kind       ErrorKind
	Fault      Fault
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s %s: %s (HTTP %d): %s", e.Method, e.Path, e.Kind, e.StatusCode, e.Detail)
	case e.Fault != "":
		return fmt.Sprintf("%s %s: %s/%s: %s", e.Method, e.Path, e.Kind, e.Fault, e.Detail)
	default:
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Kind, e.Detail)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewAuthError builds the error an authenticator returns when login fails.
func NewAuthError(method, path string, statusCode int, detail string, cause error) *Error {
	return &Error{
		Kind:       KindAuth,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Detail:     detail,
		Err:        cause,
	}
}

func newTransportError(method, path string, err error) *Error {
	return &Error{
		Kind:   KindTransport,
		Fault:  classifyFault(err),
		Method: method,
		Path:   path,
		Detail: err.Error(),
		Err:    err,
	}
}

func newStatusError(method, path string, statusCode int, body []byte) *Error {
	return &Error{
		Kind:       KindProtocolStatus,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Detail:     string(body),
	}
}

// classifyFault maps a transport error onto a Fault.
func classifyFault(err error) Fault {
	if err == nil {
		return FaultUnknown
	}

	var (
		dnsErr      *net.DNSError
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownCA   x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
		syntaxErr   *json.SyntaxError
		unsupported *json.UnsupportedTypeError
		badValue    *json.UnsupportedValueError
		marshalErr  *json.MarshalerError
		typeErr     *json.UnmarshalTypeError
		netErr      net.Error
	)

	switch {
	case errors.As(err, &unsupported), errors.As(err, &badValue), errors.As(err, &marshalErr):
		return FaultInvalidRequest
	case errors.Is(err, context.DeadlineExceeded):
		return FaultTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return FaultTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return FaultConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return FaultConnectionReset
	case errors.As(err, &dnsErr):
		return FaultDNS
	case errors.As(err, &verifyErr), errors.As(err, &unknownCA), errors.As(err, &hostErr),
		errors.As(err, &invalidCert), errors.As(err, &recordErr):
		return FaultTLS
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.ErrUnexpectedEOF):
		return FaultMalformedResponse
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, io.EOF) {
		return FaultConnectionReset
	}
	return FaultUnknown
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return kindOf(err) == KindTransport
}

// IsProtocolStatus reports whether err is an unexpected-status failure.
func IsProtocolStatus(err error) bool {
	return kindOf(err) == KindProtocolStatus
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return kindOf(err) == KindAuth
}

// IsContractViolation reports whether err stems from an unsupported caller request.
func IsContractViolation(err error) bool {
	return kindOf(err) == KindContractViolation
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return -1
}
