package failure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Kind is a member of the failure taxonomy
type Kind string

const (
	AuthExpired        Kind = "AuthExpired"
	AuthInvalid        Kind = "AuthInvalid"
	MemoryExhausted    Kind = "MemoryExhausted"
	NetworkTimeout     Kind = "NetworkTimeout"
	NetworkUnavailable Kind = "NetworkUnavailable"
	NoLocationFound    Kind = "NoLocationFound"
	EncodingFailed     Kind = "EncodingFailed"
	Unknown            Kind = "Unknown"
)

// Remediation is the single user-facing action offered for a failure
type Remediation string

const (
	RemediationRetry         Remediation = "Retry"
	RemediationReLogin       Remediation = "ReLogin"
	RemediationFreeResources Remediation = "FreeResources"
)

// Message returns the user-facing text of the action
func (r Remediation) Message() string {
	switch r {
	case RemediationReLogin:
		return "Your session has ended. Sign in again to continue."
	case RemediationFreeResources:
		return "Not enough free space or memory. Free some up and try again."
	}
	return "Download failed. Check your connection and try again."
}

// Sentinel errors wrapped by the components that detect these conditions
var (
	ErrAuthExpired     = errors.New("auth: token expired")
	ErrAuthInvalid     = errors.New("auth: credentials rejected")
	ErrMemoryExhausted = errors.New("memory exhausted")
	ErrNoLocation      = errors.New("no media payload or download location in response")
	ErrEncodingFailed  = errors.New("encoded write failed")
)

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Public collapses the reporting-only members into the classification the
// caller acts on.
func (k Kind) Public() Kind {
	switch k {
	case NoLocationFound, EncodingFailed, "":
		return Unknown
	}
	return k
}

// Retryable reports whether the caller may offer a plain retry
func (k Kind) Retryable() bool {
	switch k.Public() {
	case AuthExpired, AuthInvalid, MemoryExhausted:
		return false
	}
	return true
}

// Remediation returns the action shown to the user
func (k Kind) Remediation() Remediation {
	switch k.Public() {
	case AuthExpired, AuthInvalid:
		return RemediationReLogin
	case MemoryExhausted:
		return RemediationFreeResources
	}
	return RemediationRetry
}

// StatusError is a non-success HTTP response
type StatusError struct {
	StatusCode      int
	Status          string
	WWWAuthenticate string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected response status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected response status: %d", e.StatusCode)
}

// HTTPStatusCode returns the response status code
func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Error is a classified failure as reported to the caller
type Error struct {
	Kind  Kind // caller-facing classification
	Cause Kind // taxonomy member that produced Kind
	Err   error
}

// New classifies err once and wraps it
func New(err error) *Error {
	cause := Detect(err)
	return &Error{Kind: cause.Public(), Cause: cause, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Cause, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may offer a plain retry
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// Remediation returns the action shown to the user
func (e *Error) Remediation() Remediation {
	return e.Kind.Remediation()
}

// Classify maps err to the caller-facing classification
func Classify(err error) Kind {
	return Detect(err).Public()
}

// Detect maps err to the full taxonomy, including NoLocationFound and EncodingFailed
func Detect(err error) Kind {
	if err == nil {
		return Unknown
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Cause
	}

	switch {
	case errors.Is(err, ErrAuthExpired):
		return AuthExpired
	case errors.Is(err, ErrAuthInvalid):
		return AuthInvalid
	case isMemoryExhausted(err):
		return MemoryExhausted
	case isTimeout(err):
		return NetworkTimeout
	case isUnavailable(err):
		return NetworkUnavailable
	}

	if kind, ok := statusKind(err); ok {
		return kind
	}

	switch {
	case errors.Is(err, ErrNoLocation):
		return NoLocationFound
	case errors.Is(err, ErrEncodingFailed):
		return EncodingFailed
	}
	return Unknown
}

func isMemoryExhausted(err error) bool {
	return errors.Is(err, ErrMemoryExhausted) ||
		errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.ENOSPC)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnavailable(err error) bool {
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.ENETUNREACH,
		syscall.EHOSTUNREACH,
		syscall.ENETDOWN,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	// Body cut short by a dropped connection
	return errors.Is(err, io.ErrUnexpectedEOF)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func statusKind(err error) (Kind, bool) {
	var coder httpStatusCoder
	if !errors.As(err, &coder) {
		return "", false
	}

	switch code := coder.HTTPStatusCode(); {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return AuthInvalid, true
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return NetworkTimeout, true
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable:
		return NetworkUnavailable, true
	case code == http.StatusInsufficientStorage:
		return MemoryExhausted, true
	}
	return Unknown, true
}
