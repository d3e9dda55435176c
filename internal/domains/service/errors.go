package service

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a typed failure returned by every domain operation. Code carries
// the failure kind using the gRPC code space so transports can map it
// without string matching.
type Error struct {
	Code codes.Code
	Op   string
	Msg  string
	// Upstream marks failures reported by an external provider.
	Upstream bool
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// GRPCStatus lets status.FromError and status.Code recover the kind.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Msg)
}

// Code returns the kind of err: codes.OK for nil, codes.Unknown for errors
// not produced by this package.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codes.Unknown
}

// IsUpstream reports whether err is a provider failure.
func IsUpstream(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Upstream
}

func newError(code codes.Code, op, msg string) *Error {
	return &Error{Code: code, Op: op, Msg: msg}
}

func wrapError(code codes.Code, op, msg string, err error) *Error {
	return &Error{Code: code, Op: op, Msg: msg, Err: err}
}

func upstreamError(code codes.Code, op, msg string, err error) *Error {
	return &Error{Code: code, Op: op, Msg: msg, Upstream: true, Err: err}
}
