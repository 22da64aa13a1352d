// Package msperr defines the error sum type shared by every protocol
// package, mirroring the four-variant error enum in the reference
// implementation's error.rs.
package msperr

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind classifies an Err into one of four buckets, matching error.rs's
// MspErr enum: malformed wire data, an internal/unexpected failure, an
// unsupported code path, or a transport-level I/O error.
type Kind int

const (
	// DataErr means the peer sent data that doesn't parse as the protocol
	// requires (bad magic, wrong length, unparsable field).
	DataErr Kind = iota
	// InternalErr means something failed that isn't the peer's fault:
	// clock reads, string conversions, a bug surfacing as a panic-free
	// error instead.
	InternalErr
	// NoImplErr means the wire data is well-formed but describes a case
	// this library intentionally doesn't support (e.g. an IPv6 LAN
	// broadcast source).
	NoImplErr
	// IoErr wraps a transport failure: connect, read, or write.
	IoErr
)

func (k Kind) String() string {
	switch k {
	case DataErr:
		return "data error"
	case InternalErr:
		return "internal error"
	case NoImplErr:
		return "not implemented"
	case IoErr:
		return "io error"
	default:
		return "unknown error kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Err is MSP's error type. It always carries a Kind and a message, and may
// wrap an underlying cause.
type Err struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Err) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Err) Unwrap() error { return e.Cause }

// Is reports whether target is a Kind sentinel (see Sentinel) for the same
// Kind, so callers can write errors.Is(err, msperr.Sentinel(msperr.IoErr))
// style checks.
func (e *Err) Is(target error) bool {
	var k kindSentinel
	if errors.As(target, &k) {
		return e.Kind == Kind(k)
	}
	return false
}

type kindSentinel Kind

func (kindSentinel) Error() string { return Kind(0).String() }

// Sentinel returns a value usable with errors.Is(err, msperr.Sentinel(Kind))
// to test an Err's Kind without constructing a full Err.
func Sentinel(k Kind) error { return kindSentinel(k) }

// New builds a *Err of the given kind.
func New(k Kind, msg string) *Err {
	return &Err{Kind: k, Msg: msg}
}

// Wrap builds a *Err of the given kind around an underlying cause.
func Wrap(k Kind, msg string, cause error) *Err {
	return &Err{Kind: k, Msg: msg, Cause: cause}
}

// FromIOError classifies a transport-layer error as an IoErr, matching
// error.rs's `impl From<io::Error> for MspErr`.
func FromIOError(err error) *Err {
	return Wrap(IoErr, "io failure", err)
}

// FromParseError classifies a failure to parse a numeric field as a
// DataErr: the input did not parse as the protocol requires.
func FromParseError(err error) *Err {
	return Wrap(DataErr, "parse failure", err)
}
