package errcode

import "errors"

// Code is a stable, client-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	NotFound          Code = "not_found"
	WouldBlock        Code = "would_block"
	Interrupted       Code = "interrupted"
	IOError           Code = "io_error"
	InvalidParams     Code = "invalid_params"
	UnknownCommand    Code = "unknown_command"
	MultipleInstances Code = "multiple_instances"
	NotPresent        Code = "not_present"
	Closed            Code = "closed"

	Error Code = "error" // generic fallback
)

// E keeps an operation name and a cause alongside the code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches a code and operation to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch x := e.(type) {
		case Code:
			return x
		case coder:
			return x.Code()
		}
	}
	return Error
}
