package netlist

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyNetlist = errors.New("netlist is empty")
	ErrBinaryInput  = errors.New("netlist is not text (NUL byte or invalid UTF-8)")
)

// MalformedNumberError is returned when a numeric token does not parse.
type MalformedNumberError struct {
	Token string
}

func (e *MalformedNumberError) Error() string {
	return fmt.Sprintf("malformed number %q", e.Token)
}

// UnrecognizedLineError is returned for a line that matches no element
// prefix or known directive, or whose structure cannot be read.
type UnrecognizedLineError struct {
	Text   string
	Reason string
}

func (e *UnrecognizedLineError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unrecognized line %q: %s", e.Text, e.Reason)
	}
	return fmt.Sprintf("unrecognized line %q", e.Text)
}

// LineError ties a per-line failure to its position in the source.
type LineError struct {
	Line      int
	Name      string // element or model name, else the leading token
	Directive string // lower-cased directive such as ".model", empty for elements
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Name, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
