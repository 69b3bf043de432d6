package script

import "fmt"

type ErrorKind string

const (
	EmptySource       ErrorKind = "empty source"
	UnsupportedFormat ErrorKind = "unsupported format"
	MalformedBlock    ErrorKind = "malformed block"
)

// ParseError reports a structural problem in the input script.
// Block is the 0-based subtitle block, or -1 when the error is not tied to one.
type ParseError struct {
	Kind   ErrorKind
	Block  int
	Detail string
}

func (e *ParseError) Error() string {
	msg := "parse: " + string(e.Kind)
	if e.Block >= 0 {
		msg += fmt.Sprintf(" (block %d)", e.Block+1)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
