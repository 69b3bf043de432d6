package video

import "fmt"

type ErrorKind string

const EncodeFailed ErrorKind = "encode_failed"

// RenderError describes a failed render of one profile.
// ExitCode is -1 when the encoder did not exit on its own.
type RenderError struct {
	Kind     ErrorKind
	Profile  string
	ExitCode int
	Err      error
}

func (e *RenderError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("render %s (%s): exit code %d: %v", e.Profile, e.Kind, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("render %s (%s): %v", e.Profile, e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
