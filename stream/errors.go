package stream

import "fmt"

// StreamReadError reports a read failure on one of the process streams other
// than end of file.
type StreamReadError struct {
	Cause  error
	Source Source
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Cause)
}

func (e *StreamReadError) Unwrap() error {
	return e.Cause
}
