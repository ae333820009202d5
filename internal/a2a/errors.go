package a2a

import (
	"context"
	"errors"
	"fmt"
)

// ProtocolError reports a transport or protocol failure of a single Send or
// FetchCard call. It is never returned for a task that merely did not complete.
type ProtocolError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s failed: %d, %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return e.Op + " failed"
	}
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call gave up waiting on the peer.
func (e *ProtocolError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
