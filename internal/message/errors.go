package message

import "fmt"

// ErrorMarker is the first argument of a reply that reports a failure.
// It is followed by an error code and a human readable message.
const ErrorMarker = "!error"

// Error codes carried in error replies.
const (
	CodeUnknownCommand  = "unknown_command"
	CodeInvalidArgument = "invalid_argument"
	CodePathEscape      = "path_escape"
	CodeNotFound        = "not_found"
	CodeNotDirectory    = "not_a_directory"
	CodeInternal        = "internal"
)

// RemoteError is an error reported by the other endpoint.
type RemoteError struct {
	Command Command
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Command, e.Code, e.Message)
}

// ErrorReply builds a reply to e that carries an error marker.
func (e Envelope) ErrorReply(code, msg string) Envelope {
	return e.Reply(ErrorMarker, code, msg)
}

// IsError reports whether e carries an error marker.
func (e Envelope) IsError() bool {
	return len(e.Arguments) > 0 && e.Arguments[0] == ErrorMarker
}

// Err returns the RemoteError carried by e, or nil.
func (e Envelope) Err() error {
	if !e.IsError() {
		return nil
	}
	re := &RemoteError{Command: e.Command}
	if len(e.Arguments) > 1 {
		re.Code = e.Arguments[1]
	}
	if len(e.Arguments) > 2 {
		re.Message = e.Arguments[2]
	}
	return re
}
