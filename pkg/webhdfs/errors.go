package webhdfs

import (
	"errors"
	"strings"
)

// Error codes classifying operation failures.
const (
	// CodeTransport covers failures below HTTP: dial, TLS, timeouts,
	// connection drops mid-transfer.
	CodeTransport = "E_TRANSPORT"

	// CodeClientIO covers failures inside the caller's own data handling:
	// the upload source or download sink returned an error.
	CodeClientIO = "E_CLIENT_IO"

	// CodeProtocol covers servers that break the operation contract, such
	// as a create redirect with no target location.
	CodeProtocol = "E_PROTOCOL"

	// CodeRemote covers application errors reported by the server in its
	// structured error envelope.
	CodeRemote = "E_REMOTE"

	// CodeUnexpectedStatus covers responses with the wrong status code and
	// no recognizable error envelope in the body.
	CodeUnexpectedStatus = "E_UNEXPECTED_STATUS"

	// CodeVerification covers replies with the right status code but an
	// unexpected body, such as a mutation answered {"boolean":false}.
	CodeVerification = "E_VERIFICATION"
)

// Error is the failure type returned by all Client operations.
type Error struct {
	Code       string // one of the Code constants above
	Op         string // operation name (CREATE, OPEN, ...)
	Path       string // remote path the operation targeted
	StatusCode int    // HTTP status, when one was observed
	Exception  string // server exception class, for CodeRemote
	Err        error  // underlying cause
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("webhdfs: ")
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteByte(' ')
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Code)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err carries an application error reported by
// the server, as opposed to a transport or client-side failure.
func IsRemoteError(err error) bool {
	var werr *Error
	return errors.As(err, &werr) && werr.Code == CodeRemote
}

// IsNotFound reports whether err is the server saying the path does not
// exist.
func IsNotFound(err error) bool {
	var werr *Error
	if !errors.As(err, &werr) {
		return false
	}
	return werr.Code == CodeRemote && werr.Exception == "FileNotFoundException"
}
