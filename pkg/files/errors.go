package files

import "errors"

// Error represents a domain error from listing, reading or writing files.
//
// The HTTP layer translates Code into a status code; Message is safe to
// return to clients.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path related to the error (if applicable)
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a files error.
type ErrorCode int

const (
	// ErrDirectoryUnreadable indicates the requested directory does not exist,
	// cannot be listed, or lies outside the site root
	ErrDirectoryUnreadable ErrorCode = iota

	// ErrFileUnreadable indicates a file selected for a page could not be read
	ErrFileUnreadable

	// ErrUnsupportedFileType indicates an upload carried an unknown content kind
	ErrUnsupportedFileType

	// ErrFileWriteFailure indicates an upload could not be persisted
	ErrFileWriteFailure
)

func (c ErrorCode) String() string {
	switch c {
	case ErrDirectoryUnreadable:
		return "DirectoryUnreadable"
	case ErrFileUnreadable:
		return "FileUnreadable"
	case ErrUnsupportedFileType:
		return "UnsupportedFileType"
	case ErrFileWriteFailure:
		return "FileWriteFailure"
	default:
		return "Unknown"
	}
}

// NewError builds an *Error.
func NewError(code ErrorCode, message, path string, cause error) *Error {
	return &Error{Code: code, Message: message, Path: path, Err: cause}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}
