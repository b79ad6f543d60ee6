package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalid           = errors.New("invalid")
	ErrTooMany           = errors.New("too many requests")
	ErrInternal          = errors.New("internal")
	ErrFileNotFound      = errors.New("file not found")
	ErrNotAFile          = errors.New("path is not a file")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrMemoryDisabled    = errors.New("memory store not configured")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrUnknownUnit)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrNotAFile)
}
