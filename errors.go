package godbf

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidNumber   = errors.New("invalid numeric text")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidDateTime = errors.New("invalid date-time")
	ErrTruncatedRecord = errors.New("truncated record")
	ErrValueOverflow   = errors.New("value does not fit field length")
	ErrMemoUnsupported = errors.New("memo content is not supported")
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrFileChanged     = errors.New("file has changed")
)

// FormatError reports a buffer that cannot be decoded as a DBF table.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("dbf format error at offset %d: %s", e.Offset, e.Msg)
}

// FieldError reports a field that strict mode refused to decode or encode.
type FieldError struct {
	Record int
	Field  string
	Type   byte
	Raw    string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d field %s (%c) %q: %v", e.Record, e.Field, e.Type, e.Raw, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
