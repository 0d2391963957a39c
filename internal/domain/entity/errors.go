package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode общий признак ошибки декодирования кадра.
	ErrDecode = errors.New("decode error")
	// ErrMalformedBoundingBox общий признак битого сообщения с рамками.
	ErrMalformedBoundingBox = errors.New("malformed bounding box")
	// ErrIndexOutOfRange возвращается при обращении за пределы массива рамок.
	ErrIndexOutOfRange = errors.New("bounding box index out of range")
)

// DecodeError возвращается, когда кодек не принял данные кадра.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode image: %s: %v", e.Reason, e.Err)
	}
	return "decode image: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// MalformedBoundingBoxError возвращается для сообщения с рамками, не соответствующего схеме.
type MalformedBoundingBoxError struct {
	Reason string
}

func (e *MalformedBoundingBoxError) Error() string {
	return "malformed bounding box: " + e.Reason
}

func (e *MalformedBoundingBoxError) Is(target error) bool { return target == ErrMalformedBoundingBox }

// NewDecodeError создаёт ошибку декодирования с причиной.
func NewDecodeError(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

// NewMalformedBoundingBoxError создаёт ошибку формата рамок.
func NewMalformedBoundingBoxError(format string, args ...any) error {
	return &MalformedBoundingBoxError{Reason: fmt.Sprintf(format, args...)}
}
