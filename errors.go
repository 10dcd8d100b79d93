package castore

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge  = errors.New("castore: payload too large")
	ErrDuplicateContent = errors.New("castore: duplicate content")
	ErrNotFound         = errors.New("castore: not found")
	ErrClosed           = errors.New("castore: store closed")
)

// PayloadTooLargeError reports a payload over the store's size limit.
// It matches ErrPayloadTooLarge with errors.Is.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("castore: payload of %d bytes exceeds size limit of %d bytes", e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}
