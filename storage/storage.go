// Package storage keeps uploaded avatar images and returns the URL they are
// served from.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidName = errors.New("invalid object name")

type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}
