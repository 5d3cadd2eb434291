package archive

import (
	"context"
	"errors"
)

// ErrArchive is returned when a durable copy of the media cannot be stored.
// The item is not marked processed and becomes eligible for retry.
var ErrArchive = errors.New("archive: failed to store media")

// Archiver persists a durable copy of media and returns a stable,
// shareable reference to it.
type Archiver interface {
	Store(ctx context.Context, data []byte, name, description string) (string, error)
}
