package cerr

import (
	"errors"
	"fmt"

	"github.com/itsthekvd/kushlapp-engine/pkg/storage"
)

// WrapStorageReadError maps a storage read failure to a client-facing
// error: missing documents become NotFound named after the entity,
// everything else is an opaque Internal.
func WrapStorageReadError(entity string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, entity+" not found", err)
	}
	return NewError(Internal, "server error", fmt.Errorf("read %s: %w", entity, err))
}

func WrapStorageWriteError(entity string, err error) error {
	return NewError(Internal, "server error", fmt.Errorf("write %s: %w", entity, err))
}

func WrapStorageDeleteError(entity string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, entity+" not found", err)
	}
	return NewError(Internal, "server error", fmt.Errorf("delete %s: %w", entity, err))
}
