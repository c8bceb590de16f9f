// Package store persists the filename/payload records of encoded images.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record has the requested id.
var ErrNotFound = errors.New("store: record not found")

// Record is a stored encoded image: where it was written and the text hidden in it.
type Record struct {
	ID       int64  `json:"id" msgpack:"id"`
	Filename string `json:"filename" msgpack:"filename"`
	Data     string `json:"data" msgpack:"data"`
}

// Store persists Records.
type Store interface {
	// Create stores a new record and returns it with its assigned id.
	Create(ctx context.Context, filename, data string) (Record, error)
	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (Record, error)
	// Close releases the store's resources.
	Close()
}
