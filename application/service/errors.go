// Package service implements the updater index core, the search
// service and the event dispatcher.
package service

import "errors"

// Transport-independent error kinds. Handlers map these to HTTP
// statuses; services wrap collaborator failures into exactly one kind.
var (
	// ErrNotFound: the catalog returned nothing, or the product is
	// absent from the index where required.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable: the catalog is unreachable or no snapshot has
	// been written yet.
	ErrUnavailable = errors.New("unavailable")

	// ErrConflict: the snapshot pair is torn or failed invariant
	// validation at load.
	ErrConflict = errors.New("snapshot conflict")

	// ErrInternal: embedding, vector index or serialization failure.
	ErrInternal = errors.New("internal error")

	// ErrBadRequest: malformed request parameter.
	ErrBadRequest = errors.New("bad request")
)
