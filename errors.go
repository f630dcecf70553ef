package nkdvprep

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when referenced node or edge is absent from the graph
	ErrNotFound = errors.New("not found")
	// ErrMalformedInput is returned for rows which can't be parsed
	ErrMalformedInput = errors.New("malformed input")
	// ErrGeometryDegenerate is returned for geometries which can't be used for projection (e.g. zero-length chord)
	ErrGeometryDegenerate = errors.New("degenerate geometry")
	// ErrIndexEmpty is returned when nearest edge query is made against index without edges
	ErrIndexEmpty = errors.New("spatial index is empty")
	// ErrIOFailure is returned when data can't be read or written
	ErrIOFailure = errors.New("i/o failure")
)

// kindError keeps both error kind and its underlying cause in the chain, so errors.Is works for each of them
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// withKind marks cause with given kind. Returns nil for nil cause
func withKind(kind, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, kind) {
		return cause
	}
	return &kindError{kind: kind, cause: cause}
}
