package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Graph operations.
var (
	// ErrExpanded is returned when a mutating operation runs after Expand.
	ErrExpanded = errors.New("graph already expanded")

	// ErrDuplicateNode is returned when a callable or method declaration is
	// registered twice under the same ID.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnknownDecl is returned when an implementation link or a dynamic
	// call edge names a method declaration that was never registered.
	ErrUnknownDecl = errors.New("unknown method declaration")

	// ErrUnknownCallable is returned by Check when an edge endpoint is not a
	// registered callable.
	ErrUnknownCallable = errors.New("unknown callable")
)

// EdgeError reports an edge that failed validation.
type EdgeError struct {
	From NodeID
	To   NodeID
	Err  error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge %d -> %d: %v", e.From, e.To, e.Err)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}
