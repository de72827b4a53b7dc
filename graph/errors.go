package graph

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every structural graph error.
var ErrMalformed = errors.New("graph: malformed graph")

// Error describes a structural violation in a graph document. Index is the
// position of the offending node or edge, or -1 for document-level problems.
type Error struct {
	Source string // file path or other origin label
	Field  string // "nodes", "edges" or "" for the document itself
	Index  int
	Reason string
}

func (e *Error) Error() string {
	src := e.Source
	if src == "" {
		src = "graph"
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", src, e.Reason)
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %s", src, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s[%d]: %s", src, e.Field, e.Index, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformed).
func (e *Error) Unwrap() error {
	return ErrMalformed
}

func docError(source, reason string) *Error {
	return &Error{Source: source, Index: -1, Reason: reason}
}

func nodeError(source string, i int, reason string) *Error {
	return &Error{Source: source, Field: "nodes", Index: i, Reason: reason}
}

func edgeError(source string, i int, reason string) *Error {
	return &Error{Source: source, Field: "edges", Index: i, Reason: reason}
}
