package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error carries exactly one of these as its Kind, so
// callers can branch with errors.Is.
var (
	ErrMissingMetadata      = errors.New("dataset: missing dataset.json")
	ErrMissingImages        = errors.New("dataset: missing images/ directory")
	ErrMissingGraphs        = errors.New("dataset: missing graphs/ directory")
	ErrInvalidMetadata      = errors.New("dataset: invalid dataset.json")
	ErrMissingSchemaVersion = errors.New("dataset: missing schema_version")
	ErrUnsupportedSchema    = errors.New("dataset: unsupported schema_version")
	ErrPairMismatch         = errors.New("dataset: image/graph id mismatch")
	ErrDuplicateImage       = errors.New("dataset: multiple images share a sample id")
	ErrUnknownSplitID       = errors.New("dataset: split references unknown sample id")
	ErrDuplicateSplitID     = errors.New("dataset: sample id appears in more than one split")
	ErrUnassigned           = errors.New("dataset: sample ids not assigned to any split")
	ErrInvalidGraph         = errors.New("dataset: invalid graph")
	ErrBBoxOutOfBounds      = errors.New("dataset: bbox outside image bounds")
	ErrUnreadableImage      = errors.New("dataset: cannot read image header")
	ErrUnknownSplit         = errors.New("dataset: unknown split")
	ErrNotFound             = errors.New("dataset: reference not found")
	ErrInvalidRegistry      = errors.New("dataset: invalid registry mapping")
)

// maxListed caps the ids quoted in a single error message.
const maxListed = 20

// Error reports a violated dataset invariant together with the offending
// path and sample ids.
type Error struct {
	Kind   error
	Path   string
	IDs    []string
	Detail string
	Err    error // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " %v", e.IDs)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func capped(ids []string) []string {
	if len(ids) <= maxListed {
		return ids
	}
	return ids[:maxListed]
}
