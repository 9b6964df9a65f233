package buftree

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the tree, in increasing severity. The tree never
// recovers from any of these internally; all three propagate to the caller.
var (
	// ErrStorage wraps a read/write/seek failure from the underlying Store.
	ErrStorage = errors.New("buftree: storage failure")

	// ErrCorruption signals that a node's self-offset or length disagrees
	// with what was requested, i.e. the store is not a well-formed tree.
	ErrCorruption = errors.New("buftree: corruption")

	// ErrPrecondition signals Open was called against a store that was not
	// produced by a BufTree with the same order and key width.
	ErrPrecondition = errors.New("buftree: precondition violation")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}

func corruptionErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruption, fmt.Sprintf(format, args...))
}

func preconditionErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
