package onetwo

import (
	"errors"
	"fmt"
)

var (
	// ErrSnapshotExists is returned by WriteToDirectory when the target file
	// is already present. Snapshots are never silently overwritten.
	ErrSnapshotExists = errors.New("onetwo: snapshot file already exists")

	// ErrCorruptSnapshot is returned by Load when the file cannot be decoded.
	ErrCorruptSnapshot = errors.New("onetwo: corrupt snapshot")

	// ErrNoExtraReplies is returned when a binding declared with ExtraReplies
	// receives a reply that carries no extra values. Nothing is cached.
	ErrNoExtraReplies = errors.New("onetwo: operation bound with extra replies returned none")

	// ErrNotSampled is returned by CallSample on a binding whose operation
	// was not declared stochastic.
	ErrNotSampled = errors.New("onetwo: binding is not sampled")
)

// SnapshotError wraps a failed snapshot save or load with its file path.
type SnapshotError struct {
	Path string
	Err  error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("onetwo: snapshot %q: %v", e.Path, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }
