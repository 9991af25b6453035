package onetwo

import (
	"fmt"
	"reflect"

	c "github.com/skaiphd/onetwo/codec"
)

// Codec re-exports codec.Codec for use in Options.
type Codec[V any] = c.Codec[V]

// Options tune a Store. Only Name is required; others have sensible defaults.
type Options[V any] struct {
	// Name is the logical cache name; the snapshot filename is derived from
	// it. Required.
	Name string

	// Codec serializes pool values for snapshots. nil => codec.JSON[V].
	Codec Codec[V]

	// Equal decides whether a repeated write for an already-mapped sampling
	// identity is redundant or an overwrite. nil => reflect.DeepEqual.
	Equal func(a, b V) bool

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// New returns an empty Store.
func New[V any](opts Options[V]) (*Store[V], error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("onetwo: cache name is required")
	}

	s := &Store[V]{
		name:     opts.Name,
		pools:    make(map[string]*pool[V]),
		inFlight: make(map[string]int),
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Codec != nil {
		s.codec = opts.Codec
	} else {
		s.codec = c.JSON[V]{}
	}
	if opts.Equal != nil {
		s.eq = opts.Equal
	} else {
		s.eq = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}
	return s, nil
}
