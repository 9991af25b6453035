package onetwo

import (
	"context"
	"fmt"
	"slices"
)

// CacheEnabled is the capability an object must expose before operations on
// it can be bound to a cache: access to a Store plus a caching-disabled flag.
// Bindings on a disabled host skip all cache interaction and just run the
// operation.
type CacheEnabled[V any] interface {
	CacheStore() *Store[V]
	CachingDisabled() bool
}

// Stream is a lazy, finite, non-restartable sequence of partial updates
// terminating in a final value. Next returns final=true exactly once, with
// the finished value; the stream must not be advanced after that.
type Stream[V any] interface {
	Next(ctx context.Context) (v V, final bool, err error)
}

// Reply is the outcome of one operation invocation: either an immediate
// Value, or a Stream the wrapper drains to obtain the final value. Only the
// final value is ever cached; partial updates are not, and a cache hit never
// replays them.
//
// Extras carries additional plausible results that pre-populate the value
// pool for the same key. It is only honored on bindings declared with
// ExtraReplies.
type Reply[V any] struct {
	Value  V
	Extras []V
	Stream Stream[V]
}

// Final wraps an immediate result.
func Final[V any](v V) Reply[V] { return Reply[V]{Value: v} }

// WithExtras wraps a canonical result plus extra pool values. The extras
// slice is non-nil even when empty, satisfying the ExtraReplies contract.
func WithExtras[V any](v V, extras ...V) Reply[V] {
	if extras == nil {
		extras = []V{}
	}
	return Reply[V]{Value: v, Extras: extras}
}

// Streaming wraps a partial-update producer.
func Streaming[V any](s Stream[V]) Reply[V] { return Reply[V]{Stream: s} }

// Op is the operation contract the wrapper consumes: given bound arguments,
// eventually yield one final value or fail.
type Op[V any] func(ctx context.Context, args []Arg) (Reply[V], error)

// BindOptions configure one operation binding.
type BindOptions struct {
	// Name identifies the operation inside cache keys. Required.
	Name string

	// Params declares the operation's parameters in call order. Positional
	// call values are resolved against it; omitted optional parameters are
	// bound to their defaults before key construction.
	Params []Param

	// Variadic collects surplus positional values into one ordered "args"
	// field of the key. Without it, surplus values are an error.
	Variadic bool

	// Sampled marks the operation as intentionally non-deterministic: each
	// call carries a sampling identity and resolves against the key's value
	// pool instead of the single canonical slot.
	Sampled bool

	// ExtraReplies requires the operation to return extra plausible results
	// alongside the canonical one; they seed the pool for the same key.
	ExtraReplies bool

	// KeyMaker overrides the key strategy. nil => DefaultKeyMaker{}.
	KeyMaker KeyMaker
}

// variadicField names the key field holding surplus positional values.
const variadicField = "args"

// CachedCall binds one operation to one host's cache store. Create once per
// operation and reuse across calls; it is safe for concurrent use.
type CachedCall[V any] struct {
	name     string
	host     CacheEnabled[V]
	op       Op[V]
	keys     KeyMaker
	params   []Param
	variadic bool
	sampled  bool
	extra    bool
}

// Bind associates op with host's cache store. Configuration problems - a
// missing capability, an unnamed binding, conflicting key policies, bad
// parameter declarations - fail here, before any call is made.
func Bind[V any](host CacheEnabled[V], op Op[V], opts BindOptions) (*CachedCall[V], error) {
	if op == nil {
		return nil, fmt.Errorf("onetwo: operation is required")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("onetwo: binding name is required")
	}
	if host == nil {
		return nil, fmt.Errorf("onetwo: host does not provide the caching capability")
	}
	if host.CacheStore() == nil && !host.CachingDisabled() {
		return nil, fmt.Errorf("onetwo: host has no cache store and caching is not disabled")
	}

	seen := make(map[string]struct{}, len(opts.Params))
	for _, p := range opts.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("onetwo: binding %q: parameter with empty name", opts.Name)
		}
		if p.Name == variadicField && opts.Variadic {
			return nil, fmt.Errorf("onetwo: binding %q: parameter %q collides with the variadic field", opts.Name, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("onetwo: binding %q: duplicate parameter %q", opts.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	km := opts.KeyMaker
	if km == nil {
		km = DefaultKeyMaker{}
	}
	switch m := km.(type) {
	case DefaultKeyMaker:
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("onetwo: binding %q: %w", opts.Name, err)
		}
	case *DefaultKeyMaker:
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("onetwo: binding %q: %w", opts.Name, err)
		}
	}

	return &CachedCall[V]{
		name:     opts.Name,
		host:     host,
		op:       op,
		keys:     km,
		params:   slices.Clone(opts.Params),
		variadic: opts.Variadic,
		sampled:  opts.Sampled,
		extra:    opts.ExtraReplies,
	}, nil
}

// Call runs the deterministic path: one canonical value per key. On a hit the
// operation is not invoked; on a miss it runs once, its result is cached, and
// concurrent identical misses coalesce onto that single invocation.
func (cc *CachedCall[V]) Call(ctx context.Context, pos ...any) (V, error) {
	return cc.call(ctx, Sample{}, pos)
}

// CallSample runs the stochastic path with a caller-supplied sampling
// identity. The identity resolves to a stable pool value for the lifetime of
// the store, so repeated identical sampled calls are reproducible.
func (cc *CachedCall[V]) CallSample(ctx context.Context, sampleID string, pos ...any) (V, error) {
	if !cc.sampled {
		var zero V
		return zero, fmt.Errorf("onetwo: operation %q: %w", cc.name, ErrNotSampled)
	}
	return cc.call(ctx, SampleID(sampleID), pos)
}

func (cc *CachedCall[V]) call(ctx context.Context, sm Sample, pos []any) (V, error) {
	var zero V
	args, err := cc.bindArgs(pos)
	if err != nil {
		return zero, err
	}

	if cc.host.CachingDisabled() {
		v, _, err := cc.invoke(ctx, args)
		return v, err
	}

	key, err := cc.keys.Key(cc.name, args)
	if err != nil {
		return zero, err
	}
	return cc.host.CacheStore().fetch(ctx, key, sm, func(ctx context.Context) (V, []V, error) {
		return cc.invoke(ctx, args)
	})
}

// invoke runs the operation and reduces its reply to the final value plus any
// extras to cache. The ExtraReplies contract is checked before the caller
// gets a chance to mutate the cache.
func (cc *CachedCall[V]) invoke(ctx context.Context, args []Arg) (V, []V, error) {
	var zero V
	r, err := cc.op(ctx, args)
	if err != nil {
		return zero, nil, err
	}
	if cc.extra && r.Extras == nil {
		return zero, nil, fmt.Errorf("onetwo: operation %q: %w", cc.name, ErrNoExtraReplies)
	}
	if r.Stream != nil {
		v, err := drain(ctx, r.Stream)
		if err != nil {
			return zero, nil, err
		}
		r.Value = v
	}
	if !cc.extra {
		return r.Value, nil, nil
	}
	return r.Value, r.Extras, nil
}

func (cc *CachedCall[V]) bindArgs(pos []any) ([]Arg, error) {
	if len(pos) > len(cc.params) && !cc.variadic {
		return nil, fmt.Errorf("onetwo: operation %q: %d arguments for %d parameters",
			cc.name, len(pos), len(cc.params))
	}
	args := make([]Arg, 0, len(cc.params)+1)
	for i, p := range cc.params {
		switch {
		case i < len(pos):
			args = append(args, Arg{Name: p.Name, Value: pos[i]})
		case p.Optional:
			args = append(args, Arg{Name: p.Name, Value: p.Default})
		default:
			return nil, fmt.Errorf("onetwo: operation %q: missing argument %q", cc.name, p.Name)
		}
	}
	if rest := pos[min(len(pos), len(cc.params)):]; len(rest) > 0 {
		args = append(args, Arg{Name: variadicField, Value: slices.Clone(rest)})
	}
	return args, nil
}

func drain[V any](ctx context.Context, s Stream[V]) (V, error) {
	for {
		v, final, err := s.Next(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		if final {
			return v, nil
		}
	}
}
