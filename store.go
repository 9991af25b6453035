package onetwo

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// pool is the per-key state: an append-only value sequence, the stable
// sampling-identity-to-index assignments, and how many identities have been
// assigned so far. An assignment never moves once made, even as the sequence
// grows; the value at an assigned index may still be overwritten.
type pool[V any] struct {
	values  []V
	samples map[string]int
	used    int
}

// Counters are the observable per-store diagnostics. Each write lands in
// exactly one of the four write classes; Hits counts successful reads.
type Counters struct {
	NewKeys    uint64 // first value cached under an unseen key
	NewSamples uint64 // value appended to an existing key's pool
	Redundant  uint64 // mapped identity re-wrote the identical value
	Overwrites uint64 // mapped identity replaced the value at its index
	Hits       uint64 // reads that resolved to a cached value
}

// Store holds all value pools for one logical cache. Construct with New or
// Load and pass by reference to every binding that should share it; there is
// no ambient instance.
//
// All pool mutations run under one mutex: the check-then-act sequences in Put
// and Get (seen/unseen, mapped/unmapped, append-vs-overwrite) are atomic with
// respect to each other. Blocking work never happens under the lock.
type Store[V any] struct {
	name  string
	codec Codec[V]
	log   Logger
	hooks Hooks
	eq    func(a, b V) bool

	mu    sync.Mutex
	pools map[string]*pool[V]
	ctr   Counters

	flight   singleflight.Group
	flMu     sync.Mutex
	inFlight map[string]int
}

// Get returns the value cached for (key, sm), if any.
//
// With the zero Sample it returns the first value ever cached for the key.
// A mapped identity resolves to its assigned index; a novel identity is
// assigned an index round-robin over the current pool and keeps it for the
// lifetime of the store. Keys never written always miss, whatever the
// identity.
func (s *Store[V]) Get(key string, sm Sample) (V, bool) {
	var zero V
	s.mu.Lock()
	p, ok := s.pools[key]
	if !ok {
		s.mu.Unlock()
		return zero, false
	}
	var v V
	switch {
	case !sm.ok:
		v = p.values[0]
	default:
		idx, mapped := p.samples[sm.id]
		if !mapped {
			idx = p.used % len(p.values)
			p.samples[sm.id] = idx
			p.used++
		}
		v = p.values[idx]
	}
	s.ctr.Hits++
	s.mu.Unlock()

	s.hooks.GetHit(key)
	s.log.Debug("cache hit", Fields{"cache": s.name, "key": key, "sample": sm.String()})
	return v, true
}

// Put records one produced value for (key, sm).
//
// Unseen key: a fresh pool holding only v; a present identity is mapped to
// index 0. Known key with an absent or unmapped identity: v is appended, and
// an unmapped identity is assigned round-robin over the pool as it was before
// the append (the fresh value only grows the pool for future assignments).
// Known key with a mapped identity: the write is redundant when v equals the
// value at the mapped index, otherwise it overwrites that index in place.
func (s *Store[V]) Put(key string, sm Sample, v V) {
	s.mu.Lock()
	p, ok := s.pools[key]
	if !ok {
		p = &pool[V]{values: []V{v}, samples: make(map[string]int)}
		if sm.ok {
			p.samples[sm.id] = 0
			p.used = 1
		}
		s.pools[key] = p
		s.ctr.NewKeys++
		s.mu.Unlock()

		s.hooks.PutNewKey(key)
		s.log.Debug("cached new key", Fields{"cache": s.name, "key": key, "sample": sm.String()})
		return
	}

	idx, mapped := -1, false
	if sm.ok {
		idx, mapped = p.samples[sm.id]
	}
	if !mapped {
		if sm.ok {
			p.samples[sm.id] = p.used % len(p.values)
			p.used++
		}
		p.values = append(p.values, v)
		s.ctr.NewSamples++
		s.mu.Unlock()

		s.hooks.PutNewSample(key)
		s.log.Debug("appended sample", Fields{"cache": s.name, "key": key, "sample": sm.String()})
		return
	}

	if s.eq(p.values[idx], v) {
		s.ctr.Redundant++
		s.mu.Unlock()

		s.hooks.PutRedundant(key)
		return
	}
	p.values[idx] = v
	s.ctr.Overwrites++
	s.mu.Unlock()

	s.hooks.PutOverwrote(key)
	s.log.Debug("overwrote sample", Fields{"cache": s.name, "key": key, "sample": sm.String(), "index": idx})
}

// Counters returns a snapshot of the diagnostic counters.
func (s *Store[V]) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctr
}

// Len returns the number of distinct keys in the store.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pools)
}

// PoolLen returns the number of values accumulated for key.
func (s *Store[V]) PoolLen(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pools[key]; ok {
		return len(p.values)
	}
	return 0
}

// InFlightKeys returns the keys whose computation is currently in progress.
func (s *Store[V]) InFlightKeys() []string {
	s.flMu.Lock()
	defer s.flMu.Unlock()
	keys := make([]string, 0, len(s.inFlight))
	for k := range s.inFlight {
		keys = append(keys, k)
	}
	return keys
}

func (s *Store[V]) markInFlight(key string) {
	s.flMu.Lock()
	s.inFlight[key]++
	s.flMu.Unlock()
}

func (s *Store[V]) clearInFlight(key string) {
	s.flMu.Lock()
	if s.inFlight[key] <= 1 {
		delete(s.inFlight, key)
	} else {
		s.inFlight[key]--
	}
	s.flMu.Unlock()
}

// flightKey scopes coalescing to one logical call: deterministic calls share
// one flight per key, sampled calls one flight per (key, identity). The
// identity is length-prefixed so ids and keys containing the separator cannot
// alias each other.
func flightKey(key string, sm Sample) string {
	if !sm.ok {
		return "d\x1f" + key
	}
	return "s" + strconv.Itoa(len(sm.id)) + "\x1f" + sm.id + key
}

// fetch returns the cached value for (key, sm) or computes it exactly once,
// coalescing concurrent identical misses onto a single invocation. compute
// returns the canonical value plus any extra pool values; extras are written
// under the absent identity. A compute failure is returned to every waiter
// unchanged, nothing is cached, and the in-flight marker is always cleared.
//
// Cancellation abandons only the cancelled caller. The computation runs on a
// context detached from every caller, including the one that started it, so
// an initiator's cancellation cannot fail the flight out from under the
// remaining waiters.
func (s *Store[V]) fetch(ctx context.Context, key string, sm Sample, compute func(context.Context) (V, []V, error)) (V, error) {
	var zero V
	if v, ok := s.Get(key, sm); ok {
		return v, nil
	}

	// The flight outlives any single caller; only values carry over.
	flightCtx := context.WithoutCancel(ctx)

	ch := s.flight.DoChan(flightKey(key, sm), func() (any, error) {
		// Re-check under the flight so read-then-invoke is atomic per call.
		if v, ok := s.Get(key, sm); ok {
			return v, nil
		}
		s.markInFlight(key)
		defer s.clearInFlight(key)

		v, extras, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		s.Put(key, sm, v)
		for _, e := range extras {
			s.Put(key, Sample{}, e)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			s.hooks.FlightShared(key)
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
