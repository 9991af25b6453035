// Package onetwo implements a memoization layer for expensive, possibly
// stochastic operations such as calls to a remote model endpoint. Results are
// kept in per-key value pools so that deterministic callers always see one
// canonical value, while sampled callers each get a stable, reproducible value
// drawn round-robin from the pool of concrete results accumulated so far.
//
// Components:
//   - Store[V]: owns the value pools, diagnostic counters, the in-flight key
//     set, and snapshot save/load.
//   - Sample: an opaque sampling identity; the zero value means
//     "deterministic, single canonical result".
//   - KeyMaker / DefaultKeyMaker: turns an operation name plus bound
//     arguments into one opaque cache key, with per-argument hash/drop
//     policies.
//   - CachedCall[V]: binds one operation to a store, decides hit/miss,
//     coalesces concurrent identical misses onto one invocation, and writes
//     results back. Failures are re-raised unchanged and never cached.
//   - codec.Codec[V]: (de)serializes pool values for snapshots.
//
// Typical use:
//
//	store, _ := onetwo.New[string](onetwo.Options[string]{Name: "gemini"})
//	call, _ := onetwo.Bind(backend, generate, onetwo.BindOptions{
//	    Name:    "generate_text",
//	    Params:  []onetwo.Param{{Name: "prompt"}},
//	    Sampled: true,
//	})
//	reply, err := call.CallSample(ctx, requestID, prompt)
//
// Snapshots:
//
//	err := store.WriteToDirectory(dir)                 // refuses to overwrite
//	copy, err := onetwo.Load[string](path, true, opts) // frozen assignments
package onetwo
