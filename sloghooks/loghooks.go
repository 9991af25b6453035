// Package sloghooks logs onetwo cache events through log/slog, with
// per-event sampling so hot-path events (hits, appends) do not flood logs.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/skaiphd/onetwo"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery    uint64
	SampleEvery uint64 // applies to pool appends (new-sample events)
	// Optional key redactor. Defaults to SHA-256 prefix; cache keys embed
	// call arguments and may carry user content.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr    atomic.Uint64
	sampleCtr atomic.Uint64
}

var _ onetwo.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) PutNewKey(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("onetwo.put_new_key", "key", h.redact(key))
}

func (h *Hooks) PutNewSample(key string) {
	if h.l == nil || !sample(h.opts.SampleEvery, &h.sampleCtr) {
		return
	}
	h.l.Debug("onetwo.put_new_sample", "key", h.redact(key))
}

func (h *Hooks) PutRedundant(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("onetwo.put_redundant", "key", h.redact(key))
}

func (h *Hooks) PutOverwrote(key string) {
	if h.l == nil {
		return
	}
	// An overwrite means an identity produced a different value than the one
	// already mapped; worth surfacing above Debug.
	h.l.Info("onetwo.put_overwrote", "key", h.redact(key))
}

func (h *Hooks) GetHit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("onetwo.get_hit", "key", h.redact(key))
}

func (h *Hooks) FlightShared(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("onetwo.flight_shared", "key", h.redact(key))
}

func (h *Hooks) SnapshotWritten(path string, keys int) {
	if h.l == nil {
		return
	}
	h.l.Info("onetwo.snapshot_written", "path", path, "keys", keys)
}
