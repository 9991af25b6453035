// Package asynchook decouples hook implementations from the cache hot path.
// Events are queued and delivered by worker goroutines; when the queue is
// full, events are dropped rather than blocking the caller.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := onetwo.New[string](onetwo.Options[string]{
//	    Name:  "gemini",
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/skaiphd/onetwo"
)

type Hooks struct {
	inner onetwo.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ onetwo.Hooks = (*Hooks)(nil)

func New(inner onetwo.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// enqueue never blocks; events are dropped under backpressure.
func (h *Hooks) enqueue(f func()) {
	select {
	case h.q <- f:
	default:
	}
}

func (h *Hooks) PutNewKey(key string)    { h.enqueue(func() { h.inner.PutNewKey(key) }) }
func (h *Hooks) PutNewSample(key string) { h.enqueue(func() { h.inner.PutNewSample(key) }) }
func (h *Hooks) PutRedundant(key string) { h.enqueue(func() { h.inner.PutRedundant(key) }) }
func (h *Hooks) PutOverwrote(key string) { h.enqueue(func() { h.inner.PutOverwrote(key) }) }
func (h *Hooks) GetHit(key string)       { h.enqueue(func() { h.inner.GetHit(key) }) }
func (h *Hooks) FlightShared(key string) { h.enqueue(func() { h.inner.FlightShared(key) }) }
func (h *Hooks) SnapshotWritten(path string, keys int) {
	h.enqueue(func() { h.inner.SnapshotWritten(path, keys) })
}
