package onetwo

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking. The store calls them on hot
// paths; wrap with hooks/async if an implementation may stall.
type Hooks interface {
	// A value was cached under a previously unseen key.
	PutNewKey(key string)

	// A value was appended to an existing key's pool.
	PutNewSample(key string)

	// A write for an already-mapped sampling identity repeated the stored
	// value; nothing changed.
	PutRedundant(key string)

	// A write for an already-mapped sampling identity replaced the value at
	// its index.
	PutOverwrote(key string)

	// A read resolved to a cached value.
	GetHit(key string)

	// A caller coalesced onto another caller's in-flight computation instead
	// of invoking the operation itself.
	FlightShared(key string)

	// A snapshot file was written. keys is the number of pools persisted.
	SnapshotWritten(path string, keys int)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) PutNewKey(string)            {}
func (NopHooks) PutNewSample(string)         {}
func (NopHooks) PutRedundant(string)         {}
func (NopHooks) PutOverwrote(string)         {}
func (NopHooks) GetHit(string)               {}
func (NopHooks) FlightShared(string)         {}
func (NopHooks) SnapshotWritten(string, int) {}
