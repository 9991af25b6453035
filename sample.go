package onetwo

// Sample identifies one stochastic sampling attempt for a cache key. The zero
// value means deterministic usage: a single canonical result suffices and
// reads resolve to the first value ever cached for the key.
//
// A present identity may be any string, including "". SampleID("") and the
// zero Sample are distinct: the former is a real sampling attempt, the latter
// is the absence of one.
type Sample struct {
	id string
	ok bool
}

// SampleID returns a present sampling identity.
func SampleID(id string) Sample { return Sample{id: id, ok: true} }

// Present reports whether s carries a sampling identity.
func (s Sample) Present() bool { return s.ok }

// ID returns the identity string. Only meaningful when Present.
func (s Sample) ID() string { return s.id }

func (s Sample) String() string {
	if !s.ok {
		return "<none>"
	}
	return s.id
}
