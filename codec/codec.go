// Package codec defines the value serialization used by onetwo snapshots.
// A Codec must round-trip: Decode(Encode(v)) yields a value equivalent to v.
// The snapshot wire envelope frames each encoded value independently, so any
// codec (textual or binary) works without further escaping.
package codec

// Codec encodes/decodes values V to []byte for snapshot storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
