// Package wire frames cache snapshots: a self-describing, bounds-checked
// binary envelope around codec-encoded values. The envelope is independent of
// the value codec, so binary codecs round-trip without escaping.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version      byte = 1
	kindSnapshot byte = 1
)

var (
	ErrCorrupt = errors.New("wire: corrupt snapshot")
	magic4     = [...]byte{'O', 'T', 'S', 'N'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// SampleRef records one sampling-identity assignment: identity -> pool index.
type SampleRef struct {
	ID    string
	Index uint32
}

// Pool is the persisted form of one key's value pool. Values are in insertion
// order (index is the addressing scheme); Used is the assigned-identity count
// that drives round-robin assignment.
type Pool struct {
	Key     string
	Values  [][]byte
	Samples []SampleRef
	Used    uint32
}

// Snapshot layout:
//
//	magic(4) | ver(1) | kind(1) | npools(u32 be)
//	per pool:
//	  keyLen(u16 be) | key | used(u32 be)
//	  nvalues(u32 be) | (vlen(u32 be) | payload)*
//	  nsamples(u32 be) | (idLen(u16 be) | id | index(u32 be))*
//
// Sample identities may be empty strings; keys may not.
func EncodeSnapshot(pools []Pool) []byte {
	total := 4 + 1 + 1 + 4
	for _, p := range pools {
		total += 2 + len(p.Key) + 4 + 4
		for _, v := range p.Values {
			total += 4 + len(v)
		}
		total += 4
		for _, s := range p.Samples {
			total += 2 + len(s.ID) + 4
		}
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSnapshot)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(pools)))
	buf.Write(u4[:])

	for _, p := range pools {
		if l := len(p.Key); l == 0 || l > 0xFFFF {
			panic("wire: invalid key length in snapshot")
		}
		binary.BigEndian.PutUint16(u2[:], uint16(len(p.Key)))
		buf.Write(u2[:])
		buf.WriteString(p.Key)

		binary.BigEndian.PutUint32(u4[:], p.Used)
		buf.Write(u4[:])

		binary.BigEndian.PutUint32(u4[:], uint32(len(p.Values)))
		buf.Write(u4[:])
		for _, v := range p.Values {
			binary.BigEndian.PutUint32(u4[:], uint32(len(v)))
			buf.Write(u4[:])
			buf.Write(v)
		}

		binary.BigEndian.PutUint32(u4[:], uint32(len(p.Samples)))
		buf.Write(u4[:])
		for _, s := range p.Samples {
			if len(s.ID) > 0xFFFF {
				panic("wire: invalid sample id length in snapshot")
			}
			binary.BigEndian.PutUint16(u2[:], uint16(len(s.ID)))
			buf.Write(u2[:])
			buf.WriteString(s.ID)
			binary.BigEndian.PutUint32(u4[:], s.Index)
			buf.Write(u4[:])
		}
	}

	return buf.Bytes()
}

func DecodeSnapshot(b []byte) ([]Pool, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindSnapshot {
		return nil, ErrCorrupt
	}

	off := 6
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 {
		return nil, ErrCorrupt
	}

	pools := make([]Pool, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen <= 0 || klen > len(b)-off {
			return nil, ErrCorrupt
		}
		key := string(b[off : off+klen])
		off += klen

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		used := binary.BigEndian.Uint32(b[off : off+4])
		off += 4

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		nvals := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if nvals <= 0 { // a persisted pool always holds at least one value
			return nil, ErrCorrupt
		}
		values := make([][]byte, 0, nvals)
		for j := 0; j < nvals; j++ {
			if off+4 > len(b) {
				return nil, ErrCorrupt
			}
			vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
			off += 4
			if vlen < 0 || vlen > len(b)-off {
				return nil, ErrCorrupt
			}
			// subslice into b; callers decode via codec before use
			values = append(values, b[off:off+vlen])
			off += vlen
		}

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		nsamples := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if nsamples < 0 {
			return nil, ErrCorrupt
		}
		samples := make([]SampleRef, 0, nsamples)
		for j := 0; j < nsamples; j++ {
			if off+2 > len(b) {
				return nil, ErrCorrupt
			}
			slen := int(binary.BigEndian.Uint16(b[off : off+2]))
			off += 2
			if slen > len(b)-off {
				return nil, ErrCorrupt
			}
			id := string(b[off : off+slen])
			off += slen
			if off+4 > len(b) {
				return nil, ErrCorrupt
			}
			idx := binary.BigEndian.Uint32(b[off : off+4])
			if int(idx) >= nvals { // mapping must address an existing value
				return nil, ErrCorrupt
			}
			off += 4
			samples = append(samples, SampleRef{ID: id, Index: idx})
		}

		pools = append(pools, Pool{Key: key, Values: values, Samples: samples, Used: used})
	}

	return pools, nil
}
