// Package digest produces stable, fixed-width content digests for
// heterogeneous cache key material. Each semantic container type is
// canonicalized before hashing: ordered sequences hash position-sensitively,
// maps hash order-insensitively, and numeric values hash by value rather than
// representation width, so []int8{1, 2} and []int64{1, 2} share a digest.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"reflect"
	"sort"
	"strconv"
)

// Digester lets a custom type supply its own key material instead of the
// reflective canonicalization below.
type Digester interface {
	DigestKey() string
}

// Digest returns the canonical hex digest of v.
func Digest(v any) string {
	h := sha256.New224()
	writeValue(h, reflect.ValueOf(v))
	return hex.EncodeToString(h.Sum(nil))
}

// Type tags keep e.g. the string "1" and the integer 1 from colliding.
const (
	tagNil    = "z"
	tagBool   = "t"
	tagInt    = "i"
	tagFloat  = "f"
	tagString = "s"
	tagBytes  = "b"
	tagSeq    = "l"
	tagMap    = "m"
	tagStruct = "r"
)

func writeValue(w io.Writer, rv reflect.Value) {
	if !rv.IsValid() {
		io.WriteString(w, tagNil)
		return
	}
	if rv.CanInterface() {
		if d, ok := rv.Interface().(Digester); ok {
			io.WriteString(w, tagString)
			io.WriteString(w, d.DigestKey())
			return
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			io.WriteString(w, tagNil)
			return
		}
		writeValue(w, rv.Elem())

	case reflect.Bool:
		io.WriteString(w, tagBool)
		io.WriteString(w, strconv.FormatBool(rv.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		io.WriteString(w, tagInt)
		io.WriteString(w, strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		io.WriteString(w, tagInt)
		io.WriteString(w, strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		io.WriteString(w, tagFloat)
		io.WriteString(w, strconv.FormatFloat(rv.Float(), 'g', -1, 64))

	case reflect.String:
		io.WriteString(w, tagString)
		io.WriteString(w, rv.String())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			io.WriteString(w, tagNil)
			return
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			io.WriteString(w, tagBytes)
			w.Write(rv.Bytes())
			return
		}
		// Position-sensitive: element sub-digests in order. Fixed-width
		// sub-digests make delimiters unnecessary.
		io.WriteString(w, tagSeq)
		for i := 0; i < rv.Len(); i++ {
			io.WriteString(w, subDigest(rv.Index(i)))
		}

	case reflect.Map:
		if rv.IsNil() {
			io.WriteString(w, tagNil)
			return
		}
		// Order-insensitive: digest each pair, sort, combine. Sets expressed
		// as map[T]struct{} fall out of the same rule.
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, subDigest(iter.Key())+subDigest(iter.Value()))
		}
		sort.Strings(pairs)
		io.WriteString(w, tagMap)
		for _, p := range pairs {
			io.WriteString(w, p)
		}

	case reflect.Struct:
		io.WriteString(w, tagStruct)
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			io.WriteString(w, rt.Field(i).Name)
			io.WriteString(w, subDigest(rv.Field(i)))
		}

	default:
		// Chan, Func, UnsafePointer: no content to hash.
		io.WriteString(w, tagNil)
	}
}

func subDigest(rv reflect.Value) string {
	h := sha256.New224()
	writeValue(h, rv)
	return hex.EncodeToString(h.Sum(nil))
}
