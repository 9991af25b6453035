package onetwo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/skaiphd/onetwo/internal/digest"
)

// Arg is one bound argument of a cached call: the declared parameter name and
// the value the caller supplied (or the parameter's default).
type Arg struct {
	Name  string
	Value any
}

// Param declares one named parameter of a bound operation, in call order.
// Optional parameters may be omitted by the caller, in which case Default is
// bound in their place so that explicit and defaulted calls share a key.
type Param struct {
	Name     string
	Default  any
	Optional bool
}

// Digester lets argument types supply their own key material to hashed-policy
// digests. See internal/digest.
type Digester = digest.Digester

// KeyMaker turns an operation name plus its bound arguments into the cache
// key. Implementations must be pure functions of their inputs: identical
// calls must always yield identical keys.
type KeyMaker interface {
	Key(op string, args []Arg) (string, error)
}

// KeyMakerFunc adapts a plain function to the KeyMaker interface, for
// call-site-specific key semantics.
type KeyMakerFunc func(op string, args []Arg) (string, error)

func (f KeyMakerFunc) Key(op string, args []Arg) (string, error) { return f(op, args) }

// DefaultKeyMaker serializes the operation name and every bound argument into
// a canonical, deterministically ordered textual key: the operation-name
// field first, then arguments in sorted name order.
//
// Two per-argument policies refine the key:
//   - Hashed: the argument's literal value is replaced by a fixed-width
//     content digest, for values too large or unsuitable to embed verbatim.
//   - Dropped: the argument is omitted entirely; it has no bearing on cache
//     identity.
//
// Listing a name under both policies is a configuration error, reported when
// the maker is bound.
type DefaultKeyMaker struct {
	Hashed  []string
	Dropped []string
}

// opNameField keys the operation name inside the serialized key. It is part
// of the persisted key format; changing it orphans previously cached entries.
const opNameField = "fn"

func (m DefaultKeyMaker) validate() error {
	for _, h := range m.Hashed {
		if slices.Contains(m.Dropped, h) {
			return fmt.Errorf("onetwo: argument %q is both hashed and dropped", h)
		}
	}
	return nil
}

func (m DefaultKeyMaker) Key(op string, args []Arg) (string, error) {
	if err := m.validate(); err != nil {
		return "", err
	}

	sorted := make([]Arg, 0, len(args))
	for _, a := range args {
		if slices.Contains(m.Dropped, a.Name) {
			continue
		}
		sorted = append(sorted, a)
	}
	slices.SortFunc(sorted, func(a, b Arg) int {
		return strings.Compare(a.Name, b.Name)
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeKeyField(&buf, opNameField, op); err != nil {
		return "", err
	}
	for _, a := range sorted {
		buf.WriteString(", ")
		v := a.Value
		if slices.Contains(m.Hashed, a.Name) {
			v = digest.Digest(a.Value)
		}
		if err := writeKeyField(&buf, a.Name, v); err != nil {
			return "", err
		}
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// writeKeyField appends `"name": <json value>`. encoding/json renders map
// keys in sorted order, which keeps nested values canonical too.
func writeKeyField(buf *bytes.Buffer, name string, v any) error {
	nb, err := json.Marshal(name)
	if err != nil {
		return err
	}
	vb, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("onetwo: argument %q is not key-serializable: %w", name, err)
	}
	buf.Write(nb)
	buf.WriteString(": ")
	buf.Write(vb)
	return nil
}
