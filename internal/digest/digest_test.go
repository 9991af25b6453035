package digest

import (
	"strings"
	"testing"
)

func TestDigestShape(t *testing.T) {
	d := Digest("get_key")
	if len(d) != 56 {
		t.Fatalf("digest length = %d, want 56 hex chars", len(d))
	}
	if strings.ToLower(d) != d {
		t.Fatalf("digest not lowercase hex: %s", d)
	}
}

func TestDigestIsStable(t *testing.T) {
	inputs := []any{
		"test",
		12345,
		[]string{"a", "b"},
		map[string]int{"k": 1},
		struct{ A, B int }{1, 2},
	}
	for _, in := range inputs {
		if Digest(in) != Digest(in) {
			t.Fatalf("digest of %#v is not deterministic", in)
		}
	}
}

func TestDistinctValuesDistinctDigests(t *testing.T) {
	values := []any{
		nil,
		"",
		"1",
		1,
		1.0,
		true,
		[]any{1},
		map[int]int{1: 1},
		[]byte("1"),
	}
	seen := map[string]any{}
	for _, v := range values {
		d := Digest(v)
		if prev, dup := seen[d]; dup {
			t.Fatalf("%#v and %#v collide on %s", prev, v, d)
		}
		seen[d] = v
	}
}

func TestNumericWidthDoesNotMatter(t *testing.T) {
	if Digest(int8(7)) != Digest(int64(7)) {
		t.Fatalf("int8 and int64 of the same value differ")
	}
	if Digest(int(7)) != Digest(uint32(7)) {
		t.Fatalf("signed and unsigned of the same value differ")
	}
	if Digest([]int8{1, 2}) != Digest([]int64{1, 2}) {
		t.Fatalf("sequences of same values but different widths differ")
	}
	if Digest(float32(1.5)) != Digest(float64(1.5)) {
		t.Fatalf("float widths differ")
	}
}

func TestSequencesArePositionSensitive(t *testing.T) {
	if Digest([]string{"a", "b"}) == Digest([]string{"b", "a"}) {
		t.Fatalf("sequence order ignored")
	}
	if Digest([]string{"a"}) == Digest([]string{"a", "a"}) {
		t.Fatalf("sequence length ignored")
	}
	if Digest([2]int{1, 2}) != Digest([]int{1, 2}) {
		t.Fatalf("array and slice of same elements differ")
	}
}

func TestMapsAreOrderInsensitive(t *testing.T) {
	a := map[string]int{"x": 1, "y": 2, "z": 3}
	b := map[string]int{"z": 3, "x": 1, "y": 2}
	if Digest(a) != Digest(b) {
		t.Fatalf("map digests depend on insertion order")
	}

	// Sets as map[T]struct{} follow the same rule.
	s1 := map[string]struct{}{"a": {}, "b": {}}
	s2 := map[string]struct{}{"b": {}, "a": {}}
	if Digest(s1) != Digest(s2) {
		t.Fatalf("set digests depend on iteration order")
	}
	if Digest(s1) == Digest(map[string]struct{}{"a": {}}) {
		t.Fatalf("set membership ignored")
	}
}

func TestBytesHashRaw(t *testing.T) {
	if Digest([]byte{1, 2, 3}) == Digest([]int{1, 2, 3}) {
		t.Fatalf("byte payloads and int sequences collide")
	}
	if Digest([]byte("abc")) != Digest([]byte("abc")) {
		t.Fatalf("byte digest not deterministic")
	}
	if Digest([]byte("abc")) == Digest("abc") {
		t.Fatalf("bytes and string collide")
	}
}

func TestStructFieldsContribute(t *testing.T) {
	type cfg struct {
		Model string
		Temp  float64
		note  string
	}
	a := cfg{Model: "m1", Temp: 0.5, note: "ignored"}
	b := cfg{Model: "m1", Temp: 0.5, note: "different"}
	if Digest(a) != Digest(b) {
		t.Fatalf("unexported fields leaked into digest")
	}
	c := cfg{Model: "m2", Temp: 0.5}
	if Digest(a) == Digest(c) {
		t.Fatalf("exported field change not reflected")
	}
}

func TestPointersDigestByValue(t *testing.T) {
	v := "shared"
	if Digest(&v) != Digest("shared") {
		t.Fatalf("pointer digests by address, not value")
	}
	var p *string
	if Digest(p) != Digest(nil) {
		t.Fatalf("nil pointer and nil differ")
	}
}

type namedKey struct{ id string }

func (n namedKey) DigestKey() string { return "named:" + n.id }

func TestCustomDigester(t *testing.T) {
	if Digest(namedKey{id: "a"}) == Digest(namedKey{id: "b"}) {
		t.Fatalf("DigestKey output ignored")
	}
	if Digest(namedKey{id: "a"}) != Digest("named:a") {
		t.Fatalf("Digester must hash as its key string")
	}
	// Inside containers too.
	if Digest([]namedKey{{id: "a"}}) != Digest([]string{"named:a"}) {
		t.Fatalf("Digester ignored inside sequences")
	}
}
