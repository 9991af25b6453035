package onetwo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skaiphd/onetwo/codec"
)

// populateStore builds the reference store used by the save/load tests:
// key1 holds five values with two written identities and one read identity,
// key2 and key3 exercise the smaller shapes.
func populateStore(t *testing.T) *Store[string] {
	t.Helper()
	s := newTestStore(t, "my_cache")
	none := Sample{}

	s.Put("key1", none, "value_1")
	s.Put("key1", none, "value_2")
	s.Put("key1", none, "value_3")
	s.Put("key1", SampleID("sampling_key_1"), "value_4")
	s.Put("key1", SampleID("sampling_key_2"), "value_5")
	if _, ok := s.Get("key1", SampleID("sampling_key_3")); !ok {
		t.Fatalf("read-side assignment missed")
	}
	s.Put("key2", none, "value_6")
	s.Put("key2", SampleID("sampling_key_4"), "value_7")
	s.Put("key3", SampleID("sampling_key_5"), "value_8")
	return s
}

func TestWriteAndLoadRestoredMapping(t *testing.T) {
	s := populateStore(t)
	dir := t.TempDir()

	if err := s.WriteToDirectory(dir); err != nil {
		t.Fatalf("WriteToDirectory: %v", err)
	}
	path := SnapshotPath(dir, "my_cache")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	restored, err := Load[string](path, true, Options[string]{Name: "my_cache"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Assignments are frozen: identities resolve exactly as before the save.
	if v, _ := restored.Get("key1", SampleID("sampling_key_2")); v != "value_2" {
		t.Fatalf("sampling_key_2 = %q, want value_2", v)
	}
	if v, _ := restored.Get("key1", SampleID("sampling_key_1")); v != "value_1" {
		t.Fatalf("sampling_key_1 = %q, want value_1", v)
	}
	if v, _ := restored.Get("key1", SampleID("sampling_key_3")); v != "value_3" {
		t.Fatalf("sampling_key_3 = %q, want value_3", v)
	}
	if v, _ := restored.Get("key2", SampleID("sampling_key_4")); v != "value_6" {
		t.Fatalf("sampling_key_4 = %q, want value_6", v)
	}
}

func TestWriteAndLoadFreshMapping(t *testing.T) {
	s := populateStore(t)
	dir := t.TempDir()
	if err := s.WriteToDirectory(dir); err != nil {
		t.Fatalf("WriteToDirectory: %v", err)
	}

	restored, err := Load[string](SnapshotPath(dir, "my_cache"), false, Options[string]{Name: "my_cache"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Value sequences survive but assignment restarts from index 0, so
	// previously used identities may land elsewhere.
	if n := restored.PoolLen("key1"); n != 5 {
		t.Fatalf("key1 pool length = %d, want 5", n)
	}
	if v, _ := restored.Get("key1", SampleID("sampling_key_2")); v != "value_1" {
		t.Fatalf("fresh mapping: sampling_key_2 = %q, want value_1", v)
	}
	if v, _ := restored.Get("key1", SampleID("sampling_key_1")); v != "value_2" {
		t.Fatalf("fresh mapping: sampling_key_1 = %q, want value_2", v)
	}
	// The canonical slot is unaffected by the mapping mode.
	if v, _ := restored.Get("key1", Sample{}); v != "value_1" {
		t.Fatalf("canonical = %q, want value_1", v)
	}
}

func TestWriteRefusesExistingFile(t *testing.T) {
	s := populateStore(t)
	dir := t.TempDir()
	path := SnapshotPath(dir, "my_cache")
	if err := os.WriteFile(path, []byte("occupied"), 0o644); err != nil {
		t.Fatalf("pre-create: %v", err)
	}

	err := s.WriteToDirectory(dir)
	if !errors.Is(err, ErrSnapshotExists) {
		t.Fatalf("expected ErrSnapshotExists, got %v", err)
	}
	var se *SnapshotError
	if !errors.As(err, &se) || se.Path != path {
		t.Fatalf("expected SnapshotError carrying %q, got %v", path, err)
	}

	// The pre-existing file is untouched.
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "occupied" {
		t.Fatalf("pre-existing file was modified: %q err=%v", b, err)
	}
}

func TestFailedWriteLeavesNoFile(t *testing.T) {
	s := populateStore(t)
	dir := filepath.Join(t.TempDir(), "does", "not", "exist")

	if err := s.WriteToDirectory(dir); err == nil {
		t.Fatalf("expected error writing into missing directory")
	}
	if _, err := os.Stat(SnapshotPath(dir, "my_cache")); !os.IsNotExist(err) {
		t.Fatalf("partial snapshot left behind: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load[string](filepath.Join(t.TempDir(), "nope.snap"), true, Options[string]{Name: "x"})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	var se *SnapshotError
	if !errors.As(err, &se) {
		t.Fatalf("expected SnapshotError, got %T", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.snap")
	if err := os.WriteFile(path, []byte("not-a-snapshot"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Load[string](path, true, Options[string]{Name: "bad"})
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestLoadDerivesNameFromFilename(t *testing.T) {
	s := populateStore(t)
	dir := t.TempDir()
	if err := s.WriteToDirectory(dir); err != nil {
		t.Fatalf("WriteToDirectory: %v", err)
	}

	restored, err := Load[string](SnapshotPath(dir, "my_cache"), true, Options[string]{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// A round-trip under the derived name writes to the same filename.
	other := t.TempDir()
	if err := restored.WriteToDirectory(other); err != nil {
		t.Fatalf("WriteToDirectory after load: %v", err)
	}
	if _, err := os.Stat(SnapshotPath(other, "my_cache")); err != nil {
		t.Fatalf("derived-name snapshot missing: %v", err)
	}
}

func TestSnapshotRoundTripWithBinaryCodec(t *testing.T) {
	type reply struct {
		Text  string `msgpack:"text"`
		Score int    `msgpack:"score"`
	}
	opts := Options[reply]{Name: "bin", Codec: codec.Msgpack[reply]{}}
	s, err := New[reply](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Put("k", Sample{}, reply{Text: "hello", Score: 3})
	s.Put("k", SampleID("s"), reply{Text: "hi", Score: 1})

	dir := t.TempDir()
	if err := s.WriteToDirectory(dir); err != nil {
		t.Fatalf("WriteToDirectory: %v", err)
	}
	restored, err := Load[reply](SnapshotPath(dir, "bin"), true, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := restored.Get("k", SampleID("s")); v != (reply{Text: "hello", Score: 3}) {
		t.Fatalf("restored sampled value = %+v", v)
	}
}
