package facedb

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func emb(vals ...float32) []float32 { return vals }

func TestRegisterAndLookup(t *testing.T) {
	db := New(DefaultConfig())

	rec, err := db.Register("alice", emb(1, 0, 0))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.ID == "" || rec.Name != "alice" {
		t.Fatalf("bad record: %+v", rec)
	}

	m, ok := db.Lookup(emb(0.9, 0.1, 0))
	if !ok {
		t.Fatal("expected match")
	}
	if m.Name != "alice" {
		t.Errorf("matched %q", m.Name)
	}
	if m.Score < 0.4 {
		t.Errorf("score below threshold: %v", m.Score)
	}
}

func TestLookupBelowThresholdStaysAnonymous(t *testing.T) {
	db := New(DefaultConfig())
	if _, err := db.Register("alice", emb(1, 0, 0)); err != nil {
		t.Fatal(err)
	}

	// Orthogonal embedding: cosine 0, well under the threshold.
	if _, ok := db.Lookup(emb(0, 1, 0)); ok {
		t.Error("unrelated embedding matched")
	}
}

func TestRegisterMergesSameName(t *testing.T) {
	db := New(DefaultConfig())
	first, err := db.Register("alice", emb(1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}

	second, err := db.Register("alice", emb(0.9, 0.1, 0))
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if second.ID != first.ID {
		t.Error("merge created a new record")
	}
	if second.SeenCount != 2 {
		t.Errorf("SeenCount: got %d, want 2", second.SeenCount)
	}
	if len(db.Faces()) != 1 {
		t.Errorf("records: got %d, want 1", len(db.Faces()))
	}
}

func TestRegisterRefusesAmbiguousIdentity(t *testing.T) {
	db := New(DefaultConfig())
	if _, err := db.Register("alice", emb(1, 0, 0)); err != nil {
		t.Fatal(err)
	}

	_, err := db.Register("bob", emb(0.95, 0.05, 0))
	if !errors.Is(err, ErrDuplicateLowConfidence) {
		t.Fatalf("got %v, want ErrDuplicateLowConfidence", err)
	}
	if len(db.Faces()) != 1 {
		t.Error("refused enrollment still added a record")
	}
}

func TestRegisterRefusesTakenName(t *testing.T) {
	db := New(DefaultConfig())
	if _, err := db.Register("alice", emb(1, 0, 0)); err != nil {
		t.Fatal(err)
	}

	// orthogonal embedding, clearly a different face
	_, err := db.Register("alice", emb(0, 1, 0))
	if !errors.Is(err, ErrDuplicateLowConfidence) {
		t.Fatalf("got %v, want ErrDuplicateLowConfidence", err)
	}
	if len(db.Faces()) != 1 {
		t.Errorf("records: got %d, want 1", len(db.Faces()))
	}

	// case differences do not dodge the uniqueness check
	_, err = db.Register("Alice", emb(0, 0, 1))
	if !errors.Is(err, ErrDuplicateLowConfidence) {
		t.Fatalf("case variant: got %v, want ErrDuplicateLowConfidence", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	db := New(DefaultConfig())
	if _, err := db.Register("", emb(1)); err == nil {
		t.Error("empty name accepted")
	}
	if _, err := db.Register("alice", nil); !errors.Is(err, ErrBadEmbedding) {
		t.Errorf("nil embedding: got %v", err)
	}
}

func TestForget(t *testing.T) {
	db := New(DefaultConfig())
	if _, err := db.Register("alice", emb(1, 0, 0)); err != nil {
		t.Fatal(err)
	}

	if err := db.Forget("Alice"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if len(db.Faces()) != 0 {
		t.Error("record survived Forget")
	}
	if err := db.Forget("alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Forget: got %v", err)
	}
}

func TestRooms(t *testing.T) {
	db := New(DefaultConfig())
	if err := db.LearnRoom("Kitchen", emb(1, 0, 0, 0)); err != nil {
		t.Fatal(err)
	}

	name, score, ok := db.MatchRoom(emb(0.95, 0.05, 0, 0))
	if !ok || name != "kitchen" {
		t.Fatalf("match: %q %v %v", name, score, ok)
	}

	if _, _, ok := db.MatchRoom(emb(0, 0, 1, 0)); ok {
		t.Error("unrelated signature matched a room")
	}
}

func TestSightingsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSightings = 3
	db := New(cfg)

	base := time.Now()
	for i := 0; i < 5; i++ {
		err := db.RecordSighting(ObjectSighting{
			Label:      "cup",
			Confidence: 0.9,
			SeenAt:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got := db.Sightings("cup")
	if len(got) != 3 {
		t.Fatalf("retained: got %d, want 3", len(got))
	}
	// Oldest evicted first.
	if !got[0].SeenAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("wrong eviction order: first retained at %v", got[0].SeenAt)
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem", "faces.json")
	store := NewJSONStore(path)

	db, err := NewWithStore(DefaultConfig(), store)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Register("alice", emb(1, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordSighting(ObjectSighting{Label: "cup", Confidence: 0.8}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	reopened, err := NewWithStore(DefaultConfig(), NewJSONStore(path))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reopened.Lookup(emb(1, 0, 0)); !ok {
		t.Error("face lost across restart")
	}
	if len(reopened.Sightings("cup")) != 1 {
		t.Error("sighting lost across restart")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}

	db, err := NewWithStore(DefaultConfig(), store)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Register("bob", emb(0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	db.Close()

	store2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := NewWithStore(DefaultConfig(), store2)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	m, ok := reopened.Lookup(emb(0, 1, 0))
	if !ok || m.Name != "bob" {
		t.Errorf("lookup after reopen: %+v %v", m, ok)
	}
}
