// Package facedb is the robot's durable memory of who and what it has
// seen: enrolled faces with their embeddings, room signatures, and
// recent object sightings.
//
// Every mutating operation persists to the configured Store before it
// returns, so an acknowledged write survives a power cut.
package facedb

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FaceRecord is one enrolled identity.
type FaceRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
	Enrolled  time.Time `json:"enrolled"`
	LastSeen  time.Time `json:"last_seen"`
	SeenCount int       `json:"seen_count"`
}

// RoomSignature is a coarse visual fingerprint of a known room.
type RoomSignature struct {
	Name      string    `json:"name"`
	Vector    []float32 `json:"vector"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ObjectSighting records one detected object and where it was seen.
type ObjectSighting struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Room       string    `json:"room,omitempty"`
	SeenAt     time.Time `json:"seen_at"`
}

// Match is a successful face lookup.
type Match struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Config holds the matching thresholds and retention limits.
type Config struct {
	// FaceThreshold is the minimum cosine similarity for a face
	// lookup or enrollment merge.
	FaceThreshold float64

	// RoomThreshold is the minimum cosine similarity for a room
	// signature match.
	RoomThreshold float64

	// MaxSightings bounds the retained sightings per object label;
	// the oldest are evicted.
	MaxSightings int

	// MaxNameLength bounds enrolled names.
	MaxNameLength int
}

// DefaultConfig returns production thresholds.
func DefaultConfig() Config {
	return Config{
		FaceThreshold: 0.4,
		RoomThreshold: 0.75,
		MaxSightings:  20,
		MaxNameLength: 50,
	}
}

// snapshot is the serialized form of the database.
type snapshot struct {
	Faces   map[string]*FaceRecord      `json:"faces"`
	Rooms   map[string]*RoomSignature   `json:"rooms"`
	Objects map[string][]ObjectSighting `json:"objects"`
}

// DB is the face, room and object memory.
type DB struct {
	mu      sync.RWMutex
	faces   map[string]*FaceRecord // by ID
	rooms   map[string]*RoomSignature
	objects map[string][]ObjectSighting
	cfg     Config
	store   Store
}

// New creates an in-memory database with no persistence.
func New(cfg Config) *DB {
	return &DB{
		faces:   make(map[string]*FaceRecord),
		rooms:   make(map[string]*RoomSignature),
		objects: make(map[string][]ObjectSighting),
		cfg:     cfg,
	}
}

// NewWithStore creates a database over the given backend, loading any
// existing snapshot.
func NewWithStore(cfg Config, store Store) (*DB, error) {
	db := New(cfg)
	db.store = store

	data, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load face database: %w", err)
	}
	if data == nil {
		return db, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode face database: %w", err)
	}
	if snap.Faces != nil {
		db.faces = snap.Faces
	}
	if snap.Rooms != nil {
		db.rooms = snap.Rooms
	}
	if snap.Objects != nil {
		db.objects = snap.Objects
	}
	return db, nil
}

// save persists the current state. Callers hold at least a read lock.
func (db *DB) save() error {
	if db.store == nil {
		return nil
	}
	data, err := json.MarshalIndent(snapshot{
		Faces:   db.faces,
		Rooms:   db.rooms,
		Objects: db.objects,
	}, "", "  ")
	if err != nil {
		return err
	}
	return db.store.Save(data)
}

// Register enrolls a face embedding under a name.
//
// If the embedding matches an existing record with the same name, the
// record's embedding is merged toward the new sample and no new record
// is created. If it matches a record enrolled under a different name,
// enrollment is refused with ErrDuplicateLowConfidence rather than
// risking two names for one face. A dissimilar embedding offered for a
// name that is already taken is refused the same way: names are unique
// and never silently split across two faces.
func (db *DB) Register(name string, embedding []float32) (*FaceRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > db.cfg.MaxNameLength {
		return nil, fmt.Errorf("%w: bad name %q", ErrNotFound, name)
	}
	if len(embedding) == 0 {
		return nil, ErrBadEmbedding
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	best, score := db.nearestFace(embedding)
	if best != nil && score >= db.cfg.FaceThreshold {
		if !strings.EqualFold(best.Name, name) {
			return nil, fmt.Errorf("%w: resembles %q (%.2f)", ErrDuplicateLowConfidence, best.Name, score)
		}
		mergeEmbedding(best, embedding)
		best.LastSeen = time.Now()
		best.SeenCount++
		if err := db.save(); err != nil {
			return nil, err
		}
		rec := *best
		return &rec, nil
	}

	// Below threshold: a taken name means this is a different face
	// asking for an existing identity. Names stay unique.
	for _, existing := range db.faces {
		if strings.EqualFold(existing.Name, name) {
			return nil, fmt.Errorf("%w: %q is enrolled with a dissimilar face (%.2f)",
				ErrDuplicateLowConfidence, existing.Name, score)
		}
	}

	rec := &FaceRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Embedding: append([]float32(nil), embedding...),
		Enrolled:  time.Now(),
		LastSeen:  time.Now(),
		SeenCount: 1,
	}
	db.faces[rec.ID] = rec
	if err := db.save(); err != nil {
		delete(db.faces, rec.ID)
		return nil, err
	}
	out := *rec
	return &out, nil
}

// Lookup finds the enrolled identity nearest to the embedding. ok is
// false when nothing clears the threshold; the face stays anonymous.
func (db *DB) Lookup(embedding []float32) (Match, bool) {
	if len(embedding) == 0 {
		return Match{}, false
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	best, score := db.nearestFace(embedding)
	if best == nil || score < db.cfg.FaceThreshold {
		return Match{}, false
	}
	return Match{ID: best.ID, Name: best.Name, Score: score}, true
}

// Touch records a sighting of an enrolled face.
func (db *DB) Touch(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.faces[id]
	if !ok {
		return fmt.Errorf("%w: face %s", ErrNotFound, id)
	}
	rec.LastSeen = time.Now()
	rec.SeenCount++
	return db.save()
}

// Faces returns all enrolled records sorted by name, embeddings
// included.
func (db *DB) Faces() []FaceRecord {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]FaceRecord, 0, len(db.faces))
	for _, rec := range db.faces {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Forget removes every record enrolled under the name.
func (db *DB) Forget(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	removed := false
	for id, rec := range db.faces {
		if strings.EqualFold(rec.Name, name) {
			delete(db.faces, id)
			removed = true
		}
	}
	if !removed {
		return fmt.Errorf("%w: face %q", ErrNotFound, name)
	}
	return db.save()
}

// LearnRoom stores or refreshes a room signature.
func (db *DB) LearnRoom(name string, vector []float32) error {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return fmt.Errorf("%w: empty room name", ErrNotFound)
	}
	if len(vector) == 0 {
		return ErrBadEmbedding
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.rooms[name] = &RoomSignature{
		Name:      name,
		Vector:    append([]float32(nil), vector...),
		UpdatedAt: time.Now(),
	}
	return db.save()
}

// MatchRoom finds the known room nearest to the signature vector.
func (db *DB) MatchRoom(vector []float32) (string, float64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	bestName := ""
	bestScore := -1.0
	for name, sig := range db.rooms {
		if len(sig.Vector) != len(vector) {
			continue
		}
		if s := cosine(sig.Vector, vector); s > bestScore {
			bestName, bestScore = name, s
		}
	}
	if bestName == "" || bestScore < db.cfg.RoomThreshold {
		return "", 0, false
	}
	return bestName, bestScore, true
}

// Rooms returns the known room names.
func (db *DB) Rooms() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]string, 0, len(db.rooms))
	for name := range db.rooms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RecordSighting appends an object sighting, evicting the oldest once
// the per-label bound is reached.
func (db *DB) RecordSighting(s ObjectSighting) error {
	if s.Label == "" {
		return fmt.Errorf("%w: empty label", ErrNotFound)
	}
	if s.SeenAt.IsZero() {
		s.SeenAt = time.Now()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	list := append(db.objects[s.Label], s)
	if max := db.cfg.MaxSightings; max > 0 && len(list) > max {
		list = list[len(list)-max:]
	}
	db.objects[s.Label] = list
	return db.save()
}

// Sightings returns the retained sightings for a label, oldest first.
func (db *DB) Sightings(label string) []ObjectSighting {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]ObjectSighting(nil), db.objects[label]...)
}

// Labels returns every label with at least one retained sighting.
func (db *DB) Labels() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]string, 0, len(db.objects))
	for label := range db.objects {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Stats returns record counts per category.
func (db *DB) Stats() map[string]int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	sightings := 0
	for _, list := range db.objects {
		sightings += len(list)
	}
	return map[string]int{
		"faces":     len(db.faces),
		"rooms":     len(db.rooms),
		"sightings": sightings,
	}
}

// Close releases the persistence backend.
func (db *DB) Close() error {
	if db.store == nil {
		return nil
	}
	return db.store.Close()
}

// nearestFace returns the closest record by cosine similarity.
// Callers hold the lock.
func (db *DB) nearestFace(embedding []float32) (*FaceRecord, float64) {
	var best *FaceRecord
	bestScore := -1.0
	for _, rec := range db.faces {
		if len(rec.Embedding) != len(embedding) {
			continue
		}
		if s := cosine(rec.Embedding, embedding); s > bestScore {
			best, bestScore = rec, s
		}
	}
	return best, bestScore
}

// mergeEmbedding moves the stored embedding toward the new sample,
// weighted by how many sightings back the stored one.
func mergeEmbedding(rec *FaceRecord, sample []float32) {
	n := float32(rec.SeenCount)
	for i := range rec.Embedding {
		rec.Embedding[i] = (rec.Embedding[i]*n + sample[i]) / (n + 1)
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
