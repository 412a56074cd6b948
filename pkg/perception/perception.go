// Package perception turns raw captures into meaning: who is in
// frame, what objects are around, which room this looks like. Results
// are published as snapshots to a latest-value cell; recognized
// sightings and heard speech land in durable memory and the voice
// inbox.
package perception

import (
	"context"
	"time"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/facedb"
	"github.com/noxbotics/go-nox/pkg/latest"
	"github.com/noxbotics/go-nox/pkg/sensors"
	"github.com/noxbotics/go-nox/pkg/vision"
	"github.com/noxbotics/go-nox/pkg/voice"
)

// FaceSighting is one face in the current snapshot. Name is empty for
// faces nobody has enrolled.
type FaceSighting struct {
	Box        vision.Detection `json:"box"`
	Name       string           `json:"name,omitempty"`
	Similarity float64          `json:"similarity,omitempty"`

	// Embedding is kept for enrollment of the face currently in
	// frame; it never goes over the wire.
	Embedding []float32 `json:"-"`
}

// ObjectSighting is one object in the current snapshot.
type ObjectSighting struct {
	Box        vision.Detection `json:"box"`
	Label      string           `json:"label"`
	Confidence float64          `json:"confidence"`
}

// Snapshot is the most recent view of the world. Timestamps are
// strictly monotonic across published snapshots.
type Snapshot struct {
	Timestamp time.Time        `json:"ts"`
	Faces     []FaceSighting   `json:"faces"`
	Objects   []ObjectSighting `json:"objects"`

	// Room is the matched room name, empty when unknown.
	Room string `json:"room,omitempty"`

	// Scene is the deep analyzer's description. Omitted on cycles
	// where the analyzer missed its deadline.
	Scene string `json:"scene_description,omitempty"`

	// Frame is the JPEG this snapshot was computed from.
	Frame []byte `json:"-"`
}

// Config tunes the pipeline.
type Config struct {
	// DescribeInterval is how often the deep analyzer runs; zero
	// disables it.
	DescribeInterval time.Duration

	// DescribeDeadline bounds one analyzer call.
	DescribeDeadline time.Duration

	// TouchPersistEvery throttles durable last-seen updates per
	// recognized face.
	TouchPersistEvery time.Duration
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		DescribeInterval:  30 * time.Second,
		DescribeDeadline:  10 * time.Second,
		TouchPersistEvery: time.Minute,
	}
}

// Pipeline consumes captures and publishes snapshots.
type Pipeline struct {
	cfg      Config
	captures *latest.Cell[sensors.Capture]
	cell     *latest.Cell[Snapshot]

	faces   vision.FaceFinder
	objects vision.ObjectFinder
	db      *facedb.DB

	// Describer is optional; nil disables scene description.
	Describer vision.Describer

	// Inbox is optional; heard speech is forwarded there.
	Inbox *voice.Inbox

	lastSeq      uint64
	lastSpeech   string
	lastTouch    map[string]time.Time
	lastScene    string
	lastDescribe time.Time
	describing   chan string
	lastTS       time.Time
}

// New creates a pipeline over the capture cell.
func New(cfg Config, captures *latest.Cell[sensors.Capture], faces vision.FaceFinder, objects vision.ObjectFinder, db *facedb.DB) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		captures:  captures,
		cell:      latest.NewCell[Snapshot](),
		faces:     faces,
		objects:   objects,
		db:        db,
		lastTouch: make(map[string]time.Time),
	}
}

// Cell returns the cell snapshots are published to.
func (p *Pipeline) Cell() *latest.Cell[Snapshot] {
	return p.cell
}

// Latest returns the most recent snapshot.
func (p *Pipeline) Latest() (Snapshot, bool) {
	snap, _, ok := p.cell.Load()
	return snap, ok
}

// Run processes captures as they arrive until the context is canceled.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		// Grab the notification channel before draining so a publish
		// racing the drain still wakes the loop.
		changed := p.captures.Changed()
		for {
			capture, seq, ok := p.captures.LoadNewer(p.lastSeq)
			if !ok {
				break
			}
			p.lastSeq = seq
			p.process(ctx, capture)
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

// process runs one perception cycle over a capture.
func (p *Pipeline) process(ctx context.Context, capture sensors.Capture) {
	now := time.Now()
	if !now.After(p.lastTS) {
		now = p.lastTS.Add(time.Nanosecond)
	}
	snap := Snapshot{Timestamp: now, Frame: capture.Frame}

	if capture.ReadingsOK {
		p.forwardSpeech(capture.Readings.Speech)
	}

	if capture.Frame != nil {
		snap.Faces = p.recognizeFaces(capture.Frame)
		snap.Objects = p.detectObjects(capture.Frame)

		sig := RoomSignature(capture.Frame)
		if room, _, ok := p.db.MatchRoom(sig); ok {
			snap.Room = room
		}
		p.recordSightings(snap)
		snap.Scene = p.describe(ctx, capture.Frame)
	}

	p.lastTS = snap.Timestamp
	p.cell.Publish(snap)
}

// recognizeFaces detects and identifies faces. When two boxes resolve
// to the same identity, only the highest-confidence one keeps the
// name; the rest stay anonymous.
func (p *Pipeline) recognizeFaces(frame []byte) []FaceSighting {
	found, err := p.faces.FindFaces(frame)
	if err != nil {
		log.Warn("face detection failed", "error", err)
		return nil
	}

	sightings := make([]FaceSighting, len(found))
	type claim struct {
		idx   int
		score float64
		id    string
	}
	best := make(map[string]claim)

	for i, face := range found {
		sightings[i] = FaceSighting{Box: face.Detection, Embedding: face.Embedding}
		match, ok := p.db.Lookup(face.Embedding)
		if !ok {
			continue
		}
		prev, claimed := best[match.ID]
		if !claimed || match.Score > prev.score {
			if claimed {
				sightings[prev.idx].Name = ""
				sightings[prev.idx].Similarity = 0
			}
			best[match.ID] = claim{idx: i, score: match.Score, id: match.ID}
			sightings[i].Name = match.Name
			sightings[i].Similarity = match.Score
		}
	}

	for _, c := range best {
		p.touch(c.id)
	}
	return sightings
}

// touch persists a recognized face's last-seen time, throttled so a
// face in frame does not hit the disk every cycle.
func (p *Pipeline) touch(id string) {
	now := time.Now()
	if last, ok := p.lastTouch[id]; ok && now.Sub(last) < p.cfg.TouchPersistEvery {
		return
	}
	p.lastTouch[id] = now
	if err := p.db.Touch(id); err != nil {
		log.Warn("persist face sighting failed", "error", err)
	}
}

func (p *Pipeline) detectObjects(frame []byte) []ObjectSighting {
	found, err := p.objects.FindObjects(frame)
	if err != nil {
		log.Warn("object detection failed", "error", err)
		return nil
	}

	sightings := make([]ObjectSighting, 0, len(found))
	for _, obj := range found {
		sightings = append(sightings, ObjectSighting{
			Box:        obj.Detection,
			Label:      obj.Label,
			Confidence: obj.Confidence,
		})
	}
	return sightings
}

// recordSightings writes this cycle's objects into durable memory.
func (p *Pipeline) recordSightings(snap Snapshot) {
	for _, obj := range snap.Objects {
		err := p.db.RecordSighting(facedb.ObjectSighting{
			Label:      obj.Label,
			Confidence: obj.Confidence,
			X:          obj.Box.X,
			Y:          obj.Box.Y,
			Room:       snap.Room,
			SeenAt:     snap.Timestamp,
		})
		if err != nil {
			log.Warn("persist object sighting failed", "label", obj.Label, "error", err)
		}
	}
}

// forwardSpeech pushes newly heard speech to the voice inbox. The
// daemon repeats the last utterance until a new one arrives, so
// consecutive duplicates are dropped.
func (p *Pipeline) forwardSpeech(text string) {
	if p.Inbox == nil || text == "" || text == p.lastSpeech {
		if text == "" {
			p.lastSpeech = ""
		}
		return
	}
	p.lastSpeech = text
	p.Inbox.Add(text)
}

// describe manages the async deep analyzer. A call is started at most
// every DescribeInterval; while none is in flight the last completed
// description is reused. A call that misses its deadline yields an
// empty field for the cycle.
func (p *Pipeline) describe(ctx context.Context, frame []byte) string {
	if p.Describer == nil || p.cfg.DescribeInterval <= 0 {
		return ""
	}

	if p.describing != nil {
		select {
		case scene, ok := <-p.describing:
			p.describing = nil
			if ok {
				p.lastScene = scene
			}
		default:
		}
	}

	if p.describing == nil && time.Since(p.lastDescribe) >= p.cfg.DescribeInterval {
		p.lastDescribe = time.Now()
		ch := make(chan string, 1)
		p.describing = ch
		go func(frame []byte) {
			dctx, cancel := context.WithTimeout(ctx, p.cfg.DescribeDeadline)
			defer cancel()
			scene, err := p.Describer.Describe(dctx, frame)
			if err != nil {
				log.Warn("scene description failed", "error", err)
				close(ch)
				return
			}
			ch <- scene
		}(frame)
	}

	return p.lastScene
}
