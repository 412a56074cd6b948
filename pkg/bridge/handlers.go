package bridge

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noxbotics/go-nox/pkg/command"
	"github.com/noxbotics/go-nox/pkg/executor"
	"github.com/noxbotics/go-nox/pkg/facedb"
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/perception"
)

// faceEntry is a FaceRecord without its embedding. Embeddings stay on
// the robot.
type faceEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Enrolled  time.Time `json:"enrolled"`
	LastSeen  time.Time `json:"last_seen"`
	SeenCount int       `json:"seen_count"`
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	status := fiber.Map{
		"ok":          true,
		"uptime_s":    int(time.Since(s.started).Seconds()),
		"body":        s.deps.Executor.State(),
		"brain_conns": s.brainHub.ClientCount(),
	}
	if s.deps.Mode != nil {
		status["mode"] = s.deps.Mode()
	}
	if s.deps.Health != nil {
		status["sensors_health"] = s.deps.Health()
	}
	if r := s.latestReadings(); r != nil {
		status["sensors"] = r
	}
	if s.deps.DB != nil {
		status["memory"] = s.deps.DB.Stats()
	}
	return c.JSON(status)
}

func (s *Server) handleLook(c *fiber.Ctx) error {
	snap, ok := s.deps.Pipeline.Latest()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no perception data yet",
		})
	}
	report := snapshotReport(snap, s.latestReadings())
	return c.JSON(fiber.Map{
		"ts":         snap.Timestamp.UnixMilli(),
		"perception": report,
	})
}

// handlePhoto returns the latest snapshot with its JPEG frame inlined.
// ?raw=1 serves the bare JPEG instead.
func (s *Server) handlePhoto(c *fiber.Ctx) error {
	snap, ok := s.deps.Pipeline.Latest()
	if !ok || len(snap.Frame) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no frame available",
		})
	}
	if c.QueryBool("raw") {
		c.Set(fiber.HeaderContentType, "image/jpeg")
		return c.Send(snap.Frame)
	}
	return c.JSON(fiber.Map{
		"ts":         snap.Timestamp.UnixMilli(),
		"perception": snapshotReport(snap, s.latestReadings()),
		"frame_b64":  base64.StdEncoding.EncodeToString(snap.Frame),
	})
}

// handleCommand accepts any primitive command in the shared wire
// shape: {"cmd":"move","action":"forward","steps":3}.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	cmd, err := command.Parse(c.Body())
	if err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, cmd)
}

func (s *Server) handleHead(c *fiber.Ctx) error {
	var head command.Head
	if err := c.BodyParser(&head); err != nil {
		return s.sendError(c, command.ErrInvalidCommand)
	}
	if err := head.Validate(); err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, head)
}

func (s *Server) handleRGB(c *fiber.Ctx) error {
	var rgb command.RGB
	if err := c.BodyParser(&rgb); err != nil {
		return s.sendError(c, command.ErrInvalidCommand)
	}
	if err := rgb.Validate(); err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, command.Normalize(rgb))
}

func (s *Server) handleSpeak(c *fiber.Ctx) error {
	var speak command.Speak
	if err := c.BodyParser(&speak); err != nil {
		return s.sendError(c, command.ErrInvalidCommand)
	}
	if err := speak.Validate(); err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, speak)
}

func (s *Server) handleCombo(c *fiber.Ctx) error {
	combo, err := command.ParseCombo(c.Body())
	if err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, combo)
}

func (s *Server) handleExpress(c *fiber.Ctx) error {
	var req struct {
		Emotion string `json:"emotion"`
		Text    string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.sendError(c, command.ErrInvalidCommand)
	}
	combo, err := s.deps.Emotions.Compose(req.Emotion, req.Text)
	if err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, combo)
}

func (s *Server) handleFaces(c *fiber.Ctx) error {
	records := s.deps.DB.Faces()
	entries := make([]faceEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, faceEntry{
			ID:        r.ID,
			Name:      r.Name,
			Enrolled:  r.Enrolled,
			LastSeen:  r.LastSeen,
			SeenCount: r.SeenCount,
		})
	}
	return c.JSON(fiber.Map{"faces": entries})
}

// handleFaceRegister enrolls the most prominent face currently in
// frame under the given name.
func (s *Server) handleFaceRegister(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "a name is required",
		})
	}
	snap, ok := s.deps.Pipeline.Latest()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no perception data yet",
		})
	}
	face, ok := bestEnrollable(snap.Faces)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no face in frame",
		})
	}
	rec, err := s.deps.DB.Register(req.Name, face.Embedding)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":         rec.ID,
		"name":       rec.Name,
		"seen_count": rec.SeenCount,
	})
}

func (s *Server) handleFaceForget(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.deps.DB.Forget(name); err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "forgotten": name})
}

// handleRoomLearn snapshots the current frame's room signature under
// the given name.
func (s *Server) handleRoomLearn(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "a name is required",
		})
	}
	snap, ok := s.deps.Pipeline.Latest()
	if !ok || len(snap.Frame) == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame available",
		})
	}
	vector := perception.RoomSignature(snap.Frame)
	if vector == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "frame could not be fingerprinted",
		})
	}
	if err := s.deps.DB.LearnRoom(req.Name, vector); err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "room": req.Name})
}

// handleVoiceInbox hands out pending transcripts. Each message is
// delivered once.
func (s *Server) handleVoiceInbox(c *fiber.Ctx) error {
	msgs := s.deps.Inbox.Drain()
	return c.JSON(fiber.Map{
		"messages": msgs,
		"dropped":  s.deps.Inbox.Dropped(),
	})
}

func (s *Server) handleVoiceRespond(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.sendError(c, command.ErrInvalidCommand)
	}
	speak := command.Speak{Text: req.Text}
	if err := speak.Validate(); err != nil {
		return s.sendError(c, err)
	}
	return s.execute(c, speak)
}

// execute runs a command through the executor and writes the result.
func (s *Server) execute(c *fiber.Ctx, cmd command.Command) error {
	res, err := s.deps.Executor.Execute(c.Context(), cmd)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":          true,
		"kind":        res.Kind,
		"completed":   res.Completed,
		"total":       res.Total,
		"failed_step": res.FailedStep,
		"elapsed_ms":  res.Elapsed.Milliseconds(),
	})
}

// sendError maps package sentinels to HTTP status codes.
func (s *Server) sendError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, command.ErrInvalidCommand):
		status = fiber.StatusBadRequest
	case errors.Is(err, facedb.ErrDuplicateLowConfidence):
		status = fiber.StatusConflict
	case errors.Is(err, facedb.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, facedb.ErrBadEmbedding):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, executor.ErrShuttingDown):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, hardware.ErrDaemonUnreachable):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, executor.ErrExecutionFailure):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// bestEnrollable picks the largest confident face that carries an
// embedding.
func bestEnrollable(faces []perception.FaceSighting) (perception.FaceSighting, bool) {
	var best perception.FaceSighting
	var bestScore float64
	found := false
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		score := f.Box.Confidence*0.7 + f.Box.Area()*0.3
		if !found || score > bestScore {
			best, bestScore, found = f, score, true
		}
	}
	return best, found
}
