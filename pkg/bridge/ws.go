package bridge

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/command"
	"github.com/noxbotics/go-nox/pkg/hub"
	"github.com/noxbotics/go-nox/pkg/protocol"
)

// handleBrainWS attaches a brain session to the broadcast hub and
// dispatches its inbound messages.
func (s *Server) handleBrainWS(conn *websocket.Conn) {
	client := hub.NewClient(s.brainHub, conn)
	client.OnMessage = s.handleBrainMessage
	log.Info("brain connected", "remote", conn.RemoteAddr().String())
	client.Run()
}

// handleBrainMessage runs on the session's read pump. Actions execute
// on their own goroutine so a long combo never stalls the pump.
func (s *Server) handleBrainMessage(data []byte) {
	if s.deps.Alive != nil {
		s.deps.Alive()
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Warn("bad brain message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeAction:
		req, err := msg.GetActionRequest()
		if err != nil {
			log.Warn("bad action request", "error", err)
			return
		}
		go s.runAction(*req)

	case protocol.TypeExpress:
		req, err := msg.GetExpressRequest()
		if err != nil {
			log.Warn("bad express request", "error", err)
			return
		}
		go s.runExpress(*req)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		s.broadcast(pong)

	default:
		log.Warn("unexpected brain message type", "type", string(msg.Type))
	}
}

func (s *Server) runAction(req protocol.ActionRequest) {
	combo, err := actionToCombo(req)
	if err != nil {
		s.sendEvent("action_rejected", err.Error())
		return
	}
	res, err := s.deps.Executor.Execute(context.Background(), combo)
	if err != nil {
		s.sendEvent("action_failed", err.Error())
		return
	}
	log.Debug("brain action done", "completed", res.Completed, "elapsed", res.Elapsed)
}

func (s *Server) runExpress(req protocol.ExpressRequest) {
	combo, err := s.deps.Emotions.Compose(req.Emotion, req.Text)
	if err != nil {
		s.sendEvent("express_rejected", err.Error())
		return
	}
	if _, err := s.deps.Executor.Execute(context.Background(), combo); err != nil {
		s.sendEvent("express_failed", err.Error())
	}
}

// actionToCombo converts the wire action schema into an executable
// combo, filling movement defaults.
func actionToCombo(req protocol.ActionRequest) (command.Combo, error) {
	combo := command.Combo{Speak: req.Speak}
	for _, action := range req.Actions {
		combo.Steps = append(combo.Steps, command.Normalize(command.Move{Action: action}))
	}
	if req.Head != nil {
		combo.Steps = append(combo.Steps, command.Head{
			Yaw:   req.Head.Yaw,
			Roll:  req.Head.Roll,
			Pitch: req.Head.Pitch,
		})
	}
	if req.RGB != nil {
		combo.Steps = append(combo.Steps, command.Normalize(command.RGB{
			R:    req.RGB.R,
			G:    req.RGB.G,
			B:    req.RGB.B,
			Mode: req.RGB.Mode,
			BPS:  req.RGB.BPS,
		}))
	}
	if err := combo.Validate(); err != nil {
		return command.Combo{}, err
	}
	return combo, nil
}

// NotifyEvent pushes a named event to all connected brains. The
// degradation controller uses it to announce mode changes.
func (s *Server) NotifyEvent(event, detail string) {
	s.sendEvent(event, detail)
}

// sendEvent pushes an event message to all connected brains.
func (s *Server) sendEvent(event, detail string) {
	msg, err := protocol.NewEventMessage(event, detail)
	if err != nil {
		return
	}
	s.broadcast(msg)
}

func (s *Server) broadcast(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.brainHub.Broadcast(hub.NewJSONMessage(data))
}

// PushReports streams perception snapshots and voice transcripts to
// connected brains until ctx is cancelled. Snapshots produced while no
// brain is connected are skipped, not queued.
func (s *Server) PushReports(ctx context.Context) {
	cell := s.deps.Pipeline.Cell()
	var lastSeq uint64
	for {
		changed := cell.Changed()
		for {
			snap, seq, ok := cell.LoadNewer(lastSeq)
			if !ok {
				break
			}
			lastSeq = seq
			if s.brainHub.ClientCount() == 0 {
				continue
			}
			msg, err := protocol.NewPerceptionMessage(snapshotReport(snap, s.latestReadings()))
			if err != nil {
				continue
			}
			s.broadcast(msg)
			s.pushVoice()
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

// pushVoice forwards pending transcripts alongside perception pushes.
func (s *Server) pushVoice() {
	if s.deps.Inbox == nil || s.deps.Inbox.Pending() == 0 {
		return
	}
	pending := s.deps.Inbox.Drain()
	wire := make([]protocol.VoiceMessage, 0, len(pending))
	for _, m := range pending {
		wire = append(wire, protocol.VoiceMessage{
			ID:      m.ID,
			Text:    m.Text,
			HeardAt: m.HeardAt.UnixMilli(),
		})
	}
	msg, err := protocol.NewVoiceMessage(wire)
	if err != nil {
		return
	}
	s.broadcast(msg)
}
