package bridge

import (
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/perception"
	"github.com/noxbotics/go-nox/pkg/protocol"
)

// snapshotReport converts a perception snapshot to its wire form.
// Faces and objects are always non-nil slices so the brain never has
// to null-check.
func snapshotReport(snap perception.Snapshot, readings *hardware.SensorReadings) protocol.PerceptionReport {
	report := protocol.PerceptionReport{
		Faces:   make([]protocol.FaceReport, 0, len(snap.Faces)),
		Objects: make([]protocol.ObjectReport, 0, len(snap.Objects)),
		Room:    snap.Room,
		Scene:   snap.Scene,
	}
	for _, f := range snap.Faces {
		report.Faces = append(report.Faces, protocol.FaceReport{
			Name:       f.Name,
			Similarity: f.Similarity,
			X:          f.Box.X,
			Y:          f.Box.Y,
			W:          f.Box.W,
			H:          f.Box.H,
			Confidence: f.Box.Confidence,
		})
	}
	for _, o := range snap.Objects {
		report.Objects = append(report.Objects, protocol.ObjectReport{
			Label:      o.Label,
			Confidence: o.Confidence,
			X:          o.Box.X,
			Y:          o.Box.Y,
			W:          o.Box.W,
			H:          o.Box.H,
		})
	}
	if readings != nil {
		if readings.Speech != "" || readings.SoundDetected {
			report.Audio = &protocol.AudioReport{
				Speech:    readings.Speech,
				Direction: readings.SoundDirection,
			}
		}
		report.Sensors = &protocol.SensorReport{
			BatteryVolts:   readings.BatteryVolts,
			BatteryPct:     readings.BatteryPct,
			Touch:          readings.Touch,
			Pitch:          readings.Pitch,
			Roll:           readings.Roll,
			SoundDetected:  readings.SoundDetected,
			SoundDirection: readings.SoundDirection,
			DistanceCM:     readings.DistanceCM,
		}
	}
	return report
}

// latestReadings fetches the most recent sensor sample if the deps
// provide one.
func (s *Server) latestReadings() *hardware.SensorReadings {
	if s.deps.Readings == nil {
		return nil
	}
	r, ok := s.deps.Readings()
	if !ok {
		return nil
	}
	return &r
}
