package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/command"
	"github.com/noxbotics/go-nox/pkg/sensors"
)

// reactionCooldown keeps the dog from wagging continuously while a
// hand rests on its head.
const reactionCooldown = 10 * time.Second

// reactLoop consumes sensor captures and runs local reactions. It
// watches in every mode (battery alerts fire regardless) but only
// moves the body while autonomous.
func (c *Controller) reactLoop(ctx context.Context) {
	if c.caps == nil {
		return
	}
	for {
		changed := c.caps.Changed()
		for {
			sample, seq, ok := c.caps.LoadNewer(c.seq())
			if !ok {
				break
			}
			c.setSeq(seq)
			if sample.ReadingsOK {
				c.react(ctx, sample)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

func (c *Controller) seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

func (c *Controller) setSeq(seq uint64) {
	c.mu.Lock()
	c.lastSeq = seq
	c.mu.Unlock()
}

func (c *Controller) react(ctx context.Context, sample sensors.Capture) {
	r := sample.Readings
	now := time.Now()

	c.mu.Lock()
	autonomous := c.state == StateAutonomous
	low := r.BatteryVolts > 0 && r.BatteryVolts <= c.cfg.BatteryLow
	critical := r.BatteryVolts > 0 && r.BatteryVolts <= c.cfg.BatteryCritical
	sayLow := low && !c.lowSaid
	sayCritical := critical && !c.critSaid
	if !low {
		c.lowSaid, c.critSaid = false, false
	}
	if sayLow {
		c.lowSaid = true
	}
	if sayCritical {
		c.critSaid = true
	}
	touchDue := autonomous && r.Touched && now.Sub(c.lastTouch) >= reactionCooldown
	soundDue := autonomous && r.SoundDetected && now.Sub(c.lastSound) >= reactionCooldown
	if touchDue {
		c.lastTouch = now
	}
	if soundDue {
		c.lastSound = now
	}
	c.mu.Unlock()

	if sayCritical {
		c.event("battery_critical", fmt.Sprintf("%.2fV", r.BatteryVolts))
		c.execute(ctx, command.Combo{
			Steps: []command.Command{
				command.Normalize(command.Move{Action: "lie"}),
				command.RGB{R: 255, Mode: "boom", BPS: 2.0},
			},
			Speak: "Battery critical. I need a charge right now.",
		})
		return
	}
	if sayLow {
		c.event("battery_low", fmt.Sprintf("%.2fV", r.BatteryVolts))
		if autonomous {
			c.execute(ctx, command.Combo{
				Steps: []command.Command{
					command.Normalize(command.Move{Action: "lie"}),
					command.RGB{R: 255, Mode: "breath", BPS: 0.5},
				},
				Speak: "My battery is getting low.",
			})
			return
		}
	}

	if touchDue {
		c.execute(ctx, command.Combo{
			Steps: []command.Command{
				command.Normalize(command.Move{Action: "wag_tail"}),
			},
			Speak: "Hello!",
		})
		return
	}

	if soundDue {
		c.execute(ctx, command.Head{Yaw: clampYaw(r.SoundDirection)})
	}
}

func (c *Controller) event(event, detail string) {
	if c.OnEvent != nil {
		c.OnEvent(event, detail)
	}
}

func (c *Controller) execute(ctx context.Context, cmd command.Command) {
	if _, err := c.exec.Execute(ctx, cmd); err != nil {
		log.Warn("local reaction failed", "kind", string(cmd.Kind()), "error", err)
	}
}

// clampYaw maps a sound direction in degrees (0 front, positive right,
// wrapping at 360) onto the head's yaw range.
func clampYaw(direction float64) float64 {
	for direction > 180 {
		direction -= 360
	}
	for direction < -180 {
		direction += 360
	}
	if direction > command.YawMax {
		return command.YawMax
	}
	if direction < command.YawMin {
		return command.YawMin
	}
	return direction
}
