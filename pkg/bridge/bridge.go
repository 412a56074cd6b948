// Package bridge is the HTTP and websocket surface of the body: the
// brain drives the robot and reads its senses through this server.
package bridge

import (
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/emotions"
	"github.com/noxbotics/go-nox/pkg/executor"
	"github.com/noxbotics/go-nox/pkg/facedb"
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/hub"
	"github.com/noxbotics/go-nox/pkg/perception"
	"github.com/noxbotics/go-nox/pkg/sensors"
	"github.com/noxbotics/go-nox/pkg/voice"
)

// Config holds the server's own settings.
type Config struct {
	// Token is the bearer token required from non-local clients.
	// Empty disables authentication.
	Token string

	// RateLimit is the number of requests allowed per RateWindow
	// from one non-local address.
	RateLimit  int
	RateWindow time.Duration
}

// Deps are the components the server exposes.
type Deps struct {
	Executor *executor.Executor
	Pipeline *perception.Pipeline
	DB       *facedb.DB
	Inbox    *voice.Inbox
	Emotions *emotions.Registry

	// Health reports sensor source availability.
	Health func() sensors.Health

	// Readings returns the most recent sensor sample.
	Readings func() (hardware.SensorReadings, bool)

	// Mode reports the degradation controller state
	// ("bridge" or "autonomous").
	Mode func() string

	// Alive, when set, is called on every authenticated remote
	// request so brain traffic counts as liveness.
	Alive func()
}

// Server is the body bridge HTTP server.
type Server struct {
	app      *fiber.App
	cfg      Config
	deps     Deps
	brainHub *hub.Hub
	started  time.Time
}

// NewServer builds the fiber app with all routes registered.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		brainHub: hub.New("brain"),
		started:  time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "nox-bridge",
		DisableStartupMessage: true,
		BodyLimit:             1 << 20,
	})

	app.Use(cors.New())

	// Each server gets its own registry so repeated construction
	// (tests, restarts) never collides in the global one.
	prom := fiberprometheus.NewWithRegistry(prometheus.NewRegistry(), "nox_bridge", "http", "", nil)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	// Liveness stays open; everything else goes through auth and the
	// rate limiter.
	app.Get("/healthz", s.handleHealthz)

	app.Use(s.authMiddleware())
	app.Use(s.limiterMiddleware())

	app.Get("/status", s.handleStatus)
	app.Get("/look", s.handleLook)
	app.Get("/photo", s.handlePhoto)

	app.Post("/command", s.handleCommand)
	app.Post("/head", s.handleHead)
	app.Post("/rgb", s.handleRGB)
	app.Post("/speak", s.handleSpeak)
	app.Post("/combo", s.handleCombo)
	app.Post("/express", s.handleExpress)

	app.Get("/faces", s.handleFaces)
	app.Post("/face/register", s.handleFaceRegister)
	app.Delete("/face/:name", s.handleFaceForget)
	app.Post("/room", s.handleRoomLearn)

	app.Get("/voice/inbox", s.handleVoiceInbox)
	app.Post("/voice/respond", s.handleVoiceRespond)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/brain", websocket.New(s.handleBrainWS))

	s.app = app
	return s
}

// Start runs the hub and listens on addr, blocking until shutdown.
func (s *Server) Start(addr string) error {
	if s.cfg.Token == "" {
		log.Warn("bridge running without an API token")
	}
	go s.brainHub.Run()
	log.Info("bridge listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub exposes the brain broadcast hub.
func (s *Server) Hub() *hub.Hub {
	return s.brainHub
}
