// bodyd is the always-on body process: it owns the camera and the
// servo daemon, runs the perception pipeline and face memory, serves
// the brain over HTTP and websocket, and falls back to local reactions
// when the brain disappears.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noxbotics/go-nox/internal/config"
	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/bridge"
	"github.com/noxbotics/go-nox/pkg/camera"
	"github.com/noxbotics/go-nox/pkg/emotions"
	"github.com/noxbotics/go-nox/pkg/executor"
	"github.com/noxbotics/go-nox/pkg/facedb"
	"github.com/noxbotics/go-nox/pkg/fallback"
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/perception"
	"github.com/noxbotics/go-nox/pkg/sensors"
	"github.com/noxbotics/go-nox/pkg/vision"
	"github.com/noxbotics/go-nox/pkg/voice"
)

func main() {
	configPath := flag.String("config", "", "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)
	log.Info("bodyd starting",
		"listen", cfg.ListenAddr(),
		"daemon", cfg.DaemonAddr(),
		"brain", cfg.BrainURL)

	if err := run(cfg); err != nil {
		log.Error("bodyd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Hardware daemon adapter. The daemon may not be up yet; the
	// sensor loop and executor report per-call errors.
	body := hardware.NewDaemonAdapter(cfg.DaemonAddr())
	defer body.Close()

	exec := executor.New(body)

	// Camera is optional: a headless body still moves and speaks.
	var cam camera.Source
	camCfg := camera.DefaultConfig()
	camCfg.Device = cfg.CameraDevice
	camCfg.Width = cfg.CameraWidth
	camCfg.Height = cfg.CameraHeight
	webcam, err := camera.Open(camCfg)
	if err != nil {
		log.Warn("camera unavailable, running blind", "error", err)
	} else {
		cam = webcam
		defer webcam.Close()
	}

	// Vision models are optional too; each missing model disables
	// one capability.
	var faces vision.FaceFinder = &vision.MockFaceFinder{}
	if f, err := vision.NewYuNetFinder(vision.DefaultFaceConfig(cfg.ModelDir)); err != nil {
		log.Warn("face detection disabled", "error", err)
	} else {
		faces = f
		defer f.Close()
	}
	var objects vision.ObjectFinder = &vision.MockObjectFinder{}
	if o, err := vision.NewYOLOFinder(objectConfig(cfg)); err != nil {
		log.Warn("object detection disabled", "error", err)
	} else {
		objects = o
		defer o.Close()
	}

	db, err := openMemory(cfg)
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	defer db.Close()

	loopCfg := sensors.DefaultLoopConfig()
	loopCfg.Interval = cfg.CaptureInterval
	loop := sensors.NewLoop(loopCfg, cam, body)
	loop.OnBattery = exec.UpdateBattery

	inbox := voice.NewInbox(0)

	pipe := perception.New(perception.DefaultConfig(), loop.Cell(), faces, objects, db)
	pipe.Inbox = inbox
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		pipe.Describer = vision.NewGeminiDescriber(key)
		log.Info("scene description enabled")
	}

	fbCfg := fallback.DefaultConfig()
	fbCfg.BrainURL = cfg.BrainURL
	fbCfg.ProbeInterval = cfg.ProbeInterval
	fbCfg.ProbeWindow = cfg.ProbeWindow
	fbCfg.ListenAddr = cfg.FallbackAddr()
	fbCfg.BatteryLow = cfg.BatteryLow
	fbCfg.BatteryCritical = cfg.BatteryCritical
	ctrl := fallback.New(fbCfg, exec, loop.Cell())

	srv := bridge.NewServer(bridge.Config{
		Token:      cfg.APIToken,
		RateLimit:  cfg.RateLimit,
		RateWindow: time.Duration(cfg.RateWindow) * time.Second,
	}, bridge.Deps{
		Executor: exec,
		Pipeline: pipe,
		DB:       db,
		Inbox:    inbox,
		Emotions: emotions.NewRegistry(),
		Health:   loop.Health,
		Readings: func() (hardware.SensorReadings, bool) {
			sample, _, ok := loop.Cell().Load()
			return sample.Readings, ok && sample.ReadingsOK
		},
		Mode:  ctrl.Mode,
		Alive: ctrl.MarkAlive,
	})
	ctrl.OnEvent = srv.NotifyEvent

	go loop.Run(ctx)
	go pipe.Run(ctx)
	go ctrl.Run(ctx)
	go srv.PushReports(ctx)
	go func() {
		if err := ctrl.Serve(ctx); err != nil {
			log.Error("fallback transport failed", "error", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(cfg.ListenAddr()) }()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("bridge server: %w", err)
		}
	}

	// Refuse new work, stop the server, then park the body.
	exec.Shutdown()
	if err := srv.Shutdown(); err != nil {
		log.Warn("server shutdown", "error", err)
	}
	cancel()
	if err := exec.Close(); err != nil {
		log.Warn("park failed", "error", err)
	}
	log.Info("bodyd stopped")
	return nil
}

func objectConfig(cfg config.Config) vision.ObjectConfig {
	oc := vision.DefaultObjectConfig(cfg.ModelDir)
	if cfg.ObjectThreshold > 0 {
		oc.ScoreThreshold = float32(cfg.ObjectThreshold)
	}
	return oc
}

func openMemory(cfg config.Config) (*facedb.DB, error) {
	dbCfg := facedb.DefaultConfig()
	if cfg.FaceThreshold > 0 {
		dbCfg.FaceThreshold = cfg.FaceThreshold
	}

	var store facedb.Store
	switch cfg.MemoryBackend {
	case "sqlite":
		s, err := facedb.NewSQLiteStore(cfg.MemoryPath)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		store = facedb.NewJSONStore(cfg.MemoryPath)
	}
	return facedb.NewWithStore(dbCfg, store)
}
