package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrCaptureFailed marks frame grabs that returned no image.
var ErrCaptureFailed = errors.New("camera: capture failed")

// Source yields JPEG frames. Implementations are safe for use from a
// single capture loop; they need not support concurrent Capture calls.
type Source interface {
	Capture() ([]byte, error)
	Close() error
}

// Webcam is a Source over an OpenCV video capture device.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	config Config
}

// Open opens the configured capture device.
func Open(cfg Config) (*Webcam, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("camera config: %v", problems)
	}

	cap, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}
	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Webcam{
		cap:    cap,
		frame:  gocv.NewMat(),
		config: cfg,
	}, nil
}

// Config returns the capture configuration.
func (w *Webcam) Config() Config {
	return w.config
}

// Capture grabs one frame and returns it JPEG-encoded.
func (w *Webcam) Capture() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.cap.Read(&w.frame) || w.frame.Empty() {
		return nil, fmt.Errorf("%w: device %d returned no frame", ErrCaptureFailed, w.config.Device)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.frame,
		[]int{gocv.IMWriteJpegQuality, w.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the capture device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frame.Close()
	return w.cap.Close()
}
