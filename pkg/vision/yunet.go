package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// FaceConfig holds paths and thresholds for the face pipeline.
type FaceConfig struct {
	// DetectorModel is the YuNet ONNX model path.
	DetectorModel string

	// EncoderModel is the SFace ONNX model path. Empty disables
	// embedding extraction; detections then carry no identity.
	EncoderModel string

	// ScoreThreshold drops detections below this confidence.
	ScoreThreshold float64

	InputWidth  int
	InputHeight int
}

// DefaultFaceConfig returns production defaults for YuNet + SFace.
func DefaultFaceConfig(modelDir string) FaceConfig {
	return FaceConfig{
		DetectorModel:  modelDir + "/face_detection_yunet.onnx",
		EncoderModel:   modelDir + "/face_recognition_sface.onnx",
		ScoreThreshold: 0.6,
		InputWidth:     320,
		InputHeight:    320,
	}
}

// YuNetFinder detects faces with OpenCV's FaceDetectorYN and encodes
// them with FaceRecognizerSF.
type YuNetFinder struct {
	detector gocv.FaceDetectorYN
	encoder  gocv.FaceRecognizerSF
	encode   bool
	config   FaceConfig
	mu       sync.Mutex // inference is not reentrant
}

// NewYuNetFinder loads the detector and, when configured, the encoder.
func NewYuNetFinder(cfg FaceConfig) (*YuNetFinder, error) {
	if _, err := os.Stat(cfg.DetectorModel); os.IsNotExist(err) {
		return nil, fmt.Errorf("face detector model not found: %s", cfg.DetectorModel)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.DetectorModel,
		"", // ONNX needs no config file
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ScoreThreshold),
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	f := &YuNetFinder{detector: detector, config: cfg}

	if cfg.EncoderModel != "" {
		if _, err := os.Stat(cfg.EncoderModel); os.IsNotExist(err) {
			detector.Close()
			return nil, fmt.Errorf("face encoder model not found: %s", cfg.EncoderModel)
		}
		f.encoder = gocv.NewFaceRecognizerSF(cfg.EncoderModel, "")
		f.encode = true
	}

	return f, nil
}

// FindFaces detects faces in the JPEG frame. When the encoder is
// loaded, each face carries its aligned SFace embedding.
func (f *YuNetFinder) FindFaces(jpeg []byte) ([]Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())
	f.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	rows := gocv.NewMat()
	defer rows.Close()
	f.detector.Detect(img, &rows)

	var faces []Face
	for r := 0; r < rows.Rows(); r++ {
		// YuNet row layout (15 columns): bbox x,y,w,h in pixels,
		// then 5 landmark pairs, then the face score at column 14.
		det := Detection{
			X:          float64(rows.GetFloatAt(r, 0)) / imgW,
			Y:          float64(rows.GetFloatAt(r, 1)) / imgH,
			W:          float64(rows.GetFloatAt(r, 2)) / imgW,
			H:          float64(rows.GetFloatAt(r, 3)) / imgH,
			Confidence: float64(rows.GetFloatAt(r, 14)),
		}

		face := Face{Detection: det}
		if f.encode {
			emb, err := f.embed(img, rows, r)
			if err != nil {
				return nil, err
			}
			face.Embedding = emb
		}
		faces = append(faces, face)
	}

	return faces, nil
}

// embed aligns one detected face and extracts its SFace feature.
func (f *YuNetFinder) embed(img, rows gocv.Mat, r int) ([]float32, error) {
	box := rows.RowRange(r, r+1)
	defer box.Close()

	aligned := gocv.NewMat()
	defer aligned.Close()
	f.encoder.AlignCrop(img, box, &aligned)
	if aligned.Empty() {
		return nil, fmt.Errorf("align face %d: empty crop", r)
	}

	feature := gocv.NewMat()
	defer feature.Close()
	f.encoder.Feature(aligned, &feature)

	data, err := feature.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read face feature: %w", err)
	}
	emb := make([]float32, len(data))
	copy(emb, data)
	return emb, nil
}

// Close releases the detector and encoder.
func (f *YuNetFinder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detector.Close()
	if f.encode {
		f.encoder.Close()
	}
	return nil
}
