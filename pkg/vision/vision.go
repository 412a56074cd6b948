// Package vision provides the perception backends: YuNet face
// detection with SFace embeddings, YOLOv8 object detection, and an
// optional remote scene describer.
package vision

// Detection is a bounding box in 0-1 normalized image coordinates.
type Detection struct {
	X, Y       float64 `json:"x"`
	W, H       float64 `json:"w"`
	Confidence float64 `json:"confidence"`
}

// Center returns the center point of the detection.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Face is a detected face with its identity embedding.
type Face struct {
	Detection

	// Embedding is the SFace feature vector, 128 floats. Empty when
	// the encoder is disabled.
	Embedding []float32
}

// Object is a detected object with its class label.
type Object struct {
	Detection
	ClassID int
	Label   string
}

// FaceFinder locates faces in a JPEG frame and encodes them.
type FaceFinder interface {
	FindFaces(jpeg []byte) ([]Face, error)
	Close() error
}

// ObjectFinder locates labeled objects in a JPEG frame.
type ObjectFinder interface {
	FindObjects(jpeg []byte) ([]Object, error)
	Close() error
}

// BestFace picks the most prominent face from a set of detections,
// weighing confidence over apparent size.
func BestFace(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}
	if len(faces) == 1 {
		return &faces[0]
	}

	maxArea := 0.0
	for _, f := range faces {
		if f.Area() > maxArea {
			maxArea = f.Area()
		}
	}

	bestScore := -1.0
	var best *Face
	for i := range faces {
		score := faces[i].Confidence*0.7 + (faces[i].Area()/maxArea)*0.3
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}
	return best
}
