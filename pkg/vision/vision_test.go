package vision

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBestFace(t *testing.T) {
	tests := []struct {
		name  string
		faces []Face
		want  int // index into faces, -1 for nil
	}{
		{"empty", nil, -1},
		{"single", []Face{{Detection: Detection{W: 0.1, H: 0.1, Confidence: 0.5}}}, 0},
		{
			"confidence wins over area",
			[]Face{
				{Detection: Detection{W: 0.5, H: 0.5, Confidence: 0.5}},
				{Detection: Detection{W: 0.2, H: 0.2, Confidence: 0.95}},
			},
			1,
		},
		{
			"area breaks near-equal confidence",
			[]Face{
				{Detection: Detection{W: 0.1, H: 0.1, Confidence: 0.9}},
				{Detection: Detection{W: 0.4, H: 0.4, Confidence: 0.9}},
			},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestFace(tt.faces)
			if tt.want == -1 {
				if got != nil {
					t.Fatalf("want nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("want face, got nil")
			}
			if *got != tt.faces[tt.want] {
				t.Errorf("got %+v, want index %d", got, tt.want)
			}
		})
	}
}

func TestDetectionGeometry(t *testing.T) {
	d := Detection{X: 0.2, Y: 0.4, W: 0.2, H: 0.1}
	cx, cy := d.Center()
	if cx != 0.3 || cy != 0.45 {
		t.Errorf("center: got (%v, %v)", cx, cy)
	}
	if a := d.Area(); a < 0.0199 || a > 0.0201 {
		t.Errorf("area: got %v", a)
	}
}

func TestMockDescriberHonorsDeadline(t *testing.T) {
	d := &MockDescriber{Text: "a kitchen", Delay: 100 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.Describe(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}

	got, err := d.Describe(context.Background(), nil)
	if err != nil || got != "a kitchen" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestCOCOClassCount(t *testing.T) {
	if len(COCOClasses) != 80 {
		t.Fatalf("COCO classes: got %d, want 80", len(COCOClasses))
	}
}

func TestGeminiDescriberUsesTimeoutClient(t *testing.T) {
	d := NewGeminiDescriber("key")
	if d.Client == nil {
		t.Fatal("describer has no HTTP client")
	}
	if d.Client.Timeout == 0 {
		t.Error("describer client has no timeout")
	}
}
