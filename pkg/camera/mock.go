package camera

import "sync"

// StaticSource is a Source that returns a fixed frame, for tests.
type StaticSource struct {
	mu    sync.Mutex
	Frame []byte
	Err   error
	grabs int
}

// NewStaticSource returns a source yielding the given JPEG bytes.
func NewStaticSource(frame []byte) *StaticSource {
	return &StaticSource{Frame: frame}
}

func (s *StaticSource) Capture() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grabs++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]byte, len(s.Frame))
	copy(out, s.Frame)
	return out, nil
}

func (s *StaticSource) Close() error { return nil }

// Grabs returns how many frames were requested.
func (s *StaticSource) Grabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grabs
}

// SetErr scripts the next captures to fail.
func (s *StaticSource) SetErr(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}
