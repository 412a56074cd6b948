package vision

import (
	"context"
	"sync"
	"time"
)

// MockFaceFinder returns scripted faces, for pipeline tests.
type MockFaceFinder struct {
	mu    sync.Mutex
	Faces []Face
	Err   error
	calls int
}

func (m *MockFaceFinder) FindFaces(jpeg []byte) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Face, len(m.Faces))
	copy(out, m.Faces)
	return out, nil
}

func (m *MockFaceFinder) Close() error { return nil }

// Calls returns how many frames were processed.
func (m *MockFaceFinder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Set replaces the scripted faces.
func (m *MockFaceFinder) Set(faces []Face) {
	m.mu.Lock()
	m.Faces = faces
	m.mu.Unlock()
}

// MockObjectFinder returns scripted objects.
type MockObjectFinder struct {
	mu      sync.Mutex
	Objects []Object
	Err     error
}

func (m *MockObjectFinder) FindObjects(jpeg []byte) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Object, len(m.Objects))
	copy(out, m.Objects)
	return out, nil
}

func (m *MockObjectFinder) Close() error { return nil }

// Set replaces the scripted objects.
func (m *MockObjectFinder) Set(objects []Object) {
	m.mu.Lock()
	m.Objects = objects
	m.mu.Unlock()
}

// MockDescriber returns a fixed description after an optional delay,
// for deadline tests.
type MockDescriber struct {
	Text  string
	Err   error
	Delay time.Duration
}

func (m *MockDescriber) Describe(ctx context.Context, jpeg []byte) (string, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
