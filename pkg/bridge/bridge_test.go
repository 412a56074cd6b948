package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/noxbotics/go-nox/pkg/emotions"
	"github.com/noxbotics/go-nox/pkg/executor"
	"github.com/noxbotics/go-nox/pkg/facedb"
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/latest"
	"github.com/noxbotics/go-nox/pkg/perception"
	"github.com/noxbotics/go-nox/pkg/sensors"
	"github.com/noxbotics/go-nox/pkg/vision"
	"github.com/noxbotics/go-nox/pkg/voice"
)

type fixture struct {
	server *Server
	mock   *hardware.Mock
	db     *facedb.DB
	inbox  *voice.Inbox
	pipe   *perception.Pipeline
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	mock := hardware.NewMock()
	exec := executor.New(mock)
	t.Cleanup(func() { exec.Close() })

	db := facedb.New(facedb.DefaultConfig())
	inbox := voice.NewInbox(8)
	captures := latest.NewCell[sensors.Capture]()
	pipe := perception.New(perception.DefaultConfig(), captures, &vision.MockFaceFinder{}, &vision.MockObjectFinder{}, db)

	srv := NewServer(cfg, Deps{
		Executor: exec,
		Pipeline: pipe,
		DB:       db,
		Inbox:    inbox,
		Emotions: emotions.NewRegistry(),
		Mode:     func() string { return "bridge" },
	})
	return &fixture{server: srv, mock: mock, db: db, inbox: inbox, pipe: pipe}
}

func (f *fixture) request(t *testing.T, method, path, body string, header map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := f.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]interface{}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		json.Unmarshal(raw, &parsed)
	}
	return resp.StatusCode, parsed
}

func TestHealthzOpenWithoutToken(t *testing.T) {
	f := newFixture(t, Config{Token: "secret"})
	status, body := f.request(t, "GET", "/healthz", "", nil)
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["ok"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, Config{Token: "secret"})

	status, _ := f.request(t, "GET", "/status", "", nil)
	if status != 401 {
		t.Fatalf("no token: status = %d, want 401", status)
	}

	status, _ = f.request(t, "GET", "/status", "", map[string]string{
		"Authorization": "Bearer wrong",
	})
	if status != 401 {
		t.Fatalf("wrong token: status = %d, want 401", status)
	}

	status, _ = f.request(t, "GET", "/status", "", map[string]string{
		"Authorization": "Bearer secret",
	})
	if status != 200 {
		t.Fatalf("good token: status = %d, want 200", status)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Config{RateLimit: 2, RateWindow: time.Minute})
	for i := 0; i < 2; i++ {
		if status, _ := f.request(t, "GET", "/status", "", nil); status != 200 {
			t.Fatalf("request %d: status = %d, want 200", i, status)
		}
	}
	if status, _ := f.request(t, "GET", "/status", "", nil); status != 429 {
		t.Fatalf("over limit: status = %d, want 429", status)
	}
}

func TestStatusReportsBodyAndMode(t *testing.T) {
	f := newFixture(t, Config{})
	status, body := f.request(t, "GET", "/status", "", nil)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["mode"] != "bridge" {
		t.Fatalf("mode = %v, want bridge", body["mode"])
	}
	if _, ok := body["body"]; !ok {
		t.Fatal("missing body state")
	}
}

func TestHeadPoseShowsInStatus(t *testing.T) {
	f := newFixture(t, Config{})
	status, _ := f.request(t, "POST", "/head", `{"yaw":10,"roll":0,"pitch":-5}`, nil)
	if status != 200 {
		t.Fatalf("head: status = %d", status)
	}
	_, body := f.request(t, "GET", "/status", "", nil)
	state, _ := body["body"].(map[string]interface{})
	if state == nil {
		t.Fatalf("body = %v", body)
	}
	pose, _ := state["pose"].(map[string]interface{})
	if pose == nil {
		t.Fatalf("state = %v", state)
	}
	if pose["yaw"] != float64(10) || pose["pitch"] != float64(-5) {
		t.Fatalf("pose = %v", pose)
	}
}

func TestCommandMove(t *testing.T) {
	f := newFixture(t, Config{})
	status, body := f.request(t, "POST", "/command", `{"cmd":"move","action":"wag_tail"}`, nil)
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["ok"] != true {
		t.Fatalf("body = %v", body)
	}
	if f.mock.CallCount("move:wag_tail") != 1 {
		t.Fatalf("move calls = %v", f.mock.CallList())
	}
}

func TestCommandInvalid(t *testing.T) {
	f := newFixture(t, Config{})
	status, _ := f.request(t, "POST", "/command", `{"cmd":"move","action":"moonwalk"}`, nil)
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if len(f.mock.CallList()) != 0 {
		t.Fatalf("hardware touched: %v", f.mock.CallList())
	}
}

func TestHeadOutOfRange(t *testing.T) {
	f := newFixture(t, Config{})
	status, _ := f.request(t, "POST", "/head", `{"yaw":200}`, nil)
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestComboEndpoint(t *testing.T) {
	f := newFixture(t, Config{})
	status, body := f.request(t, "POST", "/combo", `{"actions":["sit","wag_tail"],"speak":"hello","rgb":{"g":255,"mode":"breath"}}`, nil)
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["completed"] != float64(3) {
		t.Fatalf("completed = %v, want 3", body["completed"])
	}
	if f.mock.CallCount("speak:hello") != 1 {
		t.Fatalf("speak missing: %v", f.mock.CallList())
	}
}

func TestExpressFallsBackOnUnknownEmotion(t *testing.T) {
	f := newFixture(t, Config{})
	status, _ := f.request(t, "POST", "/express", `{"emotion":"bogus","text":"hm"}`, nil)
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	// curious is the fallback: head pose plus cyan breathing, no moves
	if f.mock.CallCount("head:") != 1 {
		t.Fatalf("head calls: %v", f.mock.CallList())
	}
}

func TestHardwareFaultMapsTo502(t *testing.T) {
	f := newFixture(t, Config{})
	f.mock.FailOn["move"] = errors.New("servo fault")
	status, _ := f.request(t, "POST", "/command", `{"cmd":"move","action":"sit"}`, nil)
	if status != 502 {
		t.Fatalf("status = %d, want 502", status)
	}
}

func TestLookWithoutPerception(t *testing.T) {
	f := newFixture(t, Config{})
	status, _ := f.request(t, "GET", "/look", "", nil)
	if status != 503 {
		t.Fatalf("status = %d, want 503", status)
	}
}

func TestLookReturnsSnapshot(t *testing.T) {
	f := newFixture(t, Config{})
	f.pipe.Cell().Publish(perception.Snapshot{
		Timestamp: time.Now(),
		Faces: []perception.FaceSighting{{
			Box:        vision.Detection{X: 0.2, Y: 0.2, W: 0.3, H: 0.3, Confidence: 0.9},
			Name:       "alice",
			Similarity: 0.88,
		}},
		Room: "kitchen",
	})
	status, body := f.request(t, "GET", "/look", "", nil)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	perc, _ := body["perception"].(map[string]interface{})
	if perc == nil {
		t.Fatalf("body = %v", body)
	}
	if perc["room"] != "kitchen" {
		t.Fatalf("room = %v", perc["room"])
	}
	faces, _ := perc["faces"].([]interface{})
	if len(faces) != 1 {
		t.Fatalf("faces = %v", perc["faces"])
	}
}

func TestPhoto(t *testing.T) {
	f := newFixture(t, Config{})
	frame := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	f.pipe.Cell().Publish(perception.Snapshot{Timestamp: time.Now(), Frame: frame})

	status, body := f.request(t, "GET", "/photo", "", nil)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	b64, _ := body["frame_b64"].(string)
	got, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("frame_b64 = %q: %v", b64, err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("frame mismatch: %v", got)
	}

	req := httptest.NewRequest("GET", "/photo?raw=1", nil)
	resp, err := f.server.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type = %q", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(raw, frame) {
		t.Fatalf("raw frame mismatch: %v", raw)
	}
}

func TestFaceRegisterAndList(t *testing.T) {
	f := newFixture(t, Config{})
	f.pipe.Cell().Publish(perception.Snapshot{
		Timestamp: time.Now(),
		Faces: []perception.FaceSighting{{
			Box:       vision.Detection{X: 0.1, Y: 0.1, W: 0.4, H: 0.4, Confidence: 0.95},
			Embedding: []float32{1, 0, 0},
		}},
	})

	status, body := f.request(t, "POST", "/face/register", `{"name":"Bob"}`, nil)
	if status != 200 {
		t.Fatalf("register: status = %d, body = %v", status, body)
	}
	if body["name"] != "Bob" {
		t.Fatalf("name = %v", body["name"])
	}

	status, body = f.request(t, "GET", "/faces", "", nil)
	if status != 200 {
		t.Fatalf("faces: status = %d", status)
	}
	faces, _ := body["faces"].([]interface{})
	if len(faces) != 1 {
		t.Fatalf("faces = %v", body["faces"])
	}
	entry := faces[0].(map[string]interface{})
	if _, leaked := entry["embedding"]; leaked {
		t.Fatal("embedding leaked over the wire")
	}
}

func TestFaceRegisterConflict(t *testing.T) {
	f := newFixture(t, Config{})
	if _, err := f.db.Register("alice", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	f.pipe.Cell().Publish(perception.Snapshot{
		Timestamp: time.Now(),
		Faces: []perception.FaceSighting{{
			Box:       vision.Detection{W: 0.4, H: 0.4, Confidence: 0.95},
			Embedding: []float32{1, 0, 0},
		}},
	})
	status, _ := f.request(t, "POST", "/face/register", `{"name":"mallory"}`, nil)
	if status != 409 {
		t.Fatalf("status = %d, want 409", status)
	}
}

func TestFaceRegisterNoFace(t *testing.T) {
	f := newFixture(t, Config{})
	f.pipe.Cell().Publish(perception.Snapshot{Timestamp: time.Now()})
	status, _ := f.request(t, "POST", "/face/register", `{"name":"bob"}`, nil)
	if status != 404 {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestFaceForget(t *testing.T) {
	f := newFixture(t, Config{})
	if _, err := f.db.Register("alice", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	status, _ := f.request(t, "DELETE", "/face/alice", "", nil)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if len(f.db.Faces()) != 0 {
		t.Fatal("record survived forget")
	}

	status, _ = f.request(t, "DELETE", "/face/nobody", "", nil)
	if status != 404 {
		t.Fatalf("unknown name: status = %d, want 404", status)
	}
}

func TestVoiceInboxDrain(t *testing.T) {
	f := newFixture(t, Config{})
	f.inbox.Add("hello there")
	f.inbox.Add("good dog")

	status, body := f.request(t, "GET", "/voice/inbox", "", nil)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	msgs, _ := body["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}

	_, body = f.request(t, "GET", "/voice/inbox", "", nil)
	msgs, _ = body["messages"].([]interface{})
	if len(msgs) != 0 {
		t.Fatalf("second drain returned %v", body["messages"])
	}
}

func TestVoiceRespond(t *testing.T) {
	f := newFixture(t, Config{})
	status, _ := f.request(t, "POST", "/voice/respond", `{"text":"hi human"}`, nil)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if f.mock.CallCount("speak:hi human") != 1 {
		t.Fatalf("speak calls: %v", f.mock.CallList())
	}
}
