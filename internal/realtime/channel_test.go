package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ojcli/internal/realtime"
)

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// pushServer is a minimal websocket endpoint that records registrations
// and lets the test push frames to the most recent connection.
type pushServer struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conn       *websocket.Conn
	registered []string
}

func (s *pushServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	for {
		var f wireFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Event == "register" {
			var payload realtime.RegisterPayload
			_ = json.Unmarshal(f.Data, &payload)
			s.mu.Lock()
			s.registered = append(s.registered, payload.UserID)
			s.mu.Unlock()
		}
	}
}

func (s *pushServer) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal push payload failed: %v", err)
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		t.Fatalf("no connection to push to")
	}
	if err := conn.WriteJSON(wireFrame{Event: event, Data: data}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
}

func (s *pushServer) registeredIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.registered))
	copy(out, s.registered)
	return out
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestConnectIsIdempotent(t *testing.T) {
	t.Parallel()
	srv := &pushServer{}
	server := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer server.Close()

	ch := realtime.New(wsURL(server))
	defer ch.Close()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}
}

func TestRegisterIdentityAndReceiveEvent(t *testing.T) {
	t.Parallel()
	srv := &pushServer{}
	server := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer server.Close()

	ch := realtime.New(wsURL(server))
	defer ch.Close()

	var mu sync.Mutex
	var received []realtime.TestCaseResultPayload
	ch.OnEvent(realtime.EventTestCaseResult, func(payload json.RawMessage) {
		var p realtime.TestCaseResultPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			t.Errorf("unmarshal payload failed: %v", err)
			return
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	})

	if err := ch.RegisterIdentity(context.Background(), "user-1"); err != nil {
		t.Fatalf("register identity failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(srv.registeredIDs()) == 1
	})

	srv.push(t, realtime.EventTestCaseResult, realtime.TestCaseResultPayload{
		SubmissionID: "sub-1",
		TestCaseID:   "tc-1",
		StatusID:     3,
	})
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	got := received[0]
	mu.Unlock()
	if got.SubmissionID != "sub-1" || got.TestCaseID != "tc-1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestOffStopsDelivery(t *testing.T) {
	t.Parallel()
	srv := &pushServer{}
	server := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer server.Close()

	ch := realtime.New(wsURL(server))
	defer ch.Close()

	var mu sync.Mutex
	count := 0
	subID := ch.OnEvent(realtime.EventSubmissionResult, func(json.RawMessage) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.conn != nil
	})

	srv.push(t, realtime.EventSubmissionResult, realtime.SubmissionResultPayload{SubmissionID: "sub-1"})
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	ch.Off(realtime.EventSubmissionResult, subID)
	srv.push(t, realtime.EventSubmissionResult, realtime.SubmissionResultPayload{SubmissionID: "sub-2"})

	// Give the discarded event time to (not) arrive.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	final := count
	mu.Unlock()
	if final != 1 {
		t.Fatalf("expected 1 delivery after Off, got %d", final)
	}
}

func TestReconnectReissuesRegistration(t *testing.T) {
	t.Parallel()
	srv := &pushServer{}
	server := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer server.Close()

	ch := realtime.New(wsURL(server))
	defer ch.Close()

	if err := ch.RegisterIdentity(context.Background(), "user-9"); err != nil {
		t.Fatalf("register identity failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(srv.registeredIDs()) == 1
	})

	// Kill the server side of the connection; the channel should dial
	// again and re-register on its own.
	srv.mu.Lock()
	_ = srv.conn.Close()
	srv.mu.Unlock()

	waitFor(t, 5*time.Second, func() bool {
		ids := srv.registeredIDs()
		return len(ids) == 2 && ids[1] == "user-9"
	})
}
