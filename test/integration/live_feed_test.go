package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/site-analyzer/portal/internal/realtime"
)

func (f *portalFixture) dialFeed(ctx context.Context, t *testing.T, token string) (*websocket.Conn, error) {
	t.Helper()
	url := strings.Replace(f.baseURL, "https://", "wss://", 1) + "/ws/traffic"
	opts := &websocket.DialOptions{HTTPClient: f.client}
	if token != "" {
		opts.Subprotocols = []string{token}
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	return conn, err
}

func readFeedFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var msg realtime.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return msg
}

func TestLiveFeedEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f := newPortalServer(t)
	f.register(t, "admin-viewer", "Valid#Pass1234")
	f.promoteToAdmin(t, "admin-viewer")
	access := f.login(t, "admin-viewer", "Valid#Pass1234")

	conn, err := f.dialFeed(ctx, t, access)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	defer conn.CloseNow()

	initial := readFeedFrame(ctx, t, conn)
	if initial.Type != realtime.MessageTypeInitial {
		t.Fatalf("first frame type = %q, want initial", initial.Type)
	}
	// Registration and login already flowed through the capture middleware.
	if len(initial.Logs) < 2 {
		t.Fatalf("initial backlog = %d entries, want at least register and login", len(initial.Logs))
	}

	resp, _ := f.doJSON(t, http.MethodGet, "/api/version", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("version: status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("never saw the version request on the live feed")
		}
		update := readFeedFrame(ctx, t, conn)
		if update.Type != realtime.MessageTypeUpdate || update.Log == nil {
			t.Fatalf("frame = %+v, want update", update)
		}
		if update.Log.Endpoint == "/api/version" && update.Log.Method == http.MethodGet {
			if update.Log.StatusCode != http.StatusOK {
				t.Fatalf("feed status = %d, want 200", update.Log.StatusCode)
			}
			break
		}
	}
}

func TestLiveFeedRejectsNonAdmin(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f := newPortalServer(t)
	f.register(t, "plain-user", "Valid#Pass1234")
	access := f.login(t, "plain-user", "Valid#Pass1234")

	conn, err := f.dialFeed(ctx, t, access)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	defer conn.CloseNow()

	_, _, err = conn.Read(ctx)
	if err == nil {
		t.Fatal("expected the server to close a non-admin connection")
	}
	if got := websocket.CloseStatus(err); got != realtime.CloseUnauthorized {
		t.Fatalf("close status = %d, want %d", got, realtime.CloseUnauthorized)
	}
}
