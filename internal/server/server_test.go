package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeongen/internal/archive"
	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/config"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/generator"
)

func newTestServer(t *testing.T, cfg config.ServerConfig, options ...Option) (*Server, *httptest.Server) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default error: %v", err)
	}
	wanderers, err := catalog.DefaultWanderers()
	if err != nil {
		t.Fatalf("catalog.DefaultWanderers error: %v", err)
	}

	s := New(cfg, cat, wanderers, generator.DefaultOptions(), options...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
		ts.Close()
	})
	return s, ts
}

func testConfig() config.ServerConfig {
	return config.DefaultConfig().Server
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func request(t *testing.T, conn *websocket.Conn, req any) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
}

func next(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	return m
}

// until reads messages up to the first result or error.
func until(t *testing.T, conn *websocket.Conn) (progress []Message, last Message) {
	t.Helper()
	for {
		m := next(t, conn)
		switch m.Type {
		case MessageResult, MessageError:
			return progress, m
		case MessageProgress:
			progress = append(progress, m)
		}
	}
}

func TestGenerateOverWebSocket(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	conn := dial(t, ts)

	request(t, conn, Request{Seed: "0000000001", Strategy: "maze", Floors: 2})

	started := next(t, conn)
	if started.Type != MessageStarted {
		t.Fatalf("first message = %+v, want started", started)
	}
	if started.Seed != "0000000001" || started.RunKey != "maze_0000000001_0_nocheat" {
		t.Errorf("started = %+v", started)
	}

	progress, result := until(t, conn)
	if result.Type != MessageResult {
		t.Fatalf("generation failed: %s", result.Error)
	}

	accepted := map[int]bool{}
	for _, m := range progress {
		if m.Event == nil {
			t.Fatalf("progress without event: %+v", m)
		}
		if m.Event.Kind == generator.EventRefined {
			t.Error("refine events should not be streamed")
		}
		if m.Event.Kind == generator.EventFloorAccepted {
			accepted[m.Event.Level] = true
		}
	}
	if !accepted[0] || !accepted[1] {
		t.Errorf("accepted progress for levels %v, want 0 and 1", accepted)
	}

	if len(result.Floors) != 2 {
		t.Fatalf("got %d floors, want 2", len(result.Floors))
	}
	entry := s.catalog.Roles().Entry
	for i, f := range result.Floors {
		if f.Level != i {
			t.Errorf("floor %d has level %d", i, f.Level)
		}
		if len(f.Bin) != export.BinSize {
			t.Fatalf("floor %d bin is %d bytes, want %d", i, len(f.Bin), export.BinSize)
		}
		if f.Digest != archive.Digest(f.Bin) {
			t.Errorf("floor %d digest mismatch", i)
		}
		l, err := export.UnmarshalBin(f.Bin)
		if err != nil {
			t.Fatalf("UnmarshalBin error: %v", err)
		}
		if i == 0 {
			if f.Entry != (Cell{X: 50, Y: 50}) {
				t.Errorf("floor 0 entry = %+v", f.Entry)
			}
			if got := l.At(generator.DefaultEntry); got != entry {
				t.Errorf("floor 0 centre = %s, want entry %s", got, entry)
			}
		}
	}
	if result.Floors[1].Entry != result.Floors[0].StairsDown {
		t.Errorf("floor 1 entry %+v should be floor 0 stairs %+v", result.Floors[1].Entry, result.Floors[0].StairsDown)
	}
}

func TestBadRequestKeepsSession(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if m := next(t, conn); m.Type != MessageError || !strings.Contains(m.Error, "bad request") {
		t.Errorf("malformed frame: got %+v", m)
	}

	request(t, conn, map[string]any{"strategy": "maze", "colour": "red"})
	if m := next(t, conn); m.Type != MessageError {
		t.Errorf("unknown field: got %+v", m)
	}

	request(t, conn, Request{Strategy: "cellular", Floors: 1})
	if m := next(t, conn); m.Type != MessageError || !strings.Contains(m.Error, "cellular") {
		t.Errorf("unknown strategy: got %+v", m)
	}

	request(t, conn, Request{Seed: "12ab", Floors: 1})
	if m := next(t, conn); m.Type != MessageError {
		t.Errorf("bad seed: got %+v", m)
	}
}

func TestFloorLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFloors = 3
	_, ts := newTestServer(t, cfg)
	conn := dial(t, ts)

	request(t, conn, Request{Strategy: "maze", Floors: 5})
	m := next(t, conn)
	if m.Type != MessageError || !strings.Contains(m.Error, "too many floors") {
		t.Errorf("got %+v, want too many floors", m)
	}
}

func TestServerOptions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFloors = 10
	s, _ := newTestServer(t, cfg)

	opts, err := s.options(&Request{})
	if err != nil {
		t.Fatalf("options error: %v", err)
	}
	if opts.Floors != 10 {
		t.Errorf("default floors = %d, want the server cap 10", opts.Floors)
	}
	if opts.Strategy != generator.DefaultOptions().Strategy {
		t.Errorf("default strategy = %s", opts.Strategy)
	}

	opts, err = s.options(&Request{Strategy: "road", Param: 4, Floors: 2, CheatMode: true, Levels: []int{1}})
	if err != nil {
		t.Fatalf("options error: %v", err)
	}
	if opts.Strategy != "road" || opts.Param != 4 || opts.Floors != 2 || !opts.CheatMode || len(opts.Levels) != 1 {
		t.Errorf("options = %+v", opts)
	}

	if _, err := s.options(&Request{Floors: -1}); err == nil {
		t.Error("negative floors should be rejected")
	}
}

type memoryStore struct {
	saved []*generator.Dungeon
	id    uuid.UUID
}

func (m *memoryStore) SaveRun(_ context.Context, d *generator.Dungeon) (*archive.Run, error) {
	m.saved = append(m.saved, d)
	return &archive.Run{ID: m.id, Key: d.Options.RunKey()}, nil
}

func TestArchiveRequest(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		_, ts := newTestServer(t, testConfig())
		conn := dial(t, ts)
		request(t, conn, Request{Strategy: "maze", Floors: 1, Archive: true})
		if m := next(t, conn); m.Type != MessageError || !strings.Contains(m.Error, "archive") {
			t.Errorf("got %+v, want archive error", m)
		}
	})

	t.Run("with store", func(t *testing.T) {
		store := &memoryStore{id: uuid.New()}
		_, ts := newTestServer(t, testConfig(), WithRunStore(store))
		conn := dial(t, ts)
		request(t, conn, Request{Seed: "0000000007", Strategy: "maze", Floors: 1, Archive: true})

		_, result := until(t, conn)
		if result.Type != MessageResult {
			t.Fatalf("generation failed: %s", result.Error)
		}
		if result.RunID != store.id.String() {
			t.Errorf("run id = %q, want %q", result.RunID, store.id)
		}
		if len(store.saved) != 1 || store.saved[0].Options.Seed != "0000000007" {
			t.Errorf("store received %d dungeons", len(store.saved))
		}
	})
}

func TestCatalogEndpoint(t *testing.T) {
	s, ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/catalog")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var legend []LegendEntry
	if err := json.NewDecoder(resp.Body).Decode(&legend); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(legend) != s.catalog.Len() {
		t.Fatalf("legend has %d entries, catalog has %d", len(legend), s.catalog.Len())
	}
	for _, e := range legend {
		c, ok := s.catalog.Color(e.ID)
		if !ok || c.String() != e.Color {
			t.Errorf("legend %s colour %s, catalog %s", e.Code, e.Color, c)
		}
	}

	post, err := http.Post(ts.URL+"/catalog", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", post.StatusCode)
	}
}

func TestOriginRejected(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	header := http.Header{}
	header.Set("Origin", "http://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestConnectionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Connections = config.ConnectionsConfig{MaxPerIP: 1}
	s, ts := newTestServer(t, cfg)

	dial(t, ts)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err == nil {
		t.Fatal("second session from the same IP should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("response = %v, want 429", resp)
	}

	// Proxy headers are ignored unless trusted.
	spoofed := http.Header{}
	spoofed.Set("X-Forwarded-For", "203.0.113.50")
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), spoofed); err == nil {
		t.Error("a forged X-Forwarded-For bypassed the per-IP limit")
	} else if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("spoofed response = %v, want 429", resp)
	}
	if total, _ := s.limiter.Stats(); total != 1 {
		t.Errorf("limiter holds %d sessions, want 1", total)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	conn := dial(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("session should be closed after shutdown")
	}
	if total, _ := s.limiter.Stats(); total != 0 {
		t.Errorf("limiter holds %d sessions after shutdown", total)
	}

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("upgrade after shutdown status = %d, want 503", resp.StatusCode)
	}
}
