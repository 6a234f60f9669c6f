package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeongen/internal/archive"
	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/config"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/generator"
	"github.com/lawnchairsociety/dungeongen/internal/logger"
	"github.com/lawnchairsociety/dungeongen/internal/terrain"
)

// RunStore files accepted dungeons. *archive.Archive implements it.
type RunStore interface {
	SaveRun(ctx context.Context, d *generator.Dungeon) (*archive.Run, error)
}

// Server streams dungeon generation to WebSocket clients.
type Server struct {
	cfg       config.ServerConfig
	catalog   *catalog.Catalog
	wanderers catalog.WandererTable
	defaults  generator.Options
	store     RunStore
	limiter   *ConnLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	sessions     map[*session]struct{}
	httpServer   *http.Server
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// Option customises a Server.
type Option func(*Server)

// WithRunStore lets clients archive the dungeons they generate.
func WithRunStore(store RunStore) Option {
	return func(s *Server) { s.store = store }
}

// New creates a server. defaults fill every field a request leaves zero.
func New(cfg config.ServerConfig, cat *catalog.Catalog, wanderers catalog.WandererTable, defaults generator.Options, options ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		catalog:   cat,
		wanderers: wanderers,
		defaults:  defaults,
		limiter:   NewConnLimiter(cfg.Connections),
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[*session]struct{}),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Handler routes /ws and /catalog.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/catalog", s.handleCatalog)
	return mux
}

// ListenAndServe serves on the configured address until Shutdown.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logger.Info("Generation service listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, cancels running generations and
// waits for open sessions to end or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		srv := s.httpServer
		for c := range s.sessions {
			c.close()
		}
		s.mu.Unlock()

		if srv != nil {
			err = srv.Shutdown(ctx)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

// handleWebSocketUpgrade upgrades /ws and runs the session on its own
// goroutine.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r, s.cfg.Connections.TrustProxyHeaders)

	if s.ctx.Err() != nil {
		http.Error(w, "Server shutting down.", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.limiter.Release(clientIP)
		return
	}

	c := newSession(conn, clientIP, s.cfg.WebSocket.MaxMessageSize)
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		c.close()
		s.limiter.Release(clientIP)
		return
	}
	s.sessions[c] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.handleSession(c)
}

func (s *Server) handleSession(c *session) {
	log := logger.With("client_ip", c.ip)
	log.Info("Client connected")

	defer func() {
		s.mu.Lock()
		delete(s.sessions, c)
		s.mu.Unlock()
		s.limiter.Release(c.ip)
		c.conn.Close()
		log.Info("Client disconnected")
		s.wg.Done()
	}()

	for {
		req, err := c.readRequest()
		if errors.Is(err, ErrBadRequest) {
			if c.sendError(err) != nil {
				return
			}
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && s.ctx.Err() == nil {
				log.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		if err := s.serveRequest(c, req); err != nil {
			log.Warn("Generation request failed", "error", err)
			if c.sendError(err) != nil {
				return
			}
		}
	}
}

// serveRequest runs one generation, streaming progress as floors are
// attempted and finishing with the accepted floors.
func (s *Server) serveRequest(c *session, req *Request) error {
	opts, err := s.options(req)
	if err != nil {
		return err
	}
	if req.Archive && s.store == nil {
		return ErrArchiveDisabled
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var sendErr error
	observer := func(e generator.Event) {
		if e.Kind == generator.EventRefined || sendErr != nil {
			return
		}
		if sendErr = c.send(Message{Type: MessageProgress, Event: progressOf(e)}); sendErr != nil {
			cancel()
		}
	}

	gen, err := generator.New(s.catalog, s.wanderers, opts, generator.WithObserver(observer))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	opts = gen.Options()
	if err := c.send(Message{Type: MessageStarted, Seed: opts.Seed, RunKey: opts.RunKey()}); err != nil {
		return err
	}

	d, err := gen.Generate(ctx)
	if sendErr != nil {
		return sendErr
	}
	if err != nil {
		return err
	}

	result := Message{Type: MessageResult, Seed: opts.Seed, RunKey: opts.RunKey()}
	for _, f := range d.Floors {
		data, err := export.MarshalBin(f.Lattice, s.catalog)
		if err != nil {
			return err
		}
		result.Floors = append(result.Floors, FloorPayload{
			Level:      f.Level,
			Strategy:   string(f.Strategy),
			Seed:       f.Seed,
			Attempts:   f.Attempts,
			Iterations: f.Iterations,
			Entry:      cellOf(f.Entry),
			StairsDown: cellOf(f.StairsDown),
			Digest:     archive.Digest(data),
			Bin:        data,
		})
	}

	if req.Archive {
		run, err := s.store.SaveRun(ctx, d)
		if err != nil {
			return err
		}
		result.RunID = run.ID.String()
	}
	return c.send(result)
}

// options overlays a request on the server defaults.
func (s *Server) options(req *Request) (generator.Options, error) {
	opts := s.defaults
	opts.Seed = req.Seed
	opts.Param = req.Param
	opts.DiversifyFraction = req.DiversifyFraction
	opts.CheatMode = req.CheatMode
	opts.Levels = req.Levels

	if req.Strategy != "" {
		strategy, err := terrain.ParseStrategy(req.Strategy)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		opts.Strategy = strategy
	}

	switch {
	case req.Floors < 0:
		return opts, fmt.Errorf("%w: floors must not be negative", ErrBadRequest)
	case req.Floors > s.cfg.MaxFloors:
		return opts, fmt.Errorf("%w: %d above %d", ErrTooManyFloors, req.Floors, s.cfg.MaxFloors)
	case req.Floors > 0:
		opts.Floors = req.Floors
	default:
		if opts.Floors <= 0 {
			opts.Floors = generator.DefaultFloors
		}
		opts.Floors = min(opts.Floors, s.cfg.MaxFloors)
	}
	return opts, nil
}

// handleCatalog serves the colour legend.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}

	tiles := s.catalog.Tiles()
	legend := make([]LegendEntry, 0, len(tiles))
	for _, d := range tiles {
		legend = append(legend, LegendEntry{
			ID:       d.ID,
			Code:     d.ID.String(),
			Name:     d.Name,
			Color:    d.Color.String(),
			Category: d.Category,
			Tags:     d.Tags,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(legend); err != nil {
		logger.Error("Failed to write catalog", "error", err)
	}
}

// getRealIP returns the client IP. Proxy headers are only consulted when
// trustProxy is set; otherwise any client could pick its own address.
func getRealIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return extractIP(r.RemoteAddr)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the original client.
		if client := strings.TrimSpace(strings.Split(xff, ",")[0]); client != "" {
			return client
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return extractIP(r.RemoteAddr)
}
