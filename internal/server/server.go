package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/monkeyescape/monkeyescape/internal/core/events/bus"
	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
	"github.com/monkeyescape/monkeyescape/internal/core/session"
)

// Server exposes one Session to websocket viewers
type Server struct {
	config  Config
	session *session.Session
	bus     bus.EventBus
	hub     *Hub
	runner  *Runner
	logger  log.Log

	running int32 // atomic bool
	closed  int32 // atomic bool
}

// Config holds server configuration
type Config struct {
	// Network settings
	ListenAddr string

	// Simulation pacing
	TickInterval   time.Duration
	BroadcastEvery int

	// Viewer settings
	MaxMessageSize  int64
	MessageRate     float64
	MessageBurst    int
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8080",
		TickInterval:    time.Second / 60,
		BroadcastEvery:  1,
		MaxMessageSize:  4 * 1024,
		MessageRate:     120,
		MessageBurst:    30,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("tick interval must be positive"))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("max message size must be positive"))
	}
	if c.MessageRate < 0 {
		errs = append(errs, errors.New("message rate must not be negative"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("write timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// New creates a server around s. The session must not be touched by
// anything else once the server runs.
func New(config Config, s *session.Session, logger log.Log) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With(log.String("component", "server"))

	w := s.World()
	layout := w.Layout()
	hello, err := Encode(MsgArena, ArenaInfo{
		Width:     layout.Width,
		Height:    layout.Height,
		Obstacles: w.Obstacles(),
	})
	if err != nil {
		return nil, err
	}

	hub := NewHub(hello, HubOptions{
		WriteTimeout:   config.WriteTimeout,
		MaxMessageSize: config.MaxMessageSize,
		MessageRate:    config.MessageRate,
		MessageBurst:   config.MessageBurst,
	}, logger)
	srv := &Server{
		config:  config,
		session: s,
		bus:     s.Bus(),
		hub:     hub,
		runner:  NewRunner(s, hub, config.TickInterval, config.BroadcastEvery, logger),
		logger:  logger,
	}
	return srv, nil
}

// Hub returns the viewer hub.
func (s *Server) Hub() *Hub { return s.hub }

// Runner returns the simulation runner.
func (s *Server) Runner() *Runner { return s.runner }

// Handler returns the HTTP routes: the websocket endpoint, a health probe
// and the latest snapshot as JSON.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub.Handler(s.runner))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if atomic.LoadInt32(&s.closed) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("closed\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		payload, err := Encode(MsgSnapshot, s.runner.Latest())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	})
	return mux
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the simulation and accepts viewers on ln until ctx is done.
// A server can be served only once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		_ = ln.Close()
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		_ = ln.Close()
		return ErrServerAlreadyRunning
	}
	defer atomic.StoreInt32(&s.closed, 1)

	obs := &busLogger{logger: s.logger}
	s.bus.AddObserver(obs)
	defer s.bus.RemoveObserver(obs)
	sub, err := s.bus.Subscribe(bus.Wildcard, s.forwardEvent)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = sub.Cancel() }()

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runner.Run(gctx)
	})
	g.Go(func() error {
		s.logger.Info("Server listening", log.String("addr", ln.Addr().String()))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		atomic.StoreInt32(&s.closed, 1)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		// hijacked websocket connections are not tracked by Shutdown
		s.hub.Close()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown failed", log.Error(err))
			return httpSrv.Close()
		}
		return nil
	})

	err = g.Wait()
	s.logger.Info("Server stopped")
	return err
}

func (s *Server) forwardEvent(e bus.Event) error {
	payload, err := Encode(MsgEvent, e)
	if err != nil {
		return err
	}
	s.hub.Broadcast(payload)
	return nil
}

// busLogger reports failed deliveries.
type busLogger struct {
	logger log.Log
}

func (b *busLogger) OnPublish(bus.Event) {}

func (b *busLogger) OnDelivered(e bus.Event, handlers int, err error, d time.Duration) {
	if err != nil {
		b.logger.Debug("Event delivery failed",
			log.String("event_type", e.Type),
			log.Int("handlers", handlers),
			log.Duration("duration", d),
			log.Error(err))
	}
}
