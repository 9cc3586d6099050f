package jrpc

import (
	"context"
	"fmt"

	"github.com/advem/ipsc-go/internal/logging"
	"github.com/advem/ipsc-go/ipsc"
	"golang.org/x/time/rate"
)

// Config is everything an embedder supplies to stand up one server.
// RegisterHook, when set, is called once with the
// listening endpoint right after Listen succeeds (e.g. to write a lock
// file recording the bound socket path).
type Config struct {
	Port           uint16
	MaxQueue       int
	RecvTimeoutMs  int
	Mode           Mode
	Table          Table
	RegisterHook   func(*ipsc.Listener)
	Logger         logging.Logger
	// AcceptLimiter, when non-nil, caps how fast the event loop admits
	// new connections per accept-drain pass (ipsc.Loop's optional
	// knob). Left nil, acceptance is unthrottled.
	AcceptLimiter *rate.Limiter
}

// Server owns one Listener and the Loop multiplexing it, with Dispatch
// wired in as the data-event callback.
type Server struct {
	cfg      Config
	listener *ipsc.Listener
	loop     *ipsc.Loop
}

// Listen binds and listens via ipsc.Listen, runs the registration hook
// if any, and builds the event loop over the result.
func Listen(cfg Config) (*Server, error) {
	listener, err := ipsc.Listen(cfg.Port, cfg.MaxQueue)
	if err != nil {
		return nil, err
	}

	if cfg.RegisterHook != nil {
		cfg.RegisterHook(listener)
	}

	loop, err := ipsc.NewLoop(listener, cfg.AcceptLimiter)
	if err != nil {
		listener.Close()
		return nil, err
	}

	return &Server{cfg: cfg, listener: listener, loop: loop}, nil
}

// Run drives the event loop until ctx is done, dispatching each
// readable connection through Dispatch. The caller supplies the
// execution context this runs on; Run does not spawn its own goroutine
// — thread spawning is the embedder's responsibility.
func (s *Server) Run(ctx context.Context) error {
	err := s.loop.Run(ctx, func(conn *ipsc.Connection) error {
		return Dispatch(conn, s.cfg.Mode, s.cfg.Table, s.cfg.RecvTimeoutMs, s.cfg.Logger)
	})
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}

// Close tears down the event loop and the listening endpoint, unlinking
// the bound socket file.
func (s *Server) Close() error {
	loopErr := s.loop.Close()
	listenErr := s.listener.Close()
	if listenErr != nil {
		return fmt.Errorf("jrpc: close listener: %w", listenErr)
	}
	return loopErr
}

// Addr returns the filesystem path this server is bound to.
func (s *Server) Addr() string {
	return ipsc.Address(s.cfg.Port)
}
