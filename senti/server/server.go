// Package server exposes the sentiment pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/pipeline"
	"github.com/rs/zerolog"
)

// Pipeline is the part of *pipeline.Pipeline the server drives
type Pipeline interface {
	Init(ctx context.Context) pipeline.LoadResult
	Predict(ctx context.Context, text string) pipeline.PredictResult
	Status() pipeline.Status
	OnStateChange(fn func(pipeline.Status))
}

type Options struct {
	// LoadTimeout bounds the background model load; zero means no limit
	LoadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pipeline Pipeline
	hub      *Hub
	logger   zerolog.Logger
	opts     Options
}

func New(p Pipeline, opts Options, logger zerolog.Logger) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		pipeline: p,
		hub:      NewHub(logger),
		logger:   logger.With().Str("component", "server").Logger(),
		opts:     opts,
	}
	p.OnStateChange(func(st pipeline.Status) {
		s.hub.Broadcast(Message{Type: TypeStatus, Data: newStatusView(st)})
	})
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler wrapped in recovery and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /", s.handleIndex)
	return s.logging(s.recovery(mux))
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and starts loading the model once the
// listener is up. It returns after ctx is done and the server has drained.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")

	go s.load(hubCtx)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("Server stopped")
	return nil
}

func (s *Server) load(ctx context.Context) {
	if s.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.LoadTimeout)
		defer cancel()
	}
	res := s.pipeline.Init(ctx)
	if !res.OK() {
		s.logger.Error().Err(res.Err).Msg("Model unavailable, predictions will be rejected")
	}
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panic")
				fail(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
