// Package api serves the local HTTP API: odds, simulations, metadata lookups
// and the capture history.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// TokenHeader carries the optional API token
const TokenHeader = "X-PokeThrow-Token"

// HistoryStore is the part of the history store the API reads and clears.
type HistoryStore interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, page, perPage int) (history.Page, error)
	Get(ctx context.Context, localID string) (history.Entry, error)
	Clear(ctx context.Context) (int64, error)
}

// MetadataSource looks up creature records.
type MetadataSource interface {
	GetPokemon(ctx context.Context, id int) (pokemon.Record, error)
}

// Deps are the services behind the routes. History and Metadata may be nil;
// their routes then answer 503.
type Deps struct {
	History  HistoryStore
	Metadata MetadataSource
	Tuning   capture.Tuning
	// Token, when set, is required on every /api route.
	Token  string
	Logger *log.Logger
}

// Server handles HTTP requests.
type Server struct {
	history  HistoryStore
	metadata MetadataSource
	tuning   capture.Tuning
	token    string

	logger    *log.Logger
	errors    *errorHandler
	startTime time.Time

	httpServer *http.Server
	addr       string
}

// NewServer creates the API server
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	}
	tuning := deps.Tuning
	if tuning == (capture.Tuning{}) {
		tuning = capture.DefaultTuning()
	}
	return &Server{
		history:   deps.History,
		metadata:  deps.Metadata,
		tuning:    tuning,
		token:     deps.Token,
		logger:    logger,
		errors:    &errorHandler{logger: logger},
		startTime: time.Now(),
	}
}

// Routes sets up the router and middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(localCORS)
	r.Use(s.errors.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/odds", s.handleOdds)
		r.Post("/simulate", s.handleSimulate)
		r.Get("/pokemon/{id}", s.handlePokemon)

		r.Get("/history", s.handleHistoryList)
		r.Delete("/history", s.handleHistoryClear)
		r.Get("/history/{localID}", s.handleHistoryGet)
	})

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(TokenHeader)), []byte(s.token)) != 1 {
			s.errors.write(w, r, http.StatusUnauthorized, ErrTypeUnauthorized, "missing or invalid "+TokenHeader, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start binds addr and serves in the background. It returns once the
// socket is listening; Addr reports the bound address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.logRequests(s.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("serve: %v", err)
		}
	}()
	s.logger.Printf("listening on http://%s", s.addr)
	return nil
}

// Addr returns the bound address after Start
func (s *Server) Addr() string { return s.addr }

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
