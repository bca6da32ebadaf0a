// Package server provides the FormStencil HTTP JSON transport.
//
// Operators log in for a bearer token and then exchange chat messages with
// the bot router; filled documents are fetched back from /api/output.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xob0t/FormStencil/pkg/auth"
	"github.com/xob0t/FormStencil/pkg/bot"
	"github.com/xob0t/FormStencil/pkg/layout"
	"github.com/xob0t/FormStencil/pkg/session"
)

// maxBody bounds request bodies. Layout submissions are the largest messages.
const maxBody = 1 << 20

// Deps are the collaborators of a Server.
type Deps struct {
	Gate      bot.Gate
	Router    *bot.Router
	Tokens    *auth.Tokens
	Templates session.Lister
	Layouts   layout.Store
	OutputDir string

	// Rate and Burst bound messages per user. Zero Rate disables the bound.
	Rate  float64
	Burst int

	Logger *slog.Logger
}

// Server is the HTTP transport.
type Server struct {
	deps     Deps
	limiters *limiters
	log      *slog.Logger
	mux      *http.ServeMux
}

// New creates a server and registers its routes.
func New(d Deps) *Server {
	s := &Server{
		deps:     d,
		limiters: newLimiters(d.Rate, d.Burst),
		log:      d.Logger,
		mux:      http.NewServeMux(),
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.authed(s.handleLogout))
	s.mux.HandleFunc("POST /api/messages", s.authed(s.limited(s.handleMessage)))
	s.mux.HandleFunc("GET /api/templates", s.authed(s.operator(s.handleTemplates)))
	s.mux.HandleFunc("GET /api/layouts/{name}", s.authed(s.operator(s.handleLayout)))
	s.mux.HandleFunc("GET /api/output/{name}", s.authed(s.operator(s.handleOutput)))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("FormStencil API listening", "addr", addr)
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
