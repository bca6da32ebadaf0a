package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xob0t/FormStencil/pkg/layout"
	"github.com/xob0t/FormStencil/pkg/session"
)

// ── Replies ──

// Reply is one bot reply in a message response.
type Reply struct {
	Text     string `json:"text,omitempty"`
	Markdown bool   `json:"markdown,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// collector records the replies of one turn.
type collector struct {
	replies []Reply
}

func (c *collector) SendText(_ context.Context, m session.Message) error {
	c.replies = append(c.replies, Reply{Text: m.Text, Markdown: m.Markdown})
	return nil
}

func (c *collector) SendImage(_ context.Context, path, caption string) error {
	c.replies = append(c.replies, Reply{Text: caption, ImageURL: "/api/output/" + filepath.Base(path)})
	return nil
}

// ── Login ──

type loginRequest struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !s.limiters.allow("login:" + strconv.FormatInt(req.UserID, 10)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}
	if !s.deps.Gate.Login(req.UserID, req.Password) {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	token, exp, err := s.deps.Tokens.Issue(req.UserID)
	if err != nil {
		s.log.Error("issue token", "user", req.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.turn(w, r, "/logout")
}

// ── Messages ──

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Replies []Reply `json:"replies"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	s.turn(w, r, req.Text)
}

func (s *Server) turn(w http.ResponseWriter, r *http.Request, text string) {
	user := userFrom(r.Context())
	c := &collector{replies: []Reply{}}
	if err := s.deps.Router.Handle(r.Context(), user, text, c); err != nil {
		s.log.Error("handle message", "user", user, "err", err)
		writeError(w, http.StatusInternalServerError, "message failed")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Replies: c.replies})
}

// ── Read-only resources ──

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"templates": s.deps.Templates.List()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	l, ok := s.deps.Layouts.Load(r.Context(), name)
	if !ok {
		writeError(w, http.StatusNotFound, "no layout for "+name)
		return
	}
	data, err := layout.Encode(l)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := layout.ValidateName(name); err != nil {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.deps.OutputDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
