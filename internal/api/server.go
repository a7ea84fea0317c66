// Package api serves the game over HTTP. GET endpoints read state; POST
// endpoints drive the session. All endpoints are JSON.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmorland/statecraft/internal/game"
	"github.com/tmorland/statecraft/internal/news"
)

const apiVersion = "1.0.0"

// Server exposes the engine and news reporter over HTTP.
type Server struct {
	Engine *game.Engine
	News   *news.Reporter

	// AllowedOrigins is the CORS whitelist on top of localhost dev servers.
	AllowedOrigins []string
}

// Handler builds the full route table with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	// Every POST below fans out to the model; keep a per-IP budget.
	oracleLimiter := NewRateLimiter(60, time.Hour)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/game/start", RateLimitMiddleware(oracleLimiter, s.handleStart))
	mux.HandleFunc("/api/game/state", s.handleState)
	mux.HandleFunc("/api/game/decision", RateLimitMiddleware(oracleLimiter, s.handleDecision))
	mux.HandleFunc("/api/game/new-event", RateLimitMiddleware(oracleLimiter, s.handleNewEvent))
	mux.HandleFunc("/api/game/ask-advisor", RateLimitMiddleware(oracleLimiter, s.handleAskAdvisor))
	mux.HandleFunc("/api/game/end", s.handleEnd)
	mux.HandleFunc("/api/game/analytics", s.handleAnalytics)
	mux.HandleFunc("/api/game/news/", s.handleNews)
	mux.HandleFunc("/api/health", s.handleHealth)

	return s.corsMiddleware(mux)
}

// corsMiddleware admits localhost dev servers plus configured origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range s.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusForError maps precondition failures to 400 and everything else,
// oracle transport included, to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrNoSession),
		errors.Is(err, game.ErrNoEvent),
		errors.Is(err, game.ErrUnknownAdvisor),
		errors.Is(err, game.ErrUnknownEvent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId required")
		return
	}

	if err := s.Engine.StartSession(req.PlayerID); err != nil {
		slog.Error("start session failed", "error", err)
		writeError(w, statusForError(err), "failed to start session")
		return
	}

	gs, err := s.Engine.GameState()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"session":   gs.Session,
		"gameState": gs,
		"message":   "Game session started. Your advisors are standing by.",
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	gs, err := s.Engine.GameState()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, gs)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		EventID   string `json:"eventId"`
		Action    string `json:"action"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "eventId and action required")
		return
	}

	result, err := s.Engine.ProcessDecision(req.EventID, req.Action, req.Reasoning)
	if err != nil {
		slog.Error("decision failed", "event", req.EventID, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	gs, err := s.Engine.GameState()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"result":    result,
		"gameState": gs,
		"message":   "Decision processed. The situation is developing.",
	})
}

func (s *Server) handleNewEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	ev, err := s.Engine.GenerateNewEvent()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{"event": ev})
}

func (s *Server) handleAskAdvisor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		AdvisorID string `json:"advisorId"`
		Question  string `json:"question"`
		EventID   string `json:"eventId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.AdvisorID == "" || req.Question == "" || req.EventID == "" {
		writeError(w, http.StatusBadRequest, "advisorId, question and eventId required")
		return
	}

	msg, err := s.Engine.AskAdvisor(req.AdvisorID, req.Question, req.EventID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{"response": msg})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	// Analytics must be read before EndSession clears the session.
	analytics, err := s.Engine.Analytics()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	sess, ok := s.Engine.EndSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	writeJSON(w, map[string]any{
		"endedSession": sess,
		"analytics":    analytics,
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	analytics, err := s.Engine.Analytics()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, analytics)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/game/news/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeError(w, http.StatusBadRequest, "sessionId required")
		return
	}

	var bulletins []news.Bulletin
	if s.News != nil {
		bulletins = s.News.Bulletins(sessionID)
	}
	if bulletins == nil {
		bulletins = []news.Bulletin{}
	}
	writeJSON(w, map[string]any{
		"news":  bulletins,
		"count": len(bulletins),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   apiVersion,
	})
}
