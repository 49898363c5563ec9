package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nerts-lite/apps/bot/internal/auth"
	"nerts-lite/apps/bot/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Routes builds the spectator HTTP surface. Everything except /health and
// the login endpoints sits behind the password gate.
func (g *Gateway) Routes(authHTTP *auth.HTTPHandler, led ledger.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(authHTTP.Require)
		r.Get("/ws", g.HandleWebSocket)
		r.Get("/state", g.handleState)

		h := &sessionHandler{ledger: led}
		r.Get("/api/sessions", h.handleList)
		r.Get("/api/sessions/{id}", h.handleGet)
		r.Get("/api/sessions/{id}/ticks", h.handleTicks)
		r.Get("/api/sessions/{id}/decisions", h.handleDecisions)
		r.Get("/api/sessions/{id}/tape", h.handleTape)
	})
	return r
}

func (g *Gateway) handleState(w http.ResponseWriter, _ *http.Request) {
	if g.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no state source")
		return
	}
	writeJSON(w, http.StatusOK, g.source.View())
}

type sessionHandler struct {
	ledger ledger.Service
}

func (h *sessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.ledger.ListSessions(ctx, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query sessions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *sessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	sess, err := h.ledger.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err, "query session failed")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *sessionHandler) handleTicks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ticks, err := h.ledger.GetTicks(ctx, id)
	if err != nil {
		writeLedgerError(w, err, "query ticks failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "ticks": ticks})
}

func (h *sessionHandler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	decisions, err := h.ledger.GetDecisions(ctx, id)
	if err != nil {
		writeLedgerError(w, err, "query decisions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "decisions": decisions})
}

func (h *sessionHandler) handleTape(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()
	tape, err := ledger.LoadTape(ctx, h.ledger, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err, "load tape failed")
		return
	}
	writeJSON(w, http.StatusOK, tape)
}

func writeLedgerError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 20
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 20
	}
	if n > 100 {
		return 100
	}
	return n
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
