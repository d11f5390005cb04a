package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"taskini/internal/api/middleware"
	"taskini/internal/app/service"
	"taskini/internal/common"
	"taskini/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// SessionSubscriber streams a user's login/logout events.
type SessionSubscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan model.SessionEvent, func() error, error)
}

type AuthHandler struct {
	authService *service.AuthService
	sessions    SessionSubscriber
	heartbeat   time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

func NewAuthHandler(authService *service.AuthService, sessions SessionSubscriber) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		heartbeat:   25 * time.Second,
		closing:     make(chan struct{}),
	}
}

// CloseStreams ends every open event stream. Register it with
// http.Server.RegisterOnShutdown so Shutdown does not wait on them.
func (h *AuthHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// RegisterRoutes mounts the public endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// RegisterProtectedRoutes mounts endpoints that need an authenticated caller.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	tokenID, exp, ok := middleware.GetTokenFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing token context")
		return
	}
	if err := h.authService.Logout(r.Context(), caller, service.Token{ID: tokenID, ExpiresAt: exp}); err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Logged out", struct{}{})
}

// events is a server-sent event stream of the caller's session changes.
func (h *AuthHandler) events(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.RespondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	events, closeSub, err := h.sessions.Subscribe(r.Context(), caller.ID)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	defer closeSub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.closing:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("ERROR: encoding session event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// RegisterStreamRoutes mounts long-lived endpoints that must not run under the request timeout.
func (h *AuthHandler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/events", h.events)
}
