package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/norrisp90/geneticai/internal/metrics"
	"github.com/norrisp90/geneticai/internal/session"
	"github.com/norrisp90/geneticai/pkg/models"
)

// Agent is the conversational backend the gateway forwards messages to.
type Agent interface {
	AgentID() string
	Verify(ctx context.Context) error
	CreateThread(ctx context.Context) (string, error)
	Ask(ctx context.Context, threadID, text string) (string, error)
}

// ChatHandler serves the chat API consumed by the UI.
type ChatHandler struct {
	settings *models.Settings
	agent    Agent
	sessions *session.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewChatHandler(settings *models.Settings, agent Agent, sessions *session.Registry, logger *slog.Logger) *ChatHandler {
	h := &ChatHandler{
		settings: settings,
		agent:    agent,
		sessions: sessions,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.originAllowed,
	}
	return h
}

func (h *ChatHandler) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.settings.Project.AllowOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *ChatHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		method := r.Method

		// label by route template, not raw path, to keep cardinality bounded
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(rw.status)

		metrics.HTTPRequests.WithLabelValues(method, path).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		if rw.status >= 400 {
			metrics.HTTPErrors.WithLabelValues(method, path, statusStr).Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.withMetrics(h.handleSettings)).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.withMetrics(h.handleOpenSession)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/messages", h.withMetrics(h.handleSendMessage)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.withMetrics(h.handleCloseSession)).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/ws", h.handleWebsocket).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// GET /api/v1/health
func (h *ChatHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status": "ok",
		"agent":  h.agent.AgentID(),
	}
	if err := h.agent.Verify(r.Context()); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// settingsView is the public projection of the settings document the UI
// fetches at startup. Operational fields (user_env, telemetry) stay private.
type settingsView struct {
	UI       models.UISettings      `json:"ui"`
	Features models.FeatureSettings `json:"features"`
	Project  projectView            `json:"project"`
}

type projectView struct {
	SessionTimeout int `json:"session_timeout"`
}

// GET /api/v1/settings
func (h *ChatHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsView{
		UI:       h.settings.UI,
		Features: h.settings.Features,
		Project: projectView{
			SessionTimeout: h.settings.Project.SessionTimeout,
		},
	})
}

type openSessionResp struct {
	ID       string `json:"id"`
	AgentID  string `json:"agent_id"`
	Greeting string `json:"greeting"`
}

// POST /api/v1/sessions
//
// A session opens even when the agent backend is down: the failure comes
// back as the greeting, and the thread is bound on the first message once
// the backend answers again.
func (h *ChatHandler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	greeting := fmt.Sprintf("Connected to %s. How can I help you?", h.settings.UI.Name)

	threadID := ""
	if err := h.agent.Verify(r.Context()); err != nil {
		h.logger.Error("agent not reachable at session open", "err", err)
		greeting = failedGreeting
	} else {
		created, err := h.agent.CreateThread(r.Context())
		if err != nil {
			h.logger.Error("open session failed", "err", err)
			writeError(w, http.StatusBadGateway, fmt.Errorf("failed to reach agent backend: %w", err))
			return
		}
		threadID = created
	}

	sess := h.sessions.Open(threadID)
	h.logger.Info("session opened", "session", sess.ID, "thread", threadID)

	writeJSON(w, http.StatusCreated, openSessionResp{
		ID:       sess.ID,
		AgentID:  h.agent.AgentID(),
		Greeting: greeting,
	})
}

const failedGreeting = "Failed to connect to the agent backend. Please check the configuration; messages will be retried."

// ensureThread binds an agent thread to the session, retrying the backend
// when the session was opened degraded.
func (h *ChatHandler) ensureThread(ctx context.Context, sess *session.Session) (string, error) {
	if sess.ThreadID != "" {
		return sess.ThreadID, nil
	}

	if err := h.agent.Verify(ctx); err != nil {
		return "", fmt.Errorf("agent not initialized: %w", err)
	}
	threadID, err := h.agent.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	if err := h.sessions.SetThread(sess.ID, threadID); err != nil {
		return "", err
	}
	h.logger.Info("thread bound", "session", sess.ID, "thread", threadID)
	return threadID, nil
}

type sendMessageReq struct {
	Content string `json:"content"`
}

type sendMessageResp struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// POST /api/v1/sessions/{id}/messages
func (h *ChatHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req sendMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, errors.New("content is required"))
		return
	}

	threadID, err := h.ensureThread(r.Context(), sess)
	if err != nil {
		h.logger.Error("thread bind failed", "session", sess.ID, "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	reply, err := h.agent.Ask(r.Context(), threadID, req.Content)
	if err != nil {
		h.logger.Error("agent ask failed", "session", sess.ID, "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResp{
		Role:    "assistant",
		Content: reply,
	})
}

// DELETE /api/v1/sessions/{id}
func (h *ChatHandler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.sessions.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	h.sessions.Remove(id)
	h.logger.Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}
