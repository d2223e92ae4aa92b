package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrisp90/geneticai/internal/metrics"
	"github.com/norrisp90/geneticai/internal/session"
	"github.com/norrisp90/geneticai/pkg/models"
)

type fakeAgent struct {
	threads   int
	askErr    error
	reply     string
	verifyErr error
}

func (f *fakeAgent) AgentID() string { return "asst_test" }

func (f *fakeAgent) Verify(ctx context.Context) error {
	return f.verifyErr
}

func (f *fakeAgent) CreateThread(ctx context.Context) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	f.threads++
	return fmt.Sprintf("thread_%d", f.threads), nil
}

func (f *fakeAgent) Ask(ctx context.Context, threadID, text string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "echo: " + text, nil
}

func testSettings() *models.Settings {
	return &models.Settings{
		Project: models.ProjectSettings{
			SessionTimeout: 3600,
			AllowOrigins:   []string{"*"},
		},
		Features: models.FeatureSettings{LaTeX: true},
		UI: models.UISettings{
			Name:        "Test Assistant",
			Description: "test deployment",
		},
	}
}

func newTestGateway(t *testing.T, agent *fakeAgent) (*httptest.Server, *session.Registry) {
	t.Helper()

	sessions := session.NewRegistry(time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewChatHandler(testSettings(), agent, sessions, logger)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, sessions
}

func openSession(t *testing.T, srv *httptest.Server) openSessionResp {
	t.Helper()

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var opened openSessionResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opened))
	return opened
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "asst_test", body["agent"])
}

func TestHandleHealthDegraded(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{verifyErr: errors.New("endpoint unreachable")})

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Contains(t, body["error"], "endpoint unreachable")
}

// The settings endpoint must emit the document's own snake_case keys, not
// Go identifiers.
func TestHandleSettingsProjection(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})

	resp, err := http.Get(srv.URL + "/api/v1/settings")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	var ui map[string]any
	require.NoError(t, json.Unmarshal(body["ui"], &ui))
	assert.Equal(t, "Test Assistant", ui["name"])
	assert.Contains(t, ui, "hide_cot")
	assert.Contains(t, ui, "github")
	assert.NotContains(t, ui, "Name")

	var features map[string]any
	require.NoError(t, json.Unmarshal(body["features"], &features))
	assert.Equal(t, true, features["latex"])
	assert.Contains(t, features, "unsafe_allow_html")
	sttRaw, ok := features["speech_to_text"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, sttRaw, "enabled")
	assert.Contains(t, sttRaw, "language")

	var project map[string]any
	require.NoError(t, json.Unmarshal(body["project"], &project))
	assert.Equal(t, float64(3600), project["session_timeout"])
}

func TestOpenSessionBindsThread(t *testing.T) {
	agent := &fakeAgent{}
	srv, sessions := newTestGateway(t, agent)

	opened := openSession(t, srv)
	assert.NotEmpty(t, opened.ID)
	assert.Equal(t, "asst_test", opened.AgentID)
	assert.Contains(t, opened.Greeting, "Test Assistant")

	sess, err := sessions.Get(opened.ID)
	require.NoError(t, err)
	assert.Equal(t, "thread_1", sess.ThreadID)
}

func TestOpenSessionDegradedBackend(t *testing.T) {
	agent := &fakeAgent{verifyErr: errors.New("endpoint unreachable")}
	srv, sessions := newTestGateway(t, agent)

	opened := openSession(t, srv)
	assert.Contains(t, opened.Greeting, "Failed to connect")

	sess, err := sessions.Get(opened.ID)
	require.NoError(t, err)
	assert.Empty(t, sess.ThreadID, "no thread can exist while the backend is down")
}

func TestSendMessageBindsThreadAfterRecovery(t *testing.T) {
	agent := &fakeAgent{verifyErr: errors.New("endpoint unreachable"), reply: "back online"}
	srv, sessions := newTestGateway(t, agent)
	opened := openSession(t, srv)

	// backend still down: message is rejected, session survives
	body := bytes.NewBufferString(`{"content": "anyone there?"}`)
	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+opened.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// backend recovers: next message binds a thread and goes through
	agent.verifyErr = nil
	body = bytes.NewBufferString(`{"content": "anyone there?"}`)
	resp, err = http.Post(srv.URL+"/api/v1/sessions/"+opened.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply sendMessageResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "back online", reply.Content)

	sess, err := sessions.Get(opened.ID)
	require.NoError(t, err)
	assert.Equal(t, "thread_1", sess.ThreadID)
}

func TestSendMessage(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{reply: "42"})
	opened := openSession(t, srv)

	body := bytes.NewBufferString(`{"content": "meaning of life?"}`)
	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+opened.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply sendMessageResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, "42", reply.Content)
}

func TestSendMessageUnknownSession(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})

	body := bytes.NewBufferString(`{"content": "hello"}`)
	resp, err := http.Post(srv.URL+"/api/v1/sessions/nope/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendMessageEmptyContent(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})
	opened := openSession(t, srv)

	body := bytes.NewBufferString(`{"content": "  "}`)
	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+opened.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessageAgentFailure(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{askErr: errors.New("agent run failed: rate limited")})
	opened := openSession(t, srv)

	body := bytes.NewBufferString(`{"content": "hello"}`)
	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+opened.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCloseSession(t *testing.T) {
	srv, sessions := newTestGateway(t, &fakeAgent{})
	opened := openSession(t, srv)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/sessions/"+opened.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, sessions.Count())
}

func TestWebsocketChat(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{reply: "pong"})
	opened := openSession(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + opened.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting wsFrame
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "system", greeting.Type)
	assert.Contains(t, greeting.Content, "Test Assistant")

	require.NoError(t, conn.WriteJSON(wsFrame{Type: "user", Content: "ping"}))

	var reply wsFrame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "assistant", reply.Type)
	assert.Equal(t, "pong", reply.Content)
}

func TestWebsocketEmptyFrame(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})
	opened := openSession(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + opened.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting wsFrame
	require.NoError(t, conn.ReadJSON(&greeting))

	require.NoError(t, conn.WriteJSON(wsFrame{Type: "user", Content: ""}))

	var reply wsFrame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
}

func TestWebsocketDegradedGreeting(t *testing.T) {
	agent := &fakeAgent{verifyErr: errors.New("endpoint unreachable")}
	srv, _ := newTestGateway(t, agent)
	opened := openSession(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + opened.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting wsFrame
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "system", greeting.Type)
	assert.Contains(t, greeting.Content, "Failed to connect")
}

func TestMetricsLabelRouteTemplate(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})

	template := "/api/v1/sessions/{id}/messages"
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", template))

	body := bytes.NewBufferString(`{"content": "hello"}`)
	resp, err := http.Post(srv.URL+"/api/v1/sessions/nope/messages", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", template))
	assert.Equal(t, before+1, after, "requests must be labelled by the route template, not the raw path")
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", "/api/v1/sessions/nope/messages")))
}

func TestWebsocketUnknownSession(t *testing.T) {
	srv, _ := newTestGateway(t, &fakeAgent{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
