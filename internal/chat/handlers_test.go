package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskops/internal/confirm"
	"github.com/mbd888/riskops/internal/llm"
	"github.com/mbd888/riskops/internal/oms"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(f *fixture, enabled bool) *gin.Engine {
	r := gin.New()
	NewHandler(f.svc, enabled).RegisterRoutes(r.Group("/api"))
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_FeatureDisabled(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f, false)

	w := post(t, r, "/api/chat", Request{UserID: "user2", Text: "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])

	w = post(t, r, "/api/chat/confirm", ConfirmRequest{UserID: "user2", ConfirmID: "CONFIRM_X", Answer: "yes"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, f.model.calls())
}

func TestHandler_ChatBadRequest(t *testing.T) {
	r := newRouter(newFixture(t), true)

	w := post(t, r, "/api/chat", `{"user_id":"user2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["error"])
}

func TestHandler_ChatAndConfirm(t *testing.T) {
	f := newFixture(t, haltCall("PM_BOOK1", "order-flow anomaly on open"))
	r := newRouter(f, true)

	w := post(t, r, "/api/chat", Request{UserID: "user2", Text: "halt PM_BOOK1", SessionID: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, confirmIDPattern, resp.ConfirmID)
	assert.Equal(t, "abc", resp.SessionID)
	assert.NotEmpty(t, resp.ChartURL)

	w = post(t, r, "/api/chat/confirm", ConfirmRequest{UserID: "admin1", ConfirmID: resp.ConfirmID, Answer: "yes"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w)["error"])

	w = post(t, r, "/api/chat/confirm", ConfirmRequest{UserID: "user2", ConfirmID: resp.ConfirmID, Answer: "YES"})
	require.Equal(t, http.StatusOK, w.Code)
	var cr ConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cr))
	assert.Equal(t, "executed", cr.Status)
	assert.NotEmpty(t, cr.TicketID)

	w = post(t, r, "/api/chat/confirm", ConfirmRequest{UserID: "user2", ConfirmID: resp.ConfirmID, Answer: "yes"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ConfirmStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		oms     oms.Client
		prepare func(f *fixture)
		answer  string
		code    int
		errCode string
	}{
		{name: "cancelled", oms: oms.NewSimulated(), answer: "no", code: http.StatusOK},
		{name: "invalid answer", oms: oms.NewSimulated(), answer: "perhaps", code: http.StatusBadRequest, errCode: "invalid_request"},
		{
			name:    "expired",
			oms:     oms.NewSimulated(),
			prepare: func(f *fixture) { f.clock.Advance(confirm.DefaultTTL + time.Second) },
			answer:  "yes",
			code:    http.StatusGone,
			errCode: "expired",
		},
		{
			name: "denied",
			oms:  oms.NewSimulated(),
			prepare: func(f *fixture) {
				_, _ = f.dir.Upsert("user2", "USER", nil)
			},
			answer:  "yes",
			code:    http.StatusForbidden,
			errCode: "denied",
		},
		{name: "execution failed", oms: failingOMS{Client: oms.NewSimulated()}, answer: "yes", code: http.StatusBadGateway, errCode: "execution_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureWith(t, tt.oms, haltCall("PM_BOOK1", "order-flow anomaly on open"))
			r := newRouter(f, true)
			id := proposeHalt(t, f, "user2")
			if tt.prepare != nil {
				tt.prepare(f)
			}

			w := post(t, r, "/api/chat/confirm", ConfirmRequest{UserID: "user2", ConfirmID: id, Answer: tt.answer})
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decode(t, w)["error"])
			}
		})
	}
}

func TestHandler_AssistantUnavailable(t *testing.T) {
	f := newFixture(t, &llm.Reply{Text: "unused"})
	f.model.err = errors.New("upstream 503")
	r := newRouter(f, true)

	w := post(t, r, "/api/chat", Request{UserID: "user2", Text: "hello"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "assistant_unavailable", body["error"])
	assert.NotContains(t, body["message"], "503")
}
