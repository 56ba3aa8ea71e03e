package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"archiplane/internal/apply"
	"archiplane/internal/model"
	"archiplane/internal/modelactor"
	"archiplane/internal/opqueue"
	"archiplane/internal/undo"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m := model.New()
	actor := modelactor.New(m, 16, zap.NewNop())
	undoLog := undo.NewLog()
	notifier := opqueue.NewNotifier(opqueue.NewStore())
	engine := apply.New(actor, notifier, undoLog, zap.NewNop())
	return NewServer(actor, engine, notifier, undoLog, zap.NewNop(), nil, nil)
}

func TestHandleHealth_ReportsOKAndStats(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotNil(t, env.Data)
	assert.Nil(t, env.Error)
}

func TestHandleModelElement_UnknownIDReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/model/element/elem-does-not-exist", nil)
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHandleViewsCreateAndList_RoundTrips(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"Business Layer","viewpoint":"layered"}`
	req := httptest.NewRequest(http.MethodPost, "/views", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/views", nil)
	listW := httptest.NewRecorder()
	s.Router().ServeHTTP(listW, listReq)
	require.Equal(t, http.StatusOK, listW.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &env))
	views, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Len(t, views, 1)
}

func TestHandleModelApply_RejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/model/apply", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "USAGE_ERROR", env.Error.Code)
}

func TestHandleOpsStatus_MissingOpIDIsUsageError(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
