package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-twin/backend/internal/layout"
	"github.com/warehouse-twin/backend/internal/testutil"
)

type testServer struct {
	e       *echo.Echo
	store   *testutil.MockStorage
	service *layout.Service
	hub     *ChangeHub
}

func newTestServer(t *testing.T, opts ...layout.Option) *testServer {
	t.Helper()
	store := testutil.NewMockStorage()
	hub := NewChangeHub(zerolog.Nop(), nil)
	t.Cleanup(hub.Close)

	svc := layout.NewService(store, append([]layout.Option{layout.WithNotifier(hub)}, opts...)...)

	e := echo.New()
	SetupMiddleware(e, MiddlewareConfig{Logger: zerolog.Nop()})
	RegisterRoutes(e, NewHandlers(&Dependencies{Service: svc, Hub: hub, Version: "test"}))

	return &testServer{e: e, store: store, service: svc, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(v), rec.Body.String())
}

// createLayout posts body and returns the decoded layout as a map.
func (s *testServer) createLayout(t *testing.T, body string) map[string]any {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/layouts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]any
	decodeBody(t, rec, &out)
	return out
}
