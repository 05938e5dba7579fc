package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/db"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", URL: "file:" + t.Name() + "?mode=memory&cache=shared", MaxRetries: 1}
	gdb, err := db.Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, cfg, false, log.Discard()))

	now := func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }
	svc := services.New(services.Deps{DB: gdb, DefaultTVARate: 0.2, DefaultURSSAFRate: 0.22, Now: now})
	auth.SetSecret("test-secret")
	auth.SetUserVerifier(svc.Users.Exists)
	t.Cleanup(func() { auth.SetUserVerifier(nil) })

	srv := httptest.NewServer(NewApp(gdb, svc, log.Discard(), now))
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return srv
}

func send(t *testing.T, method, url, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestApp_EndToEnd(t *testing.T) {
	srv := newTestApp(t)

	resp := send(t, http.MethodGet, srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(t, http.MethodGet, srv.URL+"/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", readJSON(t, resp)["error"])

	resp = send(t, http.MethodPost, srv.URL+"/api/auth/register", `{"email":"e2e@example.com","password":"password123"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := resp.Cookies()
	require.NotEmpty(t, session)
	token := readJSON(t, resp)["token"].(string)

	// Cookie session.
	cookie := http.Header{"Cookie": {session[0].Name + "=" + session[0].Value}}
	resp = send(t, http.MethodPost, srv.URL+"/api/clients", `{"name":"Claire"}`, cookie)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Bearer token.
	bearer := http.Header{"Authorization": {"Bearer " + token}}
	resp = send(t, http.MethodGet, srv.URL+"/api/clients", "", bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, readJSON(t, resp)["total"])

	resp = send(t, http.MethodGet, srv.URL+"/api/auth/me", "", bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "e2e@example.com", readJSON(t, resp)["email"])

	resp = send(t, http.MethodGet, srv.URL+"/api/dashboard", "", bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	window := readJSON(t, resp)["window"].(map[string]any)
	assert.Equal(t, "2025-03-01", window["start"])

	resp = send(t, http.MethodGet, srv.URL+"/api/clients", "", http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = send(t, http.MethodPost, srv.URL+"/api/auth/logout", "", cookie)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestApp_NotFoundIsJSON(t *testing.T) {
	srv := newTestApp(t)

	resp := send(t, http.MethodGet, srv.URL+"/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", readJSON(t, resp)["error"])

	resp = send(t, http.MethodDelete, srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
