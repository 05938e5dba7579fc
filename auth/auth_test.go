package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			t.Error("handler reached without user")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestSessionRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })

	w := httptest.NewRecorder()
	CreateSession(w, 42)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	uid, ok := ParseSession(r)
	require.True(t, ok)
	assert.Equal(t, uint(42), uid)
}

func TestParseSessionRejectsTampering(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })

	w := httptest.NewRecorder()
	CreateSession(w, 42)
	c := w.Result().Cookies()[0]
	c.Value = "43" + c.Value[2:]

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	_, ok := ParseSession(r)
	assert.False(t, ok)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "garbage"})
	_, ok = ParseSession(r)
	assert.False(t, ok)
}

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })

	tok, exp, err := IssueToken(7)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	uid, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), uid)

	SetSecret("another-secret")
	_, err = ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	SetSecret("test-secret")
	prev := TokenTTL
	TokenTTL = -time.Minute
	t.Cleanup(func() {
		SetSecret("")
		TokenTTL = prev
	})

	tok, _, err := IssueToken(7)
	require.NoError(t, err)
	_, err = ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAuth(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() {
		SetSecret("")
		SetUserVerifier(nil)
	})
	h := Middleware(RequireAuth(echoUser(t)))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	tok, _, err := IssueToken(5)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)

	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 5 })
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse!"))
}
