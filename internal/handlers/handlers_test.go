package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/db"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

var testNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc    *services.Services
	db     *gorm.DB
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DatabaseConfig{Driver: "sqlite", URL: "file:" + name + "?mode=memory&cache=shared", MaxRetries: 1}
	gdb, err := db.Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, cfg, false, log.Discard()))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	svc := services.New(services.Deps{
		DB:                gdb,
		DefaultTVARate:    0.2,
		DefaultURSSAFRate: 0.22,
		Now:               func() time.Time { return testNow },
	})

	r := chi.NewRouter()
	r.Use(Recover, Lang, testUser)
	ah := NewAuthHandler(svc.Users)
	r.Post("/api/auth/register", ah.Register)
	r.Post("/api/auth/login", ah.Login)
	r.Get("/api/auth/me", ah.Me)
	ch := NewClientHandler(svc.Clients)
	r.Get("/api/clients", ch.List)
	r.Post("/api/clients", ch.Create)
	r.Get("/api/clients/{id}", ch.Get)
	r.Put("/api/clients/{id}", ch.Update)
	r.Delete("/api/clients/{id}", ch.Delete)
	arh := NewArticleHandler(svc.Articles)
	r.Post("/api/articles", arh.Create)
	r.Get("/api/articles", arh.List)
	sh := NewSaleHandler(svc.Sales)
	r.Post("/api/sales", sh.Create)
	r.Get("/api/sales", sh.List)
	r.Get("/api/sales/{id}", sh.Get)
	r.Patch("/api/sales/{id}/status", sh.SetStatus)
	chh := NewChargeHandler(svc.Charges)
	r.Post("/api/charges", chh.Create)
	seth := NewSettingsHandler(svc.Settings)
	r.Get("/api/settings", seth.Get)
	r.Put("/api/settings", seth.Update)
	dh := NewDashboardHandler(svc.Dashboard, func() time.Time { return testNow })
	r.Get("/api/dashboard", dh.Summary)
	r.Get("/api/evolution", dh.Evolution)
	r.Get("/api/recurrences/upcoming", dh.Upcoming)
	r.Get("/health", Live)
	r.Get("/healthz", Ready(gdb))
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	return &testEnv{svc: svc, db: gdb, router: r}
}

// testUser authenticates the request as the user in X-Test-User.
func testUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get("X-Test-User"); v != "" {
			id, _ := strconv.ParseUint(v, 10, 64)
			r = r.WithContext(auth.WithUserID(r.Context(), uint(id)))
		}
		next.ServeHTTP(w, r)
	})
}

func (e *testEnv) do(t *testing.T, uid uint, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if uid != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(uid), 10))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) user(t *testing.T, email string) uint {
	t.Helper()
	u, err := e.svc.Users.Register(t.Context(), services.RegisterInput{Email: email, Password: "password123"})
	require.NoError(t, err)
	return u.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, 0, http.MethodPost, "/api/auth/register", `{"email":"alice@example.com","password":"password123","name":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, w.Result().Cookies(), "a session cookie is set")

	token := body["token"].(string)
	uid, err := auth.ParseToken(token)
	require.NoError(t, err)

	w = e.do(t, 0, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode(t, w)["error"])

	w = e.do(t, 0, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, uid, http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", decode(t, w)["email"])

	w = e.do(t, 0, http.MethodPost, "/api/auth/register", `{"email":"alice@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, "email_taken", body["details"].(map[string]any)["email"])
}

func TestClients_JSON(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice@example.com")
	bob := e.user(t, "bob@example.com")

	w := e.do(t, alice, http.MethodPost, "/api/clients", `{"name":"Claire","company":"Atelier"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))
	path := "/api/clients/" + strconv.FormatUint(uint64(id), 10)

	w = e.do(t, alice, http.MethodGet, "/api/clients?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.EqualValues(t, 1, page["total"])
	assert.EqualValues(t, 10, page["limit"])
	assert.EqualValues(t, 0, page["offset"])
	assert.Len(t, page["items"], 1)

	w = e.do(t, bob, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])

	w = e.do(t, alice, http.MethodGet, "/api/clients/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, alice, http.MethodPut, path, `{"name":"Claire M.","city":"Lyon"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lyon", decode(t, w)["city"])

	w = e.do(t, alice, http.MethodPost, "/api/clients", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_json", decode(t, w)["error"])

	w = e.do(t, alice, http.MethodPost, "/api/clients", `{"name":"x","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	w = e.do(t, alice, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, alice, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationMessagesAreTranslated(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader(`{"email":"x"}`))
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(alice), 10))
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "required", body["details"].(map[string]any)["name"])
	assert.Equal(t, "Required", body["messages"].(map[string]any)["name"])

	w = e.do(t, alice, http.MethodPost, "/api/clients?lang=fr", `{"email":"x"}`)
	assert.Equal(t, "Requis", decode(t, w)["messages"].(map[string]any)["name"])
}

func TestSales_JSON(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice@example.com")

	w := e.do(t, alice, http.MethodPost, "/api/clients", `{"name":"Claire"}`)
	clientID := decode(t, w)["id"].(float64)
	w = e.do(t, alice, http.MethodPost, "/api/articles", `{"name":"Maintenance","price":100,"billing_frequency":"mensuel"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	art := decode(t, w)
	assert.Equal(t, "forfait", art["unit"])
	articleID := art["id"].(float64)

	body := `{"client_id":` + strconv.Itoa(int(clientID)) + `,"date":"2025-01-31","items":[{"article_id":` + strconv.Itoa(int(articleID)) + `,"quantity":2}]}`
	w = e.do(t, alice, http.MethodPost, "/api/sales", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode(t, w)
	assert.Equal(t, "FAC-2025-0001", sale["number"])
	assert.Equal(t, "mensuel", sale["recurrence"])
	assert.Equal(t, "200", sale["total_ht"])
	assert.Equal(t, "240", sale["total_ttc"])
	id := strconv.Itoa(int(sale["id"].(float64)))

	w = e.do(t, alice, http.MethodPatch, "/api/sales/"+id+"/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sale = decode(t, w)
	assert.Equal(t, "paid", sale["status"])
	assert.NotNil(t, sale["paid_at"])

	w = e.do(t, alice, http.MethodGet, "/api/sales?q=FAC-2025", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	assert.Len(t, items[0].(map[string]any)["items"], 1)

	w = e.do(t, alice, http.MethodPost, "/api/sales", `{"client_id":999,"date":"2025-01-31","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]any)
	assert.Equal(t, "unknown_reference", details["client_id"])
	assert.Equal(t, "items_required", details["items"])
}

func TestDashboard_JSON(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice@example.com")

	w := e.do(t, alice, http.MethodPost, "/api/charges", `{"date":"2025-01-05","amount":50,"recurrence":"mensuel","category":"logiciel"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["linked"])

	w = e.do(t, alice, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)
	assert.Equal(t, map[string]any{"start": "2025-03-01", "end": "2025-03-31"}, summary["window"])
	totals := summary["totals"].(map[string]any)
	assert.Equal(t, "50", totals["charges"])
	assert.Equal(t, "-50", totals["result"])

	w = e.do(t, alice, http.MethodGet, "/api/dashboard?start=2025-01&end=2025-03", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "150", decode(t, w)["totals"].(map[string]any)["charges"])

	w = e.do(t, alice, http.MethodGet, "/api/dashboard?start=2025-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_window", decode(t, w)["details"].(map[string]any)["window"])

	w = e.do(t, alice, http.MethodGet, "/api/evolution?granularity=mois&steps=3&end=2025-03", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	steps := decode(t, w)["steps"].([]any)
	require.Len(t, steps, 3)
	assert.Equal(t, "2025-01", steps[0].(map[string]any)["label"])

	w = e.do(t, alice, http.MethodGet, "/api/evolution?granularity=week", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, alice, http.MethodGet, "/api/evolution?steps=500", "")
	assert.Equal(t, "invalid_steps", decode(t, w)["details"].(map[string]any)["steps"])

	w = e.do(t, alice, http.MethodGet, "/api/recurrences/upcoming?days=30", "")
	require.Equal(t, http.StatusOK, w.Code)
	occ := decode(t, w)["occurrences"].([]any)
	require.Len(t, occ, 1)
	assert.Equal(t, "2025-04-05T00:00:00Z", occ[0].(map[string]any)["date"])

	w = e.do(t, alice, http.MethodGet, "/api/recurrences/upcoming?days=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings_JSON(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice@example.com")

	w := e.do(t, alice, http.MethodPut, "/api/settings", `{"tva_rate":"20%","company_name":"ACME"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "0.2", body["tva_rate"])
	assert.Equal(t, "ACME", body["company_name"])

	w = e.do(t, alice, http.MethodPut, "/api/settings", `{"theme":"dark"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndRecover(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, 0, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, 0, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = e.do(t, 0, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decode(t, w)["error"])

	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	w = e.do(t, 0, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}
