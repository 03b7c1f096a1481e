package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/leikapui/sales-dashboard/internal/apiclient"
	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/events"
	"github.com/leikapui/sales-dashboard/internal/gate"
	"github.com/leikapui/sales-dashboard/internal/handler"
	"github.com/leikapui/sales-dashboard/internal/middleware"
	"github.com/leikapui/sales-dashboard/internal/model"
	"github.com/leikapui/sales-dashboard/internal/session"
)

// clock is the dashboard's "now" in these tests; the fake backend dates its
// transactions on the same day.
var clock = time.Date(2026, 3, 15, 23, 59, 30, 0, time.UTC)

// backend fakes the sales API. Accounts are keyed by email; the password
// is always "secret".
type backend struct {
	t        *testing.T
	mu       sync.Mutex
	users    map[string]model.User
	tokens   map[string]model.User
	failPath string
	reject   bool
	queries  map[string][]url.Values
	created  []map[string]string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{
		t: t,
		users: map[string]model.User{
			"admin@example.com": {ID: "a1", Email: "admin@example.com", Name: "Ada", Role: model.RoleAdmin},
			"fay@example.com":   {ID: "f1", Email: "fay@example.com", Name: "Fay", Role: model.RoleFilmmaker, AssignedMovieID: "m1"},
		},
		tokens:  map[string]model.User{},
		queries: map[string][]url.Values{},
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) token(u model.User) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(b.t, err)
	return tok
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries[r.URL.Path] = append(b.queries[r.URL.Path], r.URL.Query())

	write := func(code int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}

	if r.URL.Path == auth.LoginPath {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		u, ok := b.users[req.Email]
		if !ok || req.Password != "secret" {
			write(http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
			return
		}
		tok := b.token(u)
		b.tokens[tok] = u
		raw, _ := json.Marshal(model.Session{Token: tok, User: u})
		write(http.StatusOK, string(raw))
		return
	}

	if _, ok := b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]; !ok || b.reject {
		write(http.StatusUnauthorized, `{"message":"Unauthorized"}`)
		return
	}
	if r.URL.Path == b.failPath {
		write(http.StatusInternalServerError, `{"message":"boom"}`)
		return
	}

	today := clock.Format(time.RFC3339)
	switch r.URL.Path {
	case auth.VerifyPath:
		write(http.StatusOK, `{"success":true}`)
	case apiclient.OverviewPath:
		write(http.StatusOK, `{"success":true,"data":{"statistics":{"totalRevenue":1000,"totalTransactions":5,"averageTransactionValue":200}}}`)
	case apiclient.ChartDataPath, apiclient.SalesPath:
		write(http.StatusOK, `{"success":true,"data":{"transactions":[
			{"_id":"t1","amount":600,"status":"completed","created_at":"`+today+`","contentId":{"_id":"m1","title":"Dune"},"user":{"_id":"c1","email":"c@example.com"}},
			{"_id":"t2","amount":400,"status":"completed","created_at":"`+today+`","contentId":null,"user":null}]}}`)
	case apiclient.TopMoviesPath:
		write(http.StatusOK, `{"success":true,"data":{"topSellingMovies":[{"_id":{"_id":"m1","title":"Dune","ppv_cost":199},"totalSales":600,"totalTransactions":1}]}}`)
	case apiclient.MoviesPath:
		write(http.StatusOK, `{"success":true,"data":[{"_id":"m1","title":"Dune"},{"_id":"m2","title":"Heat"}]}`)
	case apiclient.AdminUsersPath:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.created = append(b.created, body)
		write(http.StatusCreated, `{"success":true,"message":"User created"}`)
	default:
		write(http.StatusNotFound, `{"message":"not found"}`)
	}
}

func (b *backend) lastQuery(path string) url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	qs := b.queries[path]
	if len(qs) == 0 {
		return nil
	}
	return qs[len(qs)-1]
}

type app struct {
	e       *echo.Echo
	storage *session.MemoryStorage
	hub     *events.Hub
}

func newApp(t *testing.T, baseURL string) *app {
	t.Helper()
	storage := session.NewMemoryStorage(0)
	hub := events.NewHub(4)
	deps := &handler.Deps{
		Auth:     auth.Config{BaseURL: baseURL, Notifier: hub},
		API:      apiclient.Config{BaseURL: baseURL, Now: func() time.Time { return clock }},
		Location: time.UTC,
	}
	renderer, err := handler.NewRenderer(time.UTC)
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	authHandler := handler.NewAuthHandler(deps)
	RegisterRoutes(e)
	RegisterDashboard(e, Routes{
		Session:   middleware.Session(middleware.SessionConfig{CookieName: "dashboard_sid"}, storage),
		Protect:   middleware.Protect(gate.New(nil), deps.Authenticator, authHandler.Unauthenticated),
		Auth:      authHandler,
		Dashboard: handler.NewDashboardHandler(deps),
		Admin:     handler.NewAdminHandler(deps),
		Events:    handler.NewEventsHandler(hub),
	})
	return &app{e: e, storage: storage, hub: hub}
}

// browser keeps the session cookie between requests.
type browser struct {
	t   *testing.T
	app *app
	sid string
}

func (b *browser) do(method, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	if b.sid != "" {
		req.AddCookie(&http.Cookie{Name: "dashboard_sid", Value: b.sid})
	}
	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "dashboard_sid" {
			b.sid = ck.Value
		}
	}
	return rec
}

func (b *browser) login(email string) {
	rec := b.do(http.MethodPost, "/login", url.Values{"email": {email}, "password": {"secret"}}, "")
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func (b *browser) store() *session.Store { return session.NewStore(b.app.storage, b.sid) }

func TestHealth(t *testing.T) {
	_, srv := newBackend(t)
	a := newApp(t, srv.URL)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestUnauthenticatedGetsLoginOnly(t *testing.T) {
	_, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}

	rec := br.do(http.MethodGet, "/", nil, "text/html")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Sign in")
	require.NotContains(t, rec.Body.String(), "Manage Users")
	require.NotEmpty(t, br.sid)

	rec = br.do(http.MethodGet, "/api/statistics", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	_, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}

	rec := br.do(http.MethodPost, "/login", url.Values{"email": {"admin@example.com"}, "password": {"wrong"}}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = br.do(http.MethodPost, "/login", url.Values{"email": {"not-an-email"}, "password": {"x"}}, "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDashboard(t *testing.T) {
	be, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}
	br.login("admin@example.com")

	rec := br.do(http.MethodGet, "/", nil, "text/html")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Ada • Admin")
	require.Contains(t, body, "Manage Users")
	require.Contains(t, body, "₹1,000")
	require.Contains(t, body, "Dune")
	require.Contains(t, body, "Unknown User")
	require.Contains(t, body, "Unknown Content")
	require.Contains(t, body, "₹199")

	require.False(t, be.lastQuery(apiclient.OverviewPath).Has("movieId"))
	require.Equal(t, "2026-03-08", be.lastQuery(apiclient.ChartDataPath).Get("startDate"))

	rec = br.do(http.MethodGet, "/api/statistics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.EqualValues(t, 5, st["totalTransactions"])
	require.Len(t, st["topSellingMovies"], 1)

	rec = br.do(http.MethodGet, "/api/sales/daily", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var daily struct {
		Daily []model.DailySalesPoint `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &daily))
	require.Len(t, daily.Daily, 7)
	require.Equal(t, "1000", daily.Daily[6].Sales.String())

	rec = br.do(http.MethodGet, "/api/transactions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"t1"`)
}

func TestFilmmakerScopeAndAdminRedirect(t *testing.T) {
	be, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}
	br.login("fay@example.com")

	rec := br.do(http.MethodGet, "/", nil, "text/html")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Fay • Filmmaker")
	require.NotContains(t, rec.Body.String(), "Manage Users")
	for _, p := range []string{apiclient.OverviewPath, apiclient.ChartDataPath, apiclient.TopMoviesPath} {
		require.Equal(t, "m1", be.lastQuery(p).Get("movieId"), p)
	}

	br.do(http.MethodGet, "/api/transactions", nil, "")
	require.Equal(t, "m1", be.lastQuery(apiclient.SalesPath).Get("movieId"))

	rec = br.do(http.MethodGet, "/admin/users", nil, "text/html")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestCreateFilmmaker(t *testing.T) {
	be, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}
	br.login("admin@example.com")

	rec := br.do(http.MethodGet, "/admin/users", nil, "text/html")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Heat")

	form := url.Values{"name": {"Neo"}, "email": {"neo@example.com"}, "password": {"pw"}}
	rec = br.do(http.MethodPost, "/admin/users", form, "text/html")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), handler.MsgSelectMovie)
	require.Empty(t, be.created)

	form.Set("assignedMovieId", "m2")
	rec = br.do(http.MethodPost, "/admin/users", form, "text/html")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "User created")
	require.Len(t, be.created, 1)
	require.Equal(t, model.RoleFilmmaker, be.created[0]["role"])
	require.Equal(t, "m2", be.created[0]["assignedMovieId"])
}

func TestDashboardErrorPage(t *testing.T) {
	be, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}
	br.login("admin@example.com")
	be.mu.Lock()
	be.failPath = apiclient.TopMoviesPath
	be.mu.Unlock()

	rec := br.do(http.MethodGet, "/", nil, "text/html")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), handler.MsgDashboardFailed)
	require.Contains(t, rec.Body.String(), "Retry")
	require.Contains(t, rec.Body.String(), "Clear session")

	rec = br.do(http.MethodGet, "/api/statistics", nil, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"error":"failed to fetch dashboard data"}`, rec.Body.String())

	// Clear session & retry.
	rec = br.do(http.MethodPost, "/logout", url.Values{"next": {"/"}}, "text/html")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	_, ok := br.store().Token(context.Background())
	require.False(t, ok)
}

func TestRejectedTokenClearsSessionAndNotifiesTabs(t *testing.T) {
	be, srv := newBackend(t)
	a := newApp(t, srv.URL)
	br := &browser{t: t, app: a}
	br.login("admin@example.com")

	ch, cancel := a.hub.Subscribe(br.sid)
	defer cancel()

	be.mu.Lock()
	be.reject = true
	be.mu.Unlock()

	rec := br.do(http.MethodGet, "/", nil, "text/html")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Sign in")
	_, ok := br.store().Token(context.Background())
	require.False(t, ok)

	select {
	case ev := <-ch:
		require.Equal(t, events.TypeInvalidated, ev.Type)
		require.Equal(t, br.sid, ev.SessionID)
	case <-time.After(time.Second):
		t.Fatal("no session event")
	}
}

func TestLogout(t *testing.T) {
	_, srv := newBackend(t)
	br := &browser{t: t, app: newApp(t, srv.URL)}
	br.login("admin@example.com")

	rec := br.do(http.MethodGet, "/login", nil, "text/html")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = br.do(http.MethodPost, "/logout", url.Values{}, "text/html")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = br.do(http.MethodGet, "/", nil, "text/html")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
