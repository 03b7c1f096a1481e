package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/leikapui/sales-dashboard/internal/config"
	"github.com/leikapui/sales-dashboard/internal/gate"
	"github.com/leikapui/sales-dashboard/internal/model"
	"github.com/leikapui/sales-dashboard/internal/session"
)

type fakeAuth struct {
	expiring bool
	valid    bool
	store    *session.Store
}

func (f *fakeAuth) IsTokenExpiringSoon(context.Context) bool { return f.expiring }
func (f *fakeAuth) VerifyToken(context.Context) bool         { return f.valid }
func (f *fakeAuth) Logout(ctx context.Context) error         { return f.store.Clear(ctx) }

var sessCfg = SessionConfig{CookieName: "dashboard_sid", TTL: time.Hour}

func TestSessionIssuesCookie(t *testing.T) {
	e := echo.New()
	storage := session.NewMemoryStorage(0)
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = SessionFrom(c).ID()
		return c.NoContent(http.StatusNoContent)
	}, Session(sessCfg, storage))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "dashboard_sid", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, 3600, cookies[0].MaxAge)
	require.Equal(t, cookies[0].Value, seen)
	_, err := uuid.Parse(seen)
	require.NoError(t, err)

	// A valid cookie is reused without being reissued.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_sid", Value: seen})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Empty(t, rec.Result().Cookies())

	// A forged id is replaced.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_sid", Value: "../../etc"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Len(t, rec.Result().Cookies(), 1)
	require.NotEqual(t, "../../etc", seen)
}

func TestSessionFromWithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	st := SessionFrom(c)
	require.Empty(t, st.ID())
	_, ok := st.Token(context.Background())
	require.False(t, ok)
}

func protectedEcho(t *testing.T, storage session.Storage, auth *fakeAuth) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Use(Session(sessCfg, storage))
	protect := Protect(gate.New(nil), func(st *session.Store) gate.Authenticator {
		auth.store = st
		return auth
	}, func(c echo.Context) error {
		return c.HTML(http.StatusUnauthorized, "<form>login</form>")
	})
	ok := func(c echo.Context) error {
		u := CurrentUser(c)
		return c.JSON(http.StatusOK, echo.Map{"user": u.Email, "role": u.Role})
	}
	e.GET("/", ok, protect)
	e.GET("/api/statistics", ok, protect)
	e.GET("/admin/users", ok, protect, RequireRole(model.RoleAdmin))
	e.GET("/api/admin", ok, protect, RequireRole(model.RoleAdmin))
	return e
}

func signedIn(t *testing.T, storage session.Storage, u model.User) string {
	t.Helper()
	sid := uuid.NewString()
	require.NoError(t, session.NewStore(storage, sid).Save(context.Background(), "tok", u))
	return sid
}

func get(e *echo.Echo, path, sid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "dashboard_sid", Value: sid})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProtect(t *testing.T) {
	admin := model.User{ID: "a1", Email: "admin@example.com", Role: model.RoleAdmin}

	t.Run("no session renders login", func(t *testing.T) {
		e := protectedEcho(t, session.NewMemoryStorage(0), &fakeAuth{valid: true})
		rec := get(e, "/", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "login")
	})

	t.Run("no session json", func(t *testing.T) {
		e := protectedEcho(t, session.NewMemoryStorage(0), &fakeAuth{valid: true})
		rec := get(e, "/api/statistics", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())
	})

	t.Run("authenticated", func(t *testing.T) {
		storage := session.NewMemoryStorage(0)
		e := protectedEcho(t, storage, &fakeAuth{valid: true})
		rec := get(e, "/", signedIn(t, storage, admin))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"user":"admin@example.com","role":"admin"}`, rec.Body.String())
	})

	t.Run("rejected token clears session", func(t *testing.T) {
		storage := session.NewMemoryStorage(0)
		e := protectedEcho(t, storage, &fakeAuth{valid: false})
		sid := signedIn(t, storage, admin)
		rec := get(e, "/api/statistics", sid)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		_, ok := session.NewStore(storage, sid).Token(context.Background())
		require.False(t, ok)
	})

	t.Run("expiring token", func(t *testing.T) {
		storage := session.NewMemoryStorage(0)
		e := protectedEcho(t, storage, &fakeAuth{valid: true, expiring: true})
		rec := get(e, "/", signedIn(t, storage, admin))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSetUserStoresOnlyTheUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.Equal(t, "anon", userID(c))

	setUser(c, &model.User{ID: "f1", Role: model.RoleFilmmaker})
	require.Equal(t, "f1", userID(c))
	require.Equal(t, model.RoleFilmmaker, CurrentUser(c).Role)
	require.Nil(t, c.Get("role"))
	require.Nil(t, c.Get("user_id"))
}

func TestRequireRole(t *testing.T) {
	storage := session.NewMemoryStorage(0)
	e := protectedEcho(t, storage, &fakeAuth{valid: true})
	fm := signedIn(t, storage, model.User{ID: "f1", Email: "f@example.com", Role: model.RoleFilmmaker, AssignedMovieID: "m1"})
	adm := signedIn(t, storage, model.User{ID: "a1", Email: "a@example.com", Role: model.RoleAdmin})

	rec := get(e, "/admin/users", fm)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = get(e, "/api/admin", fm)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(e, "/admin/users", adm)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWantsJSON(t *testing.T) {
	e := echo.New()
	ctx := func(path, accept string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if accept != "" {
			req.Header.Set(echo.HeaderAccept, accept)
		}
		return e.NewContext(req, httptest.NewRecorder())
	}
	require.True(t, WantsJSON(ctx("/api/transactions", "")))
	require.True(t, WantsJSON(ctx("/events", "text/event-stream")))
	require.True(t, WantsJSON(ctx("/", "application/json")))
	require.False(t, WantsJSON(ctx("/", "text/html,application/xhtml+xml")))
	require.False(t, WantsJSON(ctx("/login", "")))
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewTokenBucket(cfg, rdb, nil))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(""))
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, post().Code)
	rec := post()
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = post()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "Too many attempts")
	require.True(t, mr.Exists("rl:ip:10.0.0.1:route:POST /login"))
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestTokenBucketKeysLoginsByEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "email",
		Prefix:         "rl",
	}

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		var req struct {
			Email string `form:"email"`
		}
		if err := c.Bind(&req); err != nil {
			return err
		}
		return c.String(http.StatusOK, req.Email)
	}, NewTokenBucket(cfg, rdb, nil))

	post := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email="+email+"&password=x"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := post("ada@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ada@example.com", rec.Body.String())
	require.Equal(t, http.StatusTooManyRequests, post("ADA@example.com").Code)
	require.Equal(t, http.StatusOK, post("fay@example.com").Code)
	require.True(t, mr.Exists("rl:email:ada@example.com"))
	require.True(t, mr.Exists("rl:email:fay@example.com"))
}

func TestTokenBucketUserStrategyFallsBackToAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user",
		Prefix:         "rl",
	}

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewTokenBucket(cfg, rdb, nil))

	post := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, post("10.0.0.1:1"))
	require.Equal(t, http.StatusNoContent, post("10.0.0.2:1"))
	require.Equal(t, http.StatusTooManyRequests, post("10.0.0.1:2"))
	require.True(t, mr.Exists("rl:ip:10.0.0.1:route:POST /login"))
	require.False(t, mr.Exists("rl:user:anon"))
}
