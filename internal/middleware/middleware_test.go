package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	var seen model.Requester
	whoami := func(c echo.Context) error {
		req, ok := Requester(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		seen = req
		return c.NoContent(http.StatusNoContent)
	}
	e.GET("/me", whoami, JWTAuth(secret))
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer junk"}).Code)

	user, err := utils.NewAccessToken(secret, 7, "ana@example.com", model.RoleUser, 5)
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + user.Token}

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/me", bearer).Code)
	assert.Equal(t, model.Requester{UserID: 7, Email: "ana@example.com", Role: model.RoleUser}, seen)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin", bearer).Code)

	adm, err := utils.NewAccessToken(secret, 1, "admin@example.com", model.RoleAdmin, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + adm.Token}).Code)
}

func TestTokenBucket(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodPost, "/book", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := serve(e, http.MethodPost, "/book", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// redis outage fails open
	mr.Close()
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/book", nil).Code)
}

func TestRedisCacheAndPurge(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "test:cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/slots", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))
	e.GET("/fail", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
	}, NewRedisCache(cfg, rdb))

	first := serve(e, http.MethodGet, "/slots?date=2025-06-10&category=2", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/slots?category=2&date=2025-06-10", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/slots?date=2025-06-11&category=2", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))

	require.NoError(t, NewCachePurger(cfg, rdb).Purge(t.Context()))
	again := serve(e, http.MethodGet, "/slots?date=2025-06-10&category=2", nil)
	assert.Equal(t, "MISS", again.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)

	serve(e, http.MethodGet, "/fail", nil)
	serve(e, http.MethodGet, "/fail", nil)
	assert.Equal(t, 5, calls, "errors are not cached")

	assert.NoError(t, NewCachePurger(cfg, nil).Purge(t.Context()))
}

func TestRedisCache_PurgeDuringHandlerDropsStaleResponse(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "test:cache",
	}
	purger := NewCachePurger(cfg, rdb)
	free := true
	var midFlight func()
	e := echo.New()
	e.GET("/slots", func(c echo.Context) error {
		snapshot := free
		if midFlight != nil {
			// a booking lands after the read but before the response is stored
			midFlight()
			midFlight = nil
		}
		return c.JSON(http.StatusOK, echo.Map{"available": snapshot})
	}, NewRedisCache(cfg, rdb))

	midFlight = func() {
		free = false
		require.NoError(t, purger.Purge(t.Context()))
	}
	stale := serve(e, http.MethodGet, "/slots?date=2025-06-10", nil)
	assert.Equal(t, "MISS", stale.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"available":true}`, stale.Body.String())

	fresh := serve(e, http.MethodGet, "/slots?date=2025-06-10", nil)
	assert.Equal(t, "MISS", fresh.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"available":false}`, fresh.Body.String())

	cached := serve(e, http.MethodGet, "/slots?date=2025-06-10", nil)
	assert.Equal(t, "HIT", cached.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"available":false}`, cached.Body.String())

	gen, err := mr.Get("test:cache:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	require.NoError(t, purger.Purge(t.Context()))
	assert.True(t, mr.Exists("test:cache:gen"), "purge keeps the generation key")
}

func TestCacheKey_ScopedToDayAndGeneration(t *testing.T) {
	cfg := config.CacheConfig{KeyStrategy: "route_query", Prefix: "test:cache"}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/slots?category=2", nil), httptest.NewRecorder())

	today := cacheKeyFrom(cfg, c, "0", "2025-06-10")
	assert.Equal(t, today, cacheKeyFrom(cfg, c, "0", "2025-06-10"))
	assert.NotEqual(t, today, cacheKeyFrom(cfg, c, "0", "2025-06-11"))
	assert.NotEqual(t, today, cacheKeyFrom(cfg, c, "1", "2025-06-10"))

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	late := time.Date(2025, 6, 11, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-11", cacheDay(nil, late))
	assert.Equal(t, "2025-06-10", cacheDay(ny, late))
}
