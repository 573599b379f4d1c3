package edge

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/observability"
)

const secret = "0123456789abcdef0123456789abcdef"

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func signAt(t *testing.T, at time.Time, ttl time.Duration) string {
	t.Helper()
	tm := auth.NewTokenManager(secret, time.Hour, auth.WithClock(func() time.Time { return at }))
	token, _, err := tm.Sign("u-1", "s-1", ttl)
	require.NoError(t, err)
	return token
}

func newGatekeeper(metrics *observability.Metrics, opts ...Option) *Gatekeeper {
	cookies := auth.NewCookieJar(config.CookieConfig{Name: "auth_token", Path: "/", SameSite: "lax"})
	deny := auth.NewDenyPolicy(config.EdgeConfig{LoginPath: "/login", APIPrefixes: []string{"/api"}})
	opts = append([]Option{WithClock(func() time.Time { return base }), WithMetrics(metrics)}, opts...)
	return New(secret, []string{"/admin", "/api/admin"}, cookies, deny, nil, opts...)
}

func newEdgeApp(g *Gatekeeper) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(g.Handler())
	app.Get("/*", func(c *fiber.Ctx) error {
		if claims, ok := ClaimsFromContext(c); ok {
			return c.SendString("origin:" + claims.UserID())
		}
		return c.SendString("origin")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func tamperSignature(token string) string {
	i := strings.LastIndex(token, ".") + 5
	swap := byte('A')
	if token[i] == 'A' {
		swap = 'B'
	}
	return token[:i] + string(swap) + token[i+1:]
}

func TestEvaluateStates(t *testing.T) {
	g := newGatekeeper(nil)

	tests := []struct {
		name   string
		token  string
		state  State
		reason error
	}{
		{name: "no token", token: "", state: NoToken, reason: auth.ErrMissingToken},
		{name: "valid", token: signAt(t, base.Add(-time.Minute), time.Hour), state: Verified},
		{name: "expired one second ago", token: signAt(t, base.Add(-time.Hour-time.Second), time.Hour), state: Rejected, reason: auth.ErrTokenExpired},
		{name: "garbage", token: "not.a.token", state: Rejected, reason: auth.ErrMalformedToken},
		{name: "forged", token: tamperSignature(signAt(t, base, time.Hour)), state: Rejected, reason: auth.ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(tt.token)
			assert.Equal(t, tt.state, d.State)
			if tt.reason != nil {
				assert.ErrorIs(t, d.Reason, tt.reason)
			}
			assert.Equal(t, tt.state == Verified, d.Allowed())
			if d.Allowed() {
				assert.Equal(t, "u-1", d.Claims.UserID())
			}
		})
	}
}

func TestEvaluateWrongSecret(t *testing.T) {
	other := auth.NewTokenManager(strings.Repeat("z", 32), time.Hour, auth.WithClock(func() time.Time { return base }))
	token, _, err := other.Sign("u-1", "", 0)
	require.NoError(t, err)

	d := newGatekeeper(nil).Evaluate(token)
	assert.Equal(t, Rejected, d.State)
	assert.ErrorIs(t, d.Reason, auth.ErrInvalidSignature)
}

func TestEvaluateMaxTokenAge(t *testing.T) {
	g := newGatekeeper(nil, WithMaxTokenAge(5*time.Minute))

	fresh := g.Evaluate(signAt(t, base.Add(-4*time.Minute), time.Hour))
	assert.Equal(t, Verified, fresh.State)

	stale := g.Evaluate(signAt(t, base.Add(-10*time.Minute), time.Hour))
	assert.Equal(t, Rejected, stale.State)
	assert.ErrorIs(t, stale.Reason, ErrTokenTooOld)
}

func TestProtects(t *testing.T) {
	g := newGatekeeper(nil)
	assert.True(t, g.Protects("/admin"))
	assert.True(t, g.Protects("/admin/users/1"))
	assert.True(t, g.Protects("/api/admin/metrics"))
	assert.False(t, g.Protects("/administrator"))
	assert.False(t, g.Protects("/api/users"))
	assert.False(t, g.Protects("/"))
}

func TestHandler(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newEdgeApp(newGatekeeper(metrics))

	t.Run("unprotected path bypasses", func(t *testing.T) {
		resp := get(t, app, "/administrator", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "origin", body(t, resp))
	})

	t.Run("no cookie redirects to login", func(t *testing.T) {
		resp := get(t, app, "/admin/users?page=2", "")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login?next=%2Fadmin%2Fusers%3Fpage%3D2", resp.Header.Get("Location"))
		assert.Empty(t, resp.Header.Get("Set-Cookie"))
	})

	t.Run("verified token reaches origin", func(t *testing.T) {
		resp := get(t, app, "/admin", signAt(t, base, time.Hour))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "origin:u-1", body(t, resp))
	})

	t.Run("expired token redirects and clears cookie", func(t *testing.T) {
		resp := get(t, app, "/admin", signAt(t, base.Add(-time.Hour-time.Second), time.Hour))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Set-Cookie"), "auth_token=;")
	})

	t.Run("api caller gets structured 401", func(t *testing.T) {
		resp := get(t, app, "/api/admin/metrics", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var payload map[string]map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, "UNAUTHORIZED", payload["error"]["code"])
	})

	t.Run("bearer header is accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
		req.Header.Set("Authorization", "Bearer "+signAt(t, base, time.Hour))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	snap := metrics.Snapshot()
	assert.EqualValues(t, 2, snap.EdgeDecisions["NoToken|missing_token"])
	assert.EqualValues(t, 2, snap.EdgeDecisions["Verified"])
	assert.EqualValues(t, 1, snap.EdgeDecisions["Rejected|token_expired"])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NoToken", NoToken.String())
	assert.Equal(t, "TokenPresent", TokenPresent.String())
	assert.Equal(t, "Verified", Verified.String())
	assert.Equal(t, "Rejected", Rejected.String())
}
