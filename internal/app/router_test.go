package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storelinker-service/internal/config"
	"storelinker-service/internal/pkg/jwt"
	"storelinker-service/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type authData struct {
	Token     string         `json:"token"`
	SessionID string         `json:"sessionId"`
	User      map[string]any `json:"user"`
}

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	return newTestContainer(t).Handler
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.AppConfig{
		Env:         "test",
		CORSOrigins: []string{"*"},
		JWT:         jwt.Config{Secret: "0123456789abcdef0123456789abcdef", Issuer: "storelinker"},
		BcryptCost:  bcrypt.MinCost,
	}

	store := memory.NewStore()
	c, err := Build(cfg, Storage{
		Users:    store.Users(),
		Sessions: store.Sessions(),
		Products: store.Products(),
		Tx:       store,
	}, rdb, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		c.Ledger.Wait()
	})
	return c
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Firefox/120.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeAuth(t *testing.T, env envelope) authData {
	t.Helper()
	var d authData
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d
}

func TestVendorRegisterLoginLogout(t *testing.T) {
	h := newTestApp(t)

	code, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "v@x.com", "password": "pw123", "name": "Val Vendor",
		"userType": "vendor", "storeName": "V Shop",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.NotEmpty(t, decodeAuth(t, env).Token)

	code, env = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "v@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	login := decodeAuth(t, env)
	assert.NotEmpty(t, login.SessionID)
	assert.Equal(t, "V Shop", login.User["storeName"])

	code, _ = call(t, h, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, h, http.MethodPost, "/api/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = call(t, h, http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)
}

func TestCustomerResponsesNeverCarryStoreName(t *testing.T) {
	h := newTestApp(t)

	code, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "pw123", "userType": "customer", "storeName": "Sneaky",
	})
	require.Equal(t, http.StatusCreated, code)
	reg := decodeAuth(t, env)
	assert.NotContains(t, reg.User, "storeName")

	code, env = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "C@X.com", "password": "pw123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, decodeAuth(t, env).User, "storeName")

	code, env = call(t, h, http.MethodPut, "/api/auth/profile", reg.Token, map[string]any{
		"firstName": "Cee", "storeName": "Still Sneaky",
	})
	require.Equal(t, http.StatusOK, code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.NotContains(t, profile, "storeName")
	assert.Equal(t, "Cee", profile["firstName"])
}

func TestLoginFailures(t *testing.T) {
	h := newTestApp(t)

	code, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "pw123", "userType": "customer",
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "c@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, _ = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "nobody@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, env = call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "not-an-email", "password": "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "fields")
}

func TestLogoutAllAndSessions(t *testing.T) {
	h := newTestApp(t)

	_, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "pw123",
	})
	first := decodeAuth(t, env)

	_, env = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "c@x.com", "password": "pw123",
	})
	second := decodeAuth(t, env)

	code, env := call(t, h, http.MethodGet, "/api/auth/sessions", second.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var sessions struct {
		Sessions []map[string]any `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	assert.Len(t, sessions.Sessions, 2)

	code, env = call(t, h, http.MethodGet, "/api/auth/session-stats", second.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, h, http.MethodGet, "/api/auth/active-sessions", second.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var active struct {
		Sessions []map[string]any `json:"sessions"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &active))
	assert.Equal(t, 2, active.Count)

	code, env = call(t, h, http.MethodPost, "/api/auth/logout-all", second.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Logged out from all devices. 2 sessions ended", env.Message)

	code, _ = call(t, h, http.MethodGet, "/api/auth/me", first.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, h, http.MethodGet, "/api/auth/me", second.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestApp(t)

	code, env := call(t, h, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = call(t, h, http.MethodGet, "/api/auth/me", "not.a.jwt", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRecoveryIsAdminOnly(t *testing.T) {
	h := newTestApp(t)

	_, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "v@x.com", "password": "pw123", "userType": "vendor", "storeName": "V Shop",
	})
	vendor := decodeAuth(t, env)

	code, _ := call(t, h, http.MethodPost, "/api/auth/admin/recover-all-sessions", vendor.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "root@x.com", "password": "pw123", "userType": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminRecoveryAndStats(t *testing.T) {
	c := newTestContainer(t)
	h := c.Handler
	require.NoError(t, c.AuthService.EnsureAdminExists(context.Background(), "admin@x.com", "adminpw"))

	_, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "pw123",
	})
	customer := decodeAuth(t, env)

	code, env := call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "admin@x.com", "password": "adminpw",
	})
	require.Equal(t, http.StatusOK, code)
	admin := decodeAuth(t, env)

	code, env = call(t, h, http.MethodPost, "/api/auth/recover-user-sessions", admin.Token, map[string]any{
		"email": "c@x.com",
	})
	require.Equal(t, http.StatusOK, code)
	var recovered struct {
		AddedSessions int `json:"addedSessions"`
		EndedSessions int `json:"endedSessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recovered))
	assert.Zero(t, recovered.AddedSessions)
	assert.Zero(t, recovered.EndedSessions)

	userID, _ := customer.User["id"].(string)
	code, env = call(t, h, http.MethodGet, "/api/auth/admin/ws-stats?userId="+userID, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var stats struct {
		TotalConnections int `json:"totalConnections"`
		UserConnections  int `json:"userConnections"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Zero(t, stats.TotalConnections)
	assert.Zero(t, stats.UserConnections)
}

func TestProductsAndStores(t *testing.T) {
	h := newTestApp(t)

	_, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "v@x.com", "password": "pw123", "userType": "vendor", "storeName": "V Shop",
	})
	vendor := decodeAuth(t, env)
	_, env = call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "pw123",
	})
	customer := decodeAuth(t, env)

	code, _ := call(t, h, http.MethodPost, "/api/products", customer.Token, map[string]any{"name": "Mug", "price": 5})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, h, http.MethodPost, "/api/products", vendor.Token, map[string]any{"name": "Mug", "price": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = call(t, h, http.MethodPost, "/api/products", vendor.Token, map[string]any{"name": "Mug", "price": 5, "stock": 3})
	require.Equal(t, http.StatusCreated, code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created["id"].(string)

	code, _ = call(t, h, http.MethodGet, "/api/products/"+id, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, h, http.MethodGet, "/api/stores", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "V Shop")

	code, _ = call(t, h, http.MethodDelete, "/api/products/"+id, vendor.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, h, http.MethodGet, "/api/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = call(t, h, http.MethodGet, "/api/vendor/products", vendor.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), id)
}
