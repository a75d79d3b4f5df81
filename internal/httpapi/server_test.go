package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bozorapp/bozor/auth"
	"github.com/bozorapp/bozor/mail"
	"github.com/bozorapp/bozor/store"
)

type testAPI struct {
	srv    *httptest.Server
	store  *store.Store
	engine *auth.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := auth.DefaultConfig()
	cfg.AccessSecret = []byte("access-secret-0123456789abcdef01")
	cfg.RefreshSecret = []byte("refresh-secret-0123456789abcdef0")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	logger := slog.New(slog.DiscardHandler)
	engine, err := auth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store.NewAccounts(st)).
		WithMailer(&mail.LogSender{Logger: logger}).
		WithLogger(logger).
		Build()
	require.NoError(t, err)

	api := NewServer(engine, st, logger)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, store: st, engine: engine}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func (a *testAPI) registerUser(t *testing.T, email string) *auth.TokenPair {
	t.Helper()
	resp, raw := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "Passw0rd!",
		"name":     "Test",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(raw, &pair))
	return &pair
}

// adminToken promotes a fresh user and logs in again so the new role is
// in the token.
func (a *testAPI) adminToken(t *testing.T, email, role string) string {
	t.Helper()
	a.registerUser(t, email)

	user, err := a.store.UserByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NoError(t, a.store.UpdateUserRole(context.Background(), user.ID, role))

	resp, raw := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(raw, &pair))
	return pair.AccessToken
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	api := newTestAPI(t)

	pair := api.registerUser(t, "flow@bozor.uz")

	resp, raw := api.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var rotated auth.TokenPair
	require.NoError(t, json.Unmarshal(raw, &rotated))

	// The presented token is dead once rotation succeeded.
	resp, raw = api.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var failure struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &failure))
	assert.Equal(t, http.StatusUnauthorized, failure.StatusCode)
	assert.NotEmpty(t, failure.Message)
}

func TestRegisterConflict(t *testing.T) {
	api := newTestAPI(t)
	api.registerUser(t, "conflict@bozor.uz")

	resp, _ := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "conflict@bozor.uz",
		"password": "OtherPass1",
		"name":     "Other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginFailuresShareStatusAndMessage(t *testing.T) {
	api := newTestAPI(t)
	api.registerUser(t, "probe@bozor.uz")

	_, rawUnknown := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ghost@bozor.uz", "password": "Passw0rd!",
	})
	_, rawWrong := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "probe@bozor.uz", "password": "wrong-password",
	})
	assert.JSONEq(t, string(rawUnknown), string(rawWrong))
}

func TestGuardRejectsBadTokens(t *testing.T) {
	api := newTestAPI(t)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-jwt",
	} {
		req, err := http.NewRequest(http.MethodGet, api.srv.URL+"/basket", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := api.srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestUpdatePasswordEndpoint(t *testing.T) {
	api := newTestAPI(t)
	pair := api.registerUser(t, "pw@bozor.uz")

	resp, raw := api.do(t, http.MethodPut, "/auth/update-password", pair.AccessToken, map[string]string{
		"currentPassword": "Passw0rd!",
		"newPassword":     "NewPass456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, _ = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "pw@bozor.uz", "password": "NewPass456",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "pw@bozor.uz", "password": "Passw0rd!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWeakPasswordIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "weak@bozor.uz",
		"password": "short",
		"name":     "Weak",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogRoleEnforcement(t *testing.T) {
	api := newTestAPI(t)
	userPair := api.registerUser(t, "shopper@bozor.uz")
	admin := api.adminToken(t, "admin@bozor.uz", "admin")

	// Plain users may read but not write the catalog.
	resp, _ := api.do(t, http.MethodPost, "/categories", userPair.AccessToken, map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := api.do(t, http.MethodPost, "/categories", admin, map[string]string{"name": "Electronics"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var cat categoryBody
	require.NoError(t, json.Unmarshal(raw, &cat))

	resp, raw = api.do(t, http.MethodGet, "/categories/"+cat.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, _ = api.do(t, http.MethodGet, "/categories", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoleManagementRequiresSuperAdmin(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t, "onlyadmin@bozor.uz", "admin")
	super := api.adminToken(t, "super@bozor.uz", "super_admin")

	target := api.registerUser(t, "target@bozor.uz")
	claims, err := api.engine.VerifyAccess(target.AccessToken)
	require.NoError(t, err)

	resp, _ := api.do(t, http.MethodPut, "/users/"+claims.UID+"/role", admin, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPut, "/users/"+claims.UID+"/role", super, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPut, "/users/"+claims.UID+"/role", super, map[string]string{"role": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/users", super, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBasketAndOrderFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t, "stock@bozor.uz", "admin")
	shopper := api.registerUser(t, "buyer@bozor.uz")

	resp, raw := api.do(t, http.MethodPost, "/products", admin, map[string]any{
		"name":  "Widget",
		"price": 1500,
		"stock": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var product productBody
	require.NoError(t, json.Unmarshal(raw, &product))

	resp, raw = api.do(t, http.MethodPost, "/basket/items", shopper.AccessToken, map[string]any{
		"productId": product.ID,
		"quantity":  2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var basket basketBody
	require.NoError(t, json.Unmarshal(raw, &basket))
	require.Len(t, basket.Items, 1)

	resp, raw = api.do(t, http.MethodPost, "/orders", shopper.AccessToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var order orderBody
	require.NoError(t, json.Unmarshal(raw, &order))
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, int64(3000), order.Total)

	// Another user cannot see the order; the owner and admins can.
	other := api.registerUser(t, "nosy@bozor.uz")
	resp, _ = api.do(t, http.MethodGet, "/orders/"+order.ID, other.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/orders/"+order.ID, shopper.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPut, "/orders/"+order.ID+"/status", admin, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Repeating a transition is a conflict.
	resp, _ = api.do(t, http.MethodPut, "/orders/"+order.ID+"/status", admin, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw = api.do(t, http.MethodGet, "/orders", shopper.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []orderBody
	require.NoError(t, json.Unmarshal(raw, &orders))
	assert.Len(t, orders, 1)
}

// Rejected input is a 400 carrying the validation message; anything the
// database reports beyond the known sentinels is a 500 whose body never
// echoes the underlying error text.
func TestCatalogCreateErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	admin := api.adminToken(t, "mapper@bozor.uz", "admin")

	resp, raw := api.do(t, http.MethodPost, "/products", admin, map[string]any{
		"name":  "Negative",
		"price": -5,
		"stock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "price")

	resp, raw = api.do(t, http.MethodPost, "/categories", admin, map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	// A dangling category reference trips a foreign key constraint.
	resp, raw = api.do(t, http.MethodPost, "/products", admin, map[string]any{
		"name":       "Orphan",
		"price":      10,
		"stock":      1,
		"categoryId": "no-such-category",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var failure errorBody
	require.NoError(t, json.Unmarshal(raw, &failure))
	assert.Equal(t, "internal error", failure.Message)
}

func TestOrderFromEmptyBasketIsConflict(t *testing.T) {
	api := newTestAPI(t)
	shopper := api.registerUser(t, "emptycart@bozor.uz")

	resp, _ := api.do(t, http.MethodPost, "/orders", shopper.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealthzAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	api.registerUser(t, fmt.Sprintf("metrics-%d@bozor.uz", 1))

	resp, raw := api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "bozor_auth_operations_total")
	assert.Contains(t, string(raw), "bozor_http_requests_total")
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/auth/login", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp, err := api.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
