package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-cart/internal/adapter/channel"
	"github.com/rl1809/catalog-cart/internal/core/order"
)

type client struct {
	t       *testing.T
	router  http.Handler
	session string
}

func newClient(t *testing.T, env *testEnv) *client {
	return &client{t: t, router: NewHTTPHandler(env.tenants, env.checkout, env.hub, nil).Router()}
}

func (c *client) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.session != "" {
		req.Header.Set(sessionHeader, c.session)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if id := rec.Header().Get(sessionHeader); id != "" {
		c.session = id
	}
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func addPizza(c *client, size string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, "/api/pizzeria/cart/items", map[string]interface{}{
		"productId": "10",
		"options": map[string][]string{"size": {size}},
	})
}

func TestHealthCheck(t *testing.T) {
	c := newClient(t, newTestEnv(t))
	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownTenant(t *testing.T) {
	c := newClient(t, newTestEnv(t))
	rec := c.do(http.MethodGet, "/api/nope/cart", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseProducts(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)
	rec := c.do(http.MethodPost, "/api/pizzeria/products/parse", []map[string]string{
		pizzaAttrs(),
		{"data-item-name": "sin id"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "10", products[0]["id"])
	assert.EqualValues(t, 2000, products[0]["price"])

	// tracked catalogs seed missing records with the default stock
	assert.Equal(t, 0, env.reserved(t, "10"))
	env.setStock(t, "10", 1)
	c.do(http.MethodPost, "/api/pizzeria/products/parse", []map[string]string{pizzaAttrs()})
	inv, err := env.store.GetInventory(t.Context(), "10")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Stock, "existing records are left alone")
}

func TestAddItem_AssignsSessionAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	env.setStock(t, "10", 5)
	c := newClient(t, env)

	rec := addPizza(c, "grande")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, c.session)

	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2500), resp.Items[0].Price)
	assert.Equal(t, 1, resp.Items[0].Quantity)
	assert.Equal(t, "$ 2.500", resp.Totals.Display)
	assert.Equal(t, []string{"✅ Muzzarella agregado al carrito"}, resp.Notices)

	// the same session keeps its cart; notices are not repeated
	resp = decodeCart(t, c.do(http.MethodGet, "/api/pizzeria/cart", nil))
	assert.Len(t, resp.Items, 1)
	assert.Empty(t, resp.Notices)
}

func TestAddItem_RequiredGroup(t *testing.T) {
	c := newClient(t, newTestEnv(t))
	rec := c.do(http.MethodPost, "/api/pizzeria/cart/items", map[string]interface{}{
		"productId": "10",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"size"}, resp.Fields)
	assert.Equal(t, "Tamaño: Elegí exactamente 1", resp.Error)
}

func TestAddItem_StockLimit(t *testing.T) {
	env := newTestEnv(t)
	env.setStock(t, "10", 1)
	c := newClient(t, env)

	require.Equal(t, http.StatusOK, addPizza(c, "chica").Code)

	// a different configuration draws from the same stock record
	rec := addPizza(c, "grande")
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeCart(t, rec)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, []string{"⚠️ No hay más stock disponible de Muzzarella"}, resp.Notices)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	c := newClient(t, newTestEnv(t))
	rec := c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{"productId": "20"})
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeCart(t, rec).Items[0].ID

	rec = c.do(http.MethodPatch, "/api/kiosco/cart/items/"+id, map[string]int{"delta": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Equal(t, 3, resp.Items[0].Quantity)
	assert.Equal(t, int64(1800), resp.Totals.Total)

	rec = c.do(http.MethodPatch, "/api/kiosco/cart/items/missing", map[string]int{"delta": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodDelete, "/api/kiosco/cart/items/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeCart(t, rec)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)
}

func TestSelectZone(t *testing.T) {
	c := newClient(t, newTestEnv(t))
	// untracked products are not limited even in a tracking catalog
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/pizzeria/cart/items", map[string]interface{}{"productId": "20"}).Code)

	rec := c.do(http.MethodPut, "/api/pizzeria/cart/zone", map[string]string{"zoneId": "marte"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, "/api/pizzeria/cart/zone", map[string]string{"zoneId": "centro"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.NotNil(t, resp.Zone)
	assert.Equal(t, int64(300), resp.Totals.Delivery)
	assert.Equal(t, "$ 900", resp.Totals.Display)

	rec = c.do(http.MethodPut, "/api/pizzeria/cart/zone", map[string]string{"zoneId": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeCart(t, rec).Zone)
}

func TestCheckout_ReservesAndHandsOff(t *testing.T) {
	env := newTestEnv(t)
	env.setStock(t, "10", 2)
	c := newClient(t, env)
	require.Equal(t, http.StatusOK, addPizza(c, "grande").Code)

	rec := c.do(http.MethodPost, "/api/pizzeria/checkout", map[string]interface{}{
		"form": map[string]string{"name": "Ana", "phone": "1155550000", "deliveryZone": "centro"},
	}, requestHeader, "req-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.True(t, strings.HasPrefix(resp.Link, "https://wa.me/5491112345678?text="))
	assert.Contains(t, resp.Message, "*TOTAL: $ 2.800*")
	assert.Equal(t, order.NoticeSent, resp.Notice)
	assert.Equal(t, 1, env.reserved(t, "10"))

	assert.Empty(t, decodeCart(t, c.do(http.MethodGet, "/api/pizzeria/cart", nil)).Items)

	// replaying the request id is refused
	require.Equal(t, http.StatusOK, addPizza(c, "chica").Code)
	rec = c.do(http.MethodPost, "/api/pizzeria/checkout", map[string]interface{}{
		"form": map[string]string{"name": "Ana", "phone": "1155550000"},
	}, requestHeader, "req-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckout_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.setStock(t, "10", 1)
	c := newClient(t, env)

	rec := c.do(http.MethodPost, "/api/pizzeria/checkout", map[string]interface{}{
		"form": map[string]string{"name": "Ana", "phone": "1155550000"},
	}, requestHeader, "empty")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), order.NoticeEmptyCart)

	require.Equal(t, http.StatusOK, addPizza(c, "chica").Code)

	rec = c.do(http.MethodPost, "/api/pizzeria/checkout", map[string]interface{}{
		"form": map[string]string{"name": " "},
	}, requestHeader, "fields")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var fieldResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fieldResp))
	assert.Equal(t, order.NoticeRequiredFields, fieldResp.Error)
	assert.Equal(t, []string{"name", "phone"}, fieldResp.Fields)

	// stock sold elsewhere between adding and checking out
	_, err := env.store.SetStock(t.Context(), "10", "10", 0)
	require.NoError(t, err)
	rec = c.do(http.MethodPost, "/api/pizzeria/checkout", map[string]interface{}{
		"form": map[string]string{"name": "Ana", "phone": "1155550000"},
	}, requestHeader, "stock")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ya no está disponible")

	rec = c.do(http.MethodPost, "/api/pizzeria/checkout", map[string]interface{}{}, requestHeader, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_InvalidPhone(t *testing.T) {
	env := newTestEnv(t)
	kiosco, ok := env.tenants.Get("kiosco")
	require.True(t, ok)
	kiosco.Checkout.Channel = channel.NewWhatsApp("123", 0)
	c := newClient(t, env)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{"productId": "20"}).Code)
	rec := c.do(http.MethodPost, "/api/kiosco/checkout", map[string]interface{}{
		"requestId": "r1",
		"form":      map[string]string{"name": "Ana"},
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), order.NoticeInvalidPhone)
}

func TestGetAvailability(t *testing.T) {
	env := newTestEnv(t)
	env.setStock(t, "10", 4)
	c := newClient(t, env)

	var resp availabilityResponse
	rec := c.do(http.MethodGet, "/api/pizzeria/inventory/10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Tracked)
	require.NotNil(t, resp.Available)
	assert.Equal(t, 4, *resp.Available)

	resp = availabilityResponse{}
	rec = c.do(http.MethodGet, "/api/pizzeria/inventory/10?variant=xl", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10_xl", resp.Key)
	assert.False(t, resp.Tracked)

	resp = availabilityResponse{}
	rec = c.do(http.MethodGet, "/api/kiosco/inventory/20", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Tracked)
	assert.Nil(t, resp.Available)
}

func TestAddItem_PricesComeFromTheCatalog(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	rec := c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{
		"productId": "20",
		"product":   map[string]string{"data-item-id": "20", "data-item-price": "1"},
		"price":     1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(600), decodeCart(t, rec).Items[0].Price)

	// a page card cannot reprice a product the catalog already knows
	c.do(http.MethodPost, "/api/kiosco/products/parse", []map[string]string{
		{"data-item-id": "20", "data-item-name": "Empanada", "data-item-price": "1"},
	})
	rec = c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{"productId": "20"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1200), decodeCart(t, rec).Totals.Total)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	c := newClient(t, newTestEnv(t))
	rec := c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{"productId": "99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCart_WithoutSessionKeepsNoState(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(t, env)

	for i := 0; i < 3; i++ {
		rec := c.do(http.MethodGet, "/api/pizzeria/cart", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(sessionHeader))
		resp := decodeCart(t, rec)
		assert.Empty(t, resp.Items)
		assert.Equal(t, "$ 0", resp.Totals.Display)
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/pizzeria/cart", nil).Code)
	assert.Equal(t, 0, env.tenants.Sessions())
}

func TestTenants_SweepEvictsIdleSessions(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.tenants.now = func() time.Time { return now }
	env.tenants.SetSessionTTL(time.Hour)
	c := newClient(t, env)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{"productId": "20"}).Code)
	other := newClient(t, env)
	require.Equal(t, http.StatusOK, other.do(http.MethodPost, "/api/kiosco/cart/items", map[string]interface{}{"productId": "20"}).Code)
	require.Equal(t, 2, env.tenants.Sessions())

	now = now.Add(40 * time.Minute)
	c.do(http.MethodGet, "/api/kiosco/cart", nil)
	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, env.tenants.Sweep())
	assert.Equal(t, 1, env.tenants.Sessions())

	// the evicted cart was persisted and comes back with its session id
	resp := decodeCart(t, other.do(http.MethodGet, "/api/kiosco/cart", nil))
	assert.Len(t, resp.Items, 1)
}
