package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

func dialInventory(t *testing.T, srv *httptest.Server, tenant string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/inventory?tenant=" + tenant
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_StreamsTenantChanges(t *testing.T) {
	env := newTestEnv(t)
	env.setStock(t, "10", 3)
	srv := httptest.NewServer(NewHTTPHandler(env.tenants, env.checkout, env.hub, nil).Router())
	defer srv.Close()

	conn := dialInventory(t, srv, "pizzeria")
	other := dialInventory(t, srv, "kiosco")
	require.Eventually(t, func() bool {
		return env.hub.Subscribers("pizzeria") == 1 && env.hub.Subscribers("kiosco") == 1
	}, time.Second, 10*time.Millisecond)

	pizzeria, _ := env.tenants.Get("pizzeria")
	_, err := pizzeria.Inventory.SetStock(t.Context(), "10", "", 7)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event InventoryEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "pizzeria", event.Tenant)
	assert.Equal(t, domain.ChangeStockSet, event.Kind)
	assert.Equal(t, "10", event.Key)
	assert.Equal(t, 7, event.Available)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other tenants receive nothing")
}

func TestHub_RequiresTenant(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws/inventory", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHub_CloseDisconnects(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?tenant=pizzeria"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers("pizzeria") == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.Subscribers("pizzeria"))
}
