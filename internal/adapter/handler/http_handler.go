package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/adapter/channel"
	"github.com/rl1809/catalog-cart/internal/core/cart"
	"github.com/rl1809/catalog-cart/internal/core/customization"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/order"
	"github.com/rl1809/catalog-cart/internal/core/service"
)

const (
	sessionHeader = "X-Session-ID"
	requestHeader = "X-Request-ID"
)

type HTTPHandler struct {
	tenants  *Tenants
	checkout *service.CheckoutService
	hub      *Hub
	metrics  http.Handler
}

func NewHTTPHandler(tenants *Tenants, checkout *service.CheckoutService, hub *Hub, metrics http.Handler) *HTTPHandler {
	return &HTTPHandler{tenants: tenants, checkout: checkout, hub: hub, metrics: metrics}
}

// Router mounts every route behind the request logger.
func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}
	if h.hub != nil {
		r.HandleFunc("/ws/inventory", h.hub.ServeWS).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/{tenant}").Subrouter()
	api.HandleFunc("/products/parse", h.ParseProducts).Methods(http.MethodPost)
	api.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", h.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", h.UpdateItem).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{id}", h.RemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/cart/zone", h.SelectZone).Methods(http.MethodPut)
	api.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/inventory/{itemID}", h.GetAvailability).Methods(http.MethodGet)

	return logMiddleware(r)
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type totalsResponse struct {
	Count     int    `json:"count"`
	Subtotal  int64  `json:"subtotal"`
	Delivery  int64  `json:"delivery"`
	Total     int64  `json:"total"`
	ToConsult bool   `json:"toConsult"`
	Display   string `json:"display"`
}

type cartResponse struct {
	Items   []domain.LineItem    `json:"items"`
	Zone    *domain.DeliveryZone `json:"zone,omitempty"`
	Totals  totalsResponse       `json:"totals"`
	Notices []string             `json:"notices,omitempty"`
}

type addItemRequest struct {
	ProductID string              `json:"productId"`
	VariantID string              `json:"variantId"`
	Excluded  []string            `json:"excluded"`
	Addons    map[string]bool     `json:"addons"`
	Options   map[string][]string `json:"options"`
}

type updateItemRequest struct {
	Delta int `json:"delta"`
}

type zoneRequest struct {
	ZoneID string `json:"zoneId"`
}

type checkoutRequest struct {
	RequestID string              `json:"requestId"`
	Form      domain.CheckoutForm `json:"form"`
}

type checkoutResponse struct {
	OrderID string `json:"orderId,omitempty"`
	Link    string `json:"link"`
	Message string `json:"message"`
	Notice  string `json:"notice"`
}

type availabilityResponse struct {
	Key       string `json:"key"`
	Tracked   bool   `json:"tracked"`
	Available *int   `json:"available,omitempty"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ParseProducts(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var cards []map[string]string
	if err := json.NewDecoder(r.Body).Decode(&cards); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if tenant.Prices != nil {
		if err := tenant.Prices.Refresh(r.Context()); err != nil {
			log.WithError(err).WithField("tenant", tenant.Config.ID).Warn("could not refresh price overrides")
		}
	}
	// the page sees the prices the cart will charge
	products := tenant.Products.Register(cards)
	if tenant.Tracked() && tenant.Config.DefaultStock > 0 {
		seedProducts(r.Context(), tenant, products)
	}
	writeJSON(w, http.StatusOK, products)
}

// seedProducts gives every product and variant the catalog's default stock
// the first time it shows up on a page.
func seedProducts(ctx context.Context, tenant *Tenant, products []domain.Product) {
	var items []domain.ReservationItem
	for _, p := range products {
		if !p.HasVariants() {
			items = append(items, domain.ReservationItem{ItemID: p.ID, Name: p.Name})
			continue
		}
		for _, v := range p.Variants {
			items = append(items, domain.ReservationItem{ItemID: p.ID, VariantID: v.ID, Name: p.Name})
		}
	}
	created, err := tenant.Inventory.Seed(ctx, items, tenant.Config.DefaultStock)
	if err != nil {
		log.WithError(err).WithField("tenant", tenant.Config.ID).Error("failed to seed inventory")
		return
	}
	if len(created) > 0 {
		log.WithFields(log.Fields{"tenant": tenant.Config.ID, "keys": created}).Info("seeded inventory")
	}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	if h.anonymous(w, r) {
		return
	}
	_, s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeCart(w, http.StatusOK, s)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if h.anonymous(w, r) {
		return
	}
	_, s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	h.writeCart(w, http.StatusOK, s)
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	tenant, s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing product id"})
		return
	}
	// prices come from the registered product, never from the request
	product, found := tenant.Products.Lookup(req.ProductID)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown product"})
		return
	}
	item, err := configure(product, req, tenant.Format.Format)
	if err != nil {
		var groupErr *customization.GroupError
		if errors.As(err, &groupErr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: groupErr.Error(), Fields: []string{groupErr.GroupID}})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.store.Add(r.Context(), item); err != nil {
		h.writeCartError(w, tenant, s, err)
		return
	}
	h.writeCart(w, http.StatusOK, s)
}

// configure replays the customer's choices through a customization session.
func configure(p domain.Product, req addItemRequest, format func(int64) string) (domain.LineItem, error) {
	session := customization.NewSession(p, format)
	session.Open()
	defer session.Close()

	if req.VariantID != "" {
		if err := session.SelectVariant(req.VariantID); err != nil {
			return domain.LineItem{}, err
		}
	}
	for _, id := range req.Excluded {
		if err := session.SetIncluded(id, false); err != nil {
			return domain.LineItem{}, err
		}
	}
	for id, selected := range req.Addons {
		if err := session.SetAddon(id, selected); err != nil {
			return domain.LineItem{}, err
		}
	}
	// groups are applied in catalog order so that conditional groups become
	// visible before their own options are set
	for _, g := range p.Groups {
		for _, optionID := range req.Options[g.ID] {
			if err := session.SetOption(g.ID, optionID, true); err != nil {
				return domain.LineItem{}, err
			}
		}
	}
	return session.Confirm()
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	tenant, s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := s.store.SetQuantity(r.Context(), mux.Vars(r)["id"], req.Delta); err != nil {
		h.writeCartError(w, tenant, s, err)
		return
	}
	h.writeCart(w, http.StatusOK, s)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	tenant, s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.store.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeCartError(w, tenant, s, err)
		return
	}
	h.writeCart(w, http.StatusOK, s)
}

func (h *HTTPHandler) SelectZone(w http.ResponseWriter, r *http.Request) {
	tenant, s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ZoneID == "" {
		s.store.SelectZone(nil)
		h.writeCart(w, http.StatusOK, s)
		return
	}
	zone, found := tenant.Config.Form.Zone(req.ZoneID)
	if !found {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown delivery zone", Fields: []string{"deliveryZone"}})
		return
	}
	s.store.SelectZone(&zone)
	h.writeCart(w, http.StatusOK, s)
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	tenant, s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if id := r.Header.Get(requestHeader); id != "" {
		req.RequestID = id
	}
	if req.RequestID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing request id"})
		return
	}

	result, err := h.checkout.Checkout(r.Context(), tenant.Checkout, s.store, service.CheckoutRequest{
		RequestID: req.RequestID,
		Form:      req.Form,
	})
	if err != nil {
		status, body := checkoutError(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).WithField("tenant", tenant.Config.ID).Error("checkout failed")
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		OrderID: result.OrderID,
		Link:    result.Link,
		Message: result.Message,
		Notice:  result.Notice,
	})
}

func checkoutError(err error) (int, errorResponse) {
	var fieldErr *domain.FieldErrors
	var stockErr *domain.StockError
	switch {
	case errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity, errorResponse{Error: order.NoticeRequiredFields, Fields: fieldErr.Fields}
	case errors.As(err, &stockErr):
		return http.StatusConflict, errorResponse{Error: order.StockNotice(stockErr)}
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, errorResponse{Error: "duplicate request"}
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, errorResponse{Error: order.NoticeEmptyCart}
	case errors.Is(err, service.ErrUnknownZone):
		return http.StatusBadRequest, errorResponse{Error: order.NoticeRequiredFields, Fields: []string{"deliveryZone"}}
	case errors.Is(err, channel.ErrInvalidPhone):
		return http.StatusServiceUnavailable, errorResponse{Error: order.NoticeInvalidPhone}
	case errors.Is(err, channel.ErrEncoding):
		return http.StatusBadGateway, errorResponse{Error: order.NoticeSendFailed}
	}
	return http.StatusInternalServerError, errorResponse{Error: order.NoticeSendFailed}
}

func (h *HTTPHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemID"]
	variantID := r.URL.Query().Get("variant")
	resp := availabilityResponse{Key: domain.StockKey(itemID, variantID)}
	if !tenant.Tracked() {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	available, err := tenant.Inventory.Available(r.Context(), itemID, variantID)
	if err != nil {
		log.WithError(err).WithField("key", resp.Key).Error("failed to read availability")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	resp.Tracked = available != nil
	resp.Available = available
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) tenant(w http.ResponseWriter, r *http.Request) (*Tenant, bool) {
	tenant, ok := h.tenants.Get(mux.Vars(r)["tenant"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown catalog"})
		return nil, false
	}
	return tenant, true
}

// anonymous answers a read-only cart request that carries no session id
// with an empty cart, without creating a session for it.
func (h *HTTPHandler) anonymous(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get(sessionHeader) != "" {
		return false
	}
	tenant, ok := h.tenant(w, r)
	if !ok {
		return true
	}
	writeJSON(w, http.StatusOK, cartResponse{
		Items:  []domain.LineItem{},
		Totals: totalsResponse{Display: tenant.Format.Format(0)},
	})
	return true
}

// session resolves the customer's cart. A request without a session id
// gets a fresh one echoed back in the response header.
func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*Tenant, *session, bool) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return nil, nil, false
	}
	id := r.Header.Get(sessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(sessionHeader, id)

	s, err := h.tenants.session(r.Context(), tenant, id)
	if err != nil {
		log.WithError(err).WithField("tenant", tenant.Config.ID).Error("failed to load cart")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return nil, nil, false
	}
	return tenant, s, true
}

func (h *HTTPHandler) writeCartError(w http.ResponseWriter, tenant *Tenant, s *session, err error) {
	switch {
	case errors.Is(err, cart.ErrNoStock):
		h.writeCart(w, http.StatusConflict, s)
	case errors.Is(err, cart.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not in cart"})
	case errors.Is(err, cart.ErrInvalidItem):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.WithError(err).WithField("tenant", tenant.Config.ID).Error("cart update failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *HTTPHandler) writeCart(w http.ResponseWriter, status int, s *session) {
	totals := s.store.Totals()
	items := s.store.Items()
	if items == nil {
		items = []domain.LineItem{}
	}
	writeJSON(w, status, cartResponse{
		Items: items,
		Zone:  s.store.Zone(),
		Totals: totalsResponse{
			Count:     totals.Count,
			Subtotal:  totals.Subtotal,
			Delivery:  totals.Delivery,
			Total:     totals.Total,
			ToConsult: totals.ToConsult,
			Display:   s.store.TotalDisplay(),
		},
		Notices: s.drain(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Debug("got a new request")
		h.ServeHTTP(w, r)
	})
}
