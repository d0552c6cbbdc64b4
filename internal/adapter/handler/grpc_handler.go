package handler

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/catalog-cart/internal/adapter/handler/adminpb"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/service"
)

// GRPCHandler serves the operator side of inventory: settling orders and
// maintaining stock records.
type GRPCHandler struct {
	adminpb.UnimplementedInventoryAdminServer
	tenants *Tenants
}

func NewGRPCHandler(tenants *Tenants) *GRPCHandler {
	return &GRPCHandler{tenants: tenants}
}

func (h *GRPCHandler) inventory(id string) (*Tenant, error) {
	tenant, err := h.tenant(id)
	if err != nil {
		return nil, err
	}
	if !tenant.Tracked() {
		return nil, status.Errorf(codes.FailedPrecondition, "catalog %q does not track inventory", id)
	}
	return tenant, nil
}

func (h *GRPCHandler) tenant(id string) (*Tenant, error) {
	tenant, ok := h.tenants.Get(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown catalog %q", id)
	}
	return tenant, nil
}

func (h *GRPCHandler) prices(id string) (*Tenant, error) {
	tenant, err := h.tenant(id)
	if err != nil {
		return nil, err
	}
	if tenant.Prices == nil {
		return nil, status.Errorf(codes.FailedPrecondition, "catalog %q has no price store", id)
	}
	return tenant, nil
}

func (h *GRPCHandler) ConfirmOrder(ctx context.Context, req *adminpb.OrderRequest) (*adminpb.OrderReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	o, err := tenant.Inventory.Confirm(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.OrderReply{Order: orderView(*o)}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *adminpb.OrderRequest) (*adminpb.OrderReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	o, err := tenant.Inventory.Cancel(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.OrderReply{Order: orderView(*o)}, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *adminpb.ListOrdersRequest) (*adminpb.ListOrdersReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	orders, err := tenant.Inventory.ListOrders(ctx, domain.OrderStatus(req.Status))
	if err != nil {
		return nil, toStatus(err)
	}
	reply := &adminpb.ListOrdersReply{Orders: make([]adminpb.Order, 0, len(orders))}
	for _, o := range orders {
		reply.Orders = append(reply.Orders, orderView(o))
	}
	return reply, nil
}

func (h *GRPCHandler) SetStock(ctx context.Context, req *adminpb.SetStockRequest) (*adminpb.InventoryReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	if req.ItemID == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}
	inv, err := tenant.Inventory.SetStock(ctx, req.ItemID, req.VariantID, req.Stock)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.InventoryReply{Inventory: inventoryView(inv)}, nil
}

func (h *GRPCHandler) AdjustStock(ctx context.Context, req *adminpb.AdjustStockRequest) (*adminpb.InventoryReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	inv, err := tenant.Inventory.AdjustStock(ctx, req.Key, req.Delta)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.InventoryReply{Inventory: inventoryView(inv)}, nil
}

func (h *GRPCHandler) GetInventory(ctx context.Context, req *adminpb.GetInventoryRequest) (*adminpb.InventoryReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	inv, err := tenant.Inventory.Get(ctx, req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	if inv == nil {
		return nil, status.Errorf(codes.NotFound, "no inventory record for %q", req.Key)
	}
	return &adminpb.InventoryReply{Inventory: inventoryView(*inv)}, nil
}

func (h *GRPCHandler) ListInventory(ctx context.Context, req *adminpb.TenantRequest) (*adminpb.ListInventoryReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	items, err := tenant.Inventory.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.ListInventoryReply{Items: inventoryViews(items)}, nil
}

func (h *GRPCHandler) RecalculateReserved(ctx context.Context, req *adminpb.TenantRequest) (*adminpb.RecalculateReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	changed, err := tenant.Inventory.RecalculateReserved(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	log.WithFields(log.Fields{"tenant": req.Tenant, "changed": len(changed)}).Info("reserved counters recalculated")
	return &adminpb.RecalculateReply{Changed: driftViews(changed)}, nil
}

func (h *GRPCHandler) Diagnose(ctx context.Context, req *adminpb.TenantRequest) (*adminpb.DiagnoseReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	d, err := tenant.Inventory.Diagnose(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.DiagnoseReply{Oversold: inventoryViews(d.Oversold), Drift: driftViews(d.Drift)}, nil
}

func (h *GRPCHandler) Seed(ctx context.Context, req *adminpb.SeedRequest) (*adminpb.SeedReply, error) {
	tenant, err := h.inventory(req.Tenant)
	if err != nil {
		return nil, err
	}
	stock := req.Stock
	if stock == 0 {
		stock = tenant.Config.DefaultStock
	}
	items := make([]domain.ReservationItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ItemID == "" {
			return nil, status.Error(codes.InvalidArgument, "item id is required")
		}
		items = append(items, domain.ReservationItem{ItemID: it.ItemID, VariantID: it.VariantID})
	}
	created, err := tenant.Inventory.Seed(ctx, items, stock)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.SeedReply{Created: created}, nil
}

func (h *GRPCHandler) SetPrice(ctx context.Context, req *adminpb.SetPriceRequest) (*adminpb.PriceReply, error) {
	tenant, err := h.prices(req.Tenant)
	if err != nil {
		return nil, err
	}
	if req.ItemID == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}
	o := domain.PriceOverride{ItemID: domain.StockKey(req.ItemID, req.VariantID), Price: req.Price}
	// the first override records what the page charged
	if p, ok := tenant.Products.Lookup(req.ItemID); ok {
		o.ItemName, o.OriginalPrice = p.Name, p.Price
		if req.VariantID != "" {
			v, found := p.Variant(req.VariantID)
			if !found {
				return nil, status.Errorf(codes.NotFound, "product %q has no variant %q", req.ItemID, req.VariantID)
			}
			o.ItemName, o.OriginalPrice = p.Name+" - "+v.Name, v.Price
		}
	}
	saved, err := tenant.Prices.SetPrice(ctx, o)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.PriceReply{Price: priceView(saved)}, nil
}

func (h *GRPCHandler) ResetPrice(ctx context.Context, req *adminpb.ResetPriceRequest) (*adminpb.ResetPriceReply, error) {
	tenant, err := h.prices(req.Tenant)
	if err != nil {
		return nil, err
	}
	if req.ItemID == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}
	key := domain.StockKey(req.ItemID, req.VariantID)
	if err := tenant.Prices.ResetPrice(ctx, key); err != nil {
		return nil, toStatus(err)
	}
	return &adminpb.ResetPriceReply{Key: key}, nil
}

func (h *GRPCHandler) ListPrices(ctx context.Context, req *adminpb.TenantRequest) (*adminpb.ListPricesReply, error) {
	tenant, err := h.prices(req.Tenant)
	if err != nil {
		return nil, err
	}
	prices, err := tenant.Prices.ListPrices(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	reply := &adminpb.ListPricesReply{Prices: make([]adminpb.Price, 0, len(prices))}
	for _, p := range prices {
		reply.Prices = append(reply.Prices, priceView(p))
	}
	return reply, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrInventoryNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrOrderStatusConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidStock), errors.Is(err, domain.ErrInvalidPrice):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	log.WithError(err).Error("inventory admin call failed")
	return status.Error(codes.Internal, "internal error")
}

func orderView(o domain.Order) adminpb.Order {
	view := adminpb.Order{
		ID:        o.ID,
		Tenant:    o.CatalogKey,
		Status:    string(o.Status),
		Customer:  o.Customer.Name,
		Phone:     o.Customer.Phone,
		Items:     make([]adminpb.OrderLine, 0, len(o.Items)),
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
		ExpiresAt: o.ExpiresAt,
	}
	for _, it := range o.Items {
		view.Items = append(view.Items, adminpb.OrderLine{
			Key:      it.StockKey(),
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}
	return view
}

func inventoryView(inv domain.Inventory) adminpb.Inventory {
	return adminpb.Inventory{
		Key:       inv.Key,
		ItemID:    inv.ItemID,
		Stock:     inv.Stock,
		Reserved:  inv.Reserved,
		Available: inv.Available(),
		Version:   inv.Version,
		UpdatedAt: inv.UpdatedAt,
	}
}

func inventoryViews(items []domain.Inventory) []adminpb.Inventory {
	out := make([]adminpb.Inventory, 0, len(items))
	for _, inv := range items {
		out = append(out, inventoryView(inv))
	}
	return out
}

func driftViews(drifts []service.ReservedDrift) []adminpb.Drift {
	out := make([]adminpb.Drift, 0, len(drifts))
	for _, d := range drifts {
		out = append(out, adminpb.Drift{Key: d.Key, Stored: d.Stored, Expected: d.Expected})
	}
	return out
}

func priceView(o domain.PriceOverride) adminpb.Price {
	return adminpb.Price{
		Key:           o.ItemID,
		Price:         o.Price,
		OriginalPrice: o.OriginalPrice,
		ItemName:      o.ItemName,
		UpdatedAt:     o.UpdatedAt,
	}
}
