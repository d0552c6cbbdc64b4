package adminpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "catalogcart.admin.InventoryAdmin"

type InventoryAdminServer interface {
	ConfirmOrder(context.Context, *OrderRequest) (*OrderReply, error)
	CancelOrder(context.Context, *OrderRequest) (*OrderReply, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersReply, error)
	SetStock(context.Context, *SetStockRequest) (*InventoryReply, error)
	AdjustStock(context.Context, *AdjustStockRequest) (*InventoryReply, error)
	GetInventory(context.Context, *GetInventoryRequest) (*InventoryReply, error)
	ListInventory(context.Context, *TenantRequest) (*ListInventoryReply, error)
	RecalculateReserved(context.Context, *TenantRequest) (*RecalculateReply, error)
	Diagnose(context.Context, *TenantRequest) (*DiagnoseReply, error)
	Seed(context.Context, *SeedRequest) (*SeedReply, error)
	SetPrice(context.Context, *SetPriceRequest) (*PriceReply, error)
	ResetPrice(context.Context, *ResetPriceRequest) (*ResetPriceReply, error)
	ListPrices(context.Context, *TenantRequest) (*ListPricesReply, error)
}

// UnimplementedInventoryAdminServer answers Unimplemented for every method.
type UnimplementedInventoryAdminServer struct{}

func (UnimplementedInventoryAdminServer) ConfirmOrder(context.Context, *OrderRequest) (*OrderReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ConfirmOrder not implemented")
}

func (UnimplementedInventoryAdminServer) CancelOrder(context.Context, *OrderRequest) (*OrderReply, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelOrder not implemented")
}

func (UnimplementedInventoryAdminServer) ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ListOrders not implemented")
}

func (UnimplementedInventoryAdminServer) SetStock(context.Context, *SetStockRequest) (*InventoryReply, error) {
	return nil, status.Error(codes.Unimplemented, "method SetStock not implemented")
}

func (UnimplementedInventoryAdminServer) AdjustStock(context.Context, *AdjustStockRequest) (*InventoryReply, error) {
	return nil, status.Error(codes.Unimplemented, "method AdjustStock not implemented")
}

func (UnimplementedInventoryAdminServer) GetInventory(context.Context, *GetInventoryRequest) (*InventoryReply, error) {
	return nil, status.Error(codes.Unimplemented, "method GetInventory not implemented")
}

func (UnimplementedInventoryAdminServer) ListInventory(context.Context, *TenantRequest) (*ListInventoryReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ListInventory not implemented")
}

func (UnimplementedInventoryAdminServer) RecalculateReserved(context.Context, *TenantRequest) (*RecalculateReply, error) {
	return nil, status.Error(codes.Unimplemented, "method RecalculateReserved not implemented")
}

func (UnimplementedInventoryAdminServer) Diagnose(context.Context, *TenantRequest) (*DiagnoseReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Diagnose not implemented")
}

func (UnimplementedInventoryAdminServer) Seed(context.Context, *SeedRequest) (*SeedReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Seed not implemented")
}

func (UnimplementedInventoryAdminServer) SetPrice(context.Context, *SetPriceRequest) (*PriceReply, error) {
	return nil, status.Error(codes.Unimplemented, "method SetPrice not implemented")
}

func (UnimplementedInventoryAdminServer) ResetPrice(context.Context, *ResetPriceRequest) (*ResetPriceReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetPrice not implemented")
}

func (UnimplementedInventoryAdminServer) ListPrices(context.Context, *TenantRequest) (*ListPricesReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPrices not implemented")
}

func RegisterInventoryAdminServer(s grpc.ServiceRegistrar, srv InventoryAdminServer) {
	s.RegisterService(&InventoryAdmin_ServiceDesc, srv)
}

// unary adapts a typed server method to the descriptor's handler signature.
func unary[Req, Resp any](name string, call func(InventoryAdminServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InventoryAdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(InventoryAdminServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var InventoryAdmin_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ConfirmOrder", InventoryAdminServer.ConfirmOrder),
		unary("CancelOrder", InventoryAdminServer.CancelOrder),
		unary("ListOrders", InventoryAdminServer.ListOrders),
		unary("SetStock", InventoryAdminServer.SetStock),
		unary("AdjustStock", InventoryAdminServer.AdjustStock),
		unary("GetInventory", InventoryAdminServer.GetInventory),
		unary("ListInventory", InventoryAdminServer.ListInventory),
		unary("RecalculateReserved", InventoryAdminServer.RecalculateReserved),
		unary("Diagnose", InventoryAdminServer.Diagnose),
		unary("Seed", InventoryAdminServer.Seed),
		unary("SetPrice", InventoryAdminServer.SetPrice),
		unary("ResetPrice", InventoryAdminServer.ResetPrice),
		unary("ListPrices", InventoryAdminServer.ListPrices),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "adminpb/service.go",
}

// InventoryAdminClient calls the admin service over the JSON codec.
type InventoryAdminClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryAdminClient(cc grpc.ClientConnInterface) *InventoryAdminClient {
	return &InventoryAdminClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryAdminClient) ConfirmOrder(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "ConfirmOrder", in, opts)
}

func (c *InventoryAdminClient) CancelOrder(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "CancelOrder", in, opts)
}

func (c *InventoryAdminClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersReply, error) {
	return invoke[ListOrdersReply](ctx, c.cc, "ListOrders", in, opts)
}

func (c *InventoryAdminClient) SetStock(ctx context.Context, in *SetStockRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return invoke[InventoryReply](ctx, c.cc, "SetStock", in, opts)
}

func (c *InventoryAdminClient) AdjustStock(ctx context.Context, in *AdjustStockRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return invoke[InventoryReply](ctx, c.cc, "AdjustStock", in, opts)
}

func (c *InventoryAdminClient) GetInventory(ctx context.Context, in *GetInventoryRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return invoke[InventoryReply](ctx, c.cc, "GetInventory", in, opts)
}

func (c *InventoryAdminClient) ListInventory(ctx context.Context, in *TenantRequest, opts ...grpc.CallOption) (*ListInventoryReply, error) {
	return invoke[ListInventoryReply](ctx, c.cc, "ListInventory", in, opts)
}

func (c *InventoryAdminClient) RecalculateReserved(ctx context.Context, in *TenantRequest, opts ...grpc.CallOption) (*RecalculateReply, error) {
	return invoke[RecalculateReply](ctx, c.cc, "RecalculateReserved", in, opts)
}

func (c *InventoryAdminClient) Diagnose(ctx context.Context, in *TenantRequest, opts ...grpc.CallOption) (*DiagnoseReply, error) {
	return invoke[DiagnoseReply](ctx, c.cc, "Diagnose", in, opts)
}

func (c *InventoryAdminClient) Seed(ctx context.Context, in *SeedRequest, opts ...grpc.CallOption) (*SeedReply, error) {
	return invoke[SeedReply](ctx, c.cc, "Seed", in, opts)
}

func (c *InventoryAdminClient) SetPrice(ctx context.Context, in *SetPriceRequest, opts ...grpc.CallOption) (*PriceReply, error) {
	return invoke[PriceReply](ctx, c.cc, "SetPrice", in, opts)
}

func (c *InventoryAdminClient) ResetPrice(ctx context.Context, in *ResetPriceRequest, opts ...grpc.CallOption) (*ResetPriceReply, error) {
	return invoke[ResetPriceReply](ctx, c.cc, "ResetPrice", in, opts)
}

func (c *InventoryAdminClient) ListPrices(ctx context.Context, in *TenantRequest, opts ...grpc.CallOption) (*ListPricesReply, error) {
	return invoke[ListPricesReply](ctx, c.cc, "ListPrices", in, opts)
}
