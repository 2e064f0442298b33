package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName           = "catalog.v1.ProductService"
	GetProductFullMethod  = "/" + ServiceName + "/GetProduct"
	AdjustStockFullMethod = "/" + ServiceName + "/AdjustStock"
)

// ProductServiceServer is the server API of catalog.v1.ProductService.
// Messages are protobuf well-known types so that no generated code is needed.
type ProductServiceServer interface {
	// GetProduct returns the product as a Struct with the REST field names.
	GetProduct(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	// AdjustStock expects {"items": [{"id": 1, "spec": {"M": 2}}]}.
	AdjustStock(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterProductServiceServer registers srv with the gRPC service registrar.
func RegisterProductServiceServer(s grpc.ServiceRegistrar, srv ProductServiceServer) {
	s.RegisterService(&ProductServiceDesc, srv)
}

// ProductServiceDesc is the grpc.ServiceDesc for catalog.v1.ProductService.
var ProductServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProduct", Handler: getProductHandler},
		{MethodName: "AdjustStock", Handler: adjustStockHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/product.proto",
}

func getProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductServiceServer).GetProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetProductFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductServiceServer).GetProduct(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func adjustStockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductServiceServer).AdjustStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AdjustStockFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductServiceServer).AdjustStock(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
