package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the order service. Requests and
// responses are google.protobuf.Struct messages.
const ServiceName = "store.v1.OrderService"

// OrderServiceServer is implemented by OrderHandler.
type OrderServiceServer interface {
	GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkAsPaid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AvailableTransitions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(OrderServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler(name string, method unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(OrderServiceServer)
			if interceptor == nil {
				return method(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return method(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetOrder", OrderServiceServer.GetOrder),
		unaryHandler("MarkAsPaid", OrderServiceServer.MarkAsPaid),
		unaryHandler("Cancel", OrderServiceServer.Cancel),
		unaryHandler("UpdateStatus", OrderServiceServer.UpdateStatus),
		unaryHandler("AvailableTransitions", OrderServiceServer.AvailableTransitions),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// OrderClient calls the order service, typically from a payment or
// fulfillment collaborator.
type OrderClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderClient(cc grpc.ClientConnInterface) *OrderClient {
	return &OrderClient{cc: cc}
}

func (c *OrderClient) invoke(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderClient) GetOrder(ctx context.Context, orderID int) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetOrder", map[string]interface{}{"order_id": orderID})
}

func (c *OrderClient) MarkAsPaid(ctx context.Context, orderID int) (*structpb.Struct, error) {
	return c.invoke(ctx, "MarkAsPaid", map[string]interface{}{"order_id": orderID})
}

func (c *OrderClient) Cancel(ctx context.Context, orderID int, reason string, restock bool) (*structpb.Struct, error) {
	return c.invoke(ctx, "Cancel", map[string]interface{}{"order_id": orderID, "reason": reason, "restock": restock})
}

func (c *OrderClient) UpdateStatus(ctx context.Context, orderID int, status, trackingNumber string) (*structpb.Struct, error) {
	return c.invoke(ctx, "UpdateStatus", map[string]interface{}{
		"order_id":        orderID,
		"status":          status,
		"tracking_number": trackingNumber,
	})
}

func (c *OrderClient) AvailableTransitions(ctx context.Context, orderID int) (*structpb.Struct, error) {
	return c.invoke(ctx, "AvailableTransitions", map[string]interface{}{"order_id": orderID})
}
