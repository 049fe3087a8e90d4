package grpchandler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	// CodecName is the content subtype of operator requests, that is
	// application/grpc+json.
	CodecName = "json"

	OperatorServiceName = "darkswap.v1.Operator"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

// OperatorServer is the operator interface of the daemon.
type OperatorServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderReply, error)
	CancelOrder(context.Context, *OrderRequest) (*EmptyReply, error)
	TriggerOrder(context.Context, *OrderRequest) (*OrderReply, error)
	UpdateOrderPrice(context.Context, *UpdateOrderPriceRequest) (*OrderReply, error)
	GetOrder(context.Context, *OrderRequest) (*OrderReply, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersReply, error)
	GetOrderEvents(context.Context, *OrderRequest) (*OrderEventsReply, error)
	GetIncrementalOrderEvents(
		context.Context, *IncrementalOrderEventsRequest,
	) (*OrderEventsReply, error)
	Deposit(context.Context, *DepositRequest) (*NoteReply, error)
	SelectNoteForAmount(context.Context, *SelectNoteRequest) (*NoteReply, error)
	GetBalances(context.Context, *BalancesRequest) (*BalancesReply, error)
}

// RegisterOperatorServer registers the operator interface on the grpc
// server.
func RegisterOperatorServer(s grpc.ServiceRegistrar, srv OperatorServer) {
	s.RegisterService(&operatorServiceDesc, srv)
}

var operatorServiceDesc = grpc.ServiceDesc{
	ServiceName: OperatorServiceName,
	HandlerType: (*OperatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateOrder", OperatorServer.CreateOrder),
		unaryMethod("CancelOrder", OperatorServer.CancelOrder),
		unaryMethod("TriggerOrder", OperatorServer.TriggerOrder),
		unaryMethod("UpdateOrderPrice", OperatorServer.UpdateOrderPrice),
		unaryMethod("GetOrder", OperatorServer.GetOrder),
		unaryMethod("ListOrders", OperatorServer.ListOrders),
		unaryMethod("GetOrderEvents", OperatorServer.GetOrderEvents),
		unaryMethod("GetIncrementalOrderEvents", OperatorServer.GetIncrementalOrderEvents),
		unaryMethod("Deposit", OperatorServer.Deposit),
		unaryMethod("SelectNoteForAmount", OperatorServer.SelectNoteForAmount),
		unaryMethod("GetBalances", OperatorServer.GetBalances),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "darkswap/v1/operator.json",
}

func fullMethod(method string) string {
	return "/" + OperatorServiceName + "/" + method
}

func unaryMethod[Req, Res any](
	method string,
	call func(OperatorServer, context.Context, *Req) (*Res, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(
			srv interface{}, ctx context.Context, dec func(interface{}) error,
			interceptor grpc.UnaryServerInterceptor,
		) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OperatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(OperatorServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
