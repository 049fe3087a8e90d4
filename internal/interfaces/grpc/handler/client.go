package grpchandler

import (
	"context"

	"google.golang.org/grpc"
)

// OperatorClient calls the operator interface of a running daemon.
type OperatorClient struct {
	cc grpc.ClientConnInterface
}

func NewOperatorClient(cc grpc.ClientConnInterface) *OperatorClient {
	return &OperatorClient{cc}
}

func (c *OperatorClient) CreateOrder(
	ctx context.Context, req *CreateOrderRequest,
) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "CreateOrder", req)
}

func (c *OperatorClient) CancelOrder(
	ctx context.Context, req *OrderRequest,
) (*EmptyReply, error) {
	return invoke[EmptyReply](ctx, c.cc, "CancelOrder", req)
}

func (c *OperatorClient) TriggerOrder(
	ctx context.Context, req *OrderRequest,
) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "TriggerOrder", req)
}

func (c *OperatorClient) UpdateOrderPrice(
	ctx context.Context, req *UpdateOrderPriceRequest,
) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "UpdateOrderPrice", req)
}

func (c *OperatorClient) GetOrder(
	ctx context.Context, req *OrderRequest,
) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "GetOrder", req)
}

func (c *OperatorClient) ListOrders(
	ctx context.Context, req *ListOrdersRequest,
) (*ListOrdersReply, error) {
	return invoke[ListOrdersReply](ctx, c.cc, "ListOrders", req)
}

func (c *OperatorClient) GetOrderEvents(
	ctx context.Context, req *OrderRequest,
) (*OrderEventsReply, error) {
	return invoke[OrderEventsReply](ctx, c.cc, "GetOrderEvents", req)
}

func (c *OperatorClient) GetIncrementalOrderEvents(
	ctx context.Context, req *IncrementalOrderEventsRequest,
) (*OrderEventsReply, error) {
	return invoke[OrderEventsReply](ctx, c.cc, "GetIncrementalOrderEvents", req)
}

func (c *OperatorClient) Deposit(
	ctx context.Context, req *DepositRequest,
) (*NoteReply, error) {
	return invoke[NoteReply](ctx, c.cc, "Deposit", req)
}

func (c *OperatorClient) SelectNoteForAmount(
	ctx context.Context, req *SelectNoteRequest,
) (*NoteReply, error) {
	return invoke[NoteReply](ctx, c.cc, "SelectNoteForAmount", req)
}

func (c *OperatorClient) GetBalances(
	ctx context.Context, req *BalancesRequest,
) (*BalancesReply, error) {
	return invoke[BalancesReply](ctx, c.cc, "GetBalances", req)
}

func invoke[Res any](
	ctx context.Context, cc grpc.ClientConnInterface, method string,
	req interface{},
) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(
		ctx, fullMethod(method), req, out, grpc.CallContentSubtype(CodecName),
	); err != nil {
		return nil, err
	}
	return out, nil
}
