package grpchandler

import (
	"context"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/deposit"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/order"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/selection"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

type operatorHandler struct {
	orders    *order.Service
	deposits  *deposit.Service
	selection *selection.Service
	ledger    *ledger.Service
	locks     *walletmutex.Registry
}

// OperatorOpts are the application services exposed by the operator
// interface.
type OperatorOpts struct {
	Orders    *order.Service
	Deposits  *deposit.Service
	Selection *selection.Service
	Ledger    *ledger.Service
	Locks     *walletmutex.Registry
}

// NewOperatorHandler is a constructor function returning an OperatorServer.
func NewOperatorHandler(opts OperatorOpts) (OperatorServer, error) {
	if opts.Orders == nil {
		return nil, fmt.Errorf("missing order service")
	}
	if opts.Deposits == nil {
		return nil, fmt.Errorf("missing deposit service")
	}
	if opts.Selection == nil {
		return nil, fmt.Errorf("missing selection service")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("missing ledger service")
	}
	if opts.Locks == nil {
		return nil, fmt.Errorf("missing wallet lock registry")
	}
	return &operatorHandler{
		orders:    opts.Orders,
		deposits:  opts.Deposits,
		selection: opts.Selection,
		ledger:    opts.Ledger,
		locks:     opts.Locks,
	}, nil
}

func (h *operatorHandler) CreateOrder(
	ctx context.Context, req *CreateOrderRequest,
) (*OrderReply, error) {
	o, err := h.createOrder(ctx, req)
	return o, toStatusError(err)
}

func (h *operatorHandler) CancelOrder(
	ctx context.Context, req *OrderRequest,
) (*EmptyReply, error) {
	reply, err := h.cancelOrder(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) TriggerOrder(
	ctx context.Context, req *OrderRequest,
) (*OrderReply, error) {
	reply, err := h.triggerOrder(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) UpdateOrderPrice(
	ctx context.Context, req *UpdateOrderPriceRequest,
) (*OrderReply, error) {
	reply, err := h.updateOrderPrice(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) GetOrder(
	ctx context.Context, req *OrderRequest,
) (*OrderReply, error) {
	reply, err := h.getOrder(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) ListOrders(
	ctx context.Context, req *ListOrdersRequest,
) (*ListOrdersReply, error) {
	reply, err := h.listOrders(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) GetOrderEvents(
	ctx context.Context, req *OrderRequest,
) (*OrderEventsReply, error) {
	reply, err := h.getOrderEvents(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) GetIncrementalOrderEvents(
	ctx context.Context, req *IncrementalOrderEventsRequest,
) (*OrderEventsReply, error) {
	reply, err := h.getIncrementalOrderEvents(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) Deposit(
	ctx context.Context, req *DepositRequest,
) (*NoteReply, error) {
	reply, err := h.deposit(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) SelectNoteForAmount(
	ctx context.Context, req *SelectNoteRequest,
) (*NoteReply, error) {
	reply, err := h.selectNoteForAmount(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) GetBalances(
	ctx context.Context, req *BalancesRequest,
) (*BalancesReply, error) {
	reply, err := h.getBalances(ctx, req)
	return reply, toStatusError(err)
}

func (h *operatorHandler) createOrder(
	ctx context.Context, req *CreateOrderRequest,
) (*OrderReply, error) {
	spec, err := parseOrderSpec(req)
	if err != nil {
		return nil, err
	}
	o, err := h.orders.CreateOrder(ctx, *spec)
	if err != nil {
		return nil, err
	}
	return &OrderReply{newOrder(*o)}, nil
}

func (h *operatorHandler) cancelOrder(
	ctx context.Context, req *OrderRequest,
) (*EmptyReply, error) {
	orderID, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := h.orders.CancelOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return &EmptyReply{}, nil
}

func (h *operatorHandler) triggerOrder(
	ctx context.Context, req *OrderRequest,
) (*OrderReply, error) {
	orderID, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	o, err := h.orders.TriggerOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderReply{newOrder(*o)}, nil
}

func (h *operatorHandler) updateOrderPrice(
	ctx context.Context, req *UpdateOrderPriceRequest,
) (*OrderReply, error) {
	orderID, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	price, err := parsePrice("price", req.Price)
	if err != nil {
		return nil, err
	}
	amountIn, err := parseAmount("amount in", req.AmountIn)
	if err != nil {
		return nil, err
	}
	partialAmountIn, err := parseOptionalAmount(
		"partial amount in", req.PartialAmountIn,
	)
	if err != nil {
		return nil, err
	}

	update := order.PriceUpdate{Price: price}
	update.AmountIn.Set(amountIn)
	update.PartialAmountIn.Set(partialAmountIn)
	o, err := h.orders.UpdateOrderPrice(ctx, orderID, update)
	if err != nil {
		return nil, err
	}
	return &OrderReply{newOrder(*o)}, nil
}

func (h *operatorHandler) getOrder(
	ctx context.Context, req *OrderRequest,
) (*OrderReply, error) {
	orderID, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	o, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderReply{newOrder(*o)}, nil
}

func (h *operatorHandler) listOrders(
	ctx context.Context, req *ListOrdersRequest,
) (*ListOrdersReply, error) {
	var status *domain.OrderStatus
	if len(req.Status) > 0 {
		s, ok := domain.OrderStatusFromString(req.Status)
		if !ok {
			return nil, fmt.Errorf(
				"%w: unknown order status %q", errInvalidRequest, req.Status,
			)
		}
		status = &s
	}
	var page *domain.Page
	if req.Page > 0 {
		p := domain.NewPage(req.Page, req.PageSize)
		page = &p
	}

	orders, err := h.orders.ListOrders(ctx, status, page)
	if err != nil {
		return nil, err
	}
	return &ListOrdersReply{newOrders(orders)}, nil
}

func (h *operatorHandler) getOrderEvents(
	ctx context.Context, req *OrderRequest,
) (*OrderEventsReply, error) {
	orderID, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	events, err := h.orders.GetOrderEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderEventsReply{newOrderEvents(events)}, nil
}

func (h *operatorHandler) getIncrementalOrderEvents(
	ctx context.Context, req *IncrementalOrderEventsRequest,
) (*OrderEventsReply, error) {
	events, err := h.orders.GetIncrementalOrderEvents(ctx, req.LastID, req.Limit)
	if err != nil {
		return nil, err
	}
	return &OrderEventsReply{newOrderEvents(events)}, nil
}

func (h *operatorHandler) deposit(
	ctx context.Context, req *DepositRequest,
) (*NoteReply, error) {
	account, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	note, err := h.deposits.Deposit(
		ctx, account, domain.NormalizeAddress(req.Asset), amount,
	)
	if err != nil {
		return nil, err
	}
	return &NoteReply{newNote(*note)}, nil
}

// selectNoteForAmount prepares a note of exactly the requested amount while
// holding the wallet lock, joining or splitting notes as needed.
func (h *operatorHandler) selectNoteForAmount(
	ctx context.Context, req *SelectNoteRequest,
) (*NoteReply, error) {
	account, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}

	var note *domain.Note
	if err := h.locks.WithLock(
		ctx, account.ChainID, account.Wallet, func(ctx context.Context) error {
			n, err := h.selection.SelectNoteForAmount(
				ctx, account, domain.NormalizeAddress(req.Asset), amount,
			)
			if err != nil {
				return err
			}
			note = n
			return nil
		},
	); err != nil {
		return nil, err
	}
	return &NoteReply{newNote(*note)}, nil
}

func (h *operatorHandler) getBalances(
	ctx context.Context, req *BalancesRequest,
) (*BalancesReply, error) {
	if len(req.Wallet) <= 0 {
		return nil, fmt.Errorf("%w: missing wallet", errInvalidRequest)
	}
	if req.ChainID == 0 {
		return nil, fmt.Errorf("%w: missing chain id", errInvalidRequest)
	}
	balances, err := h.ledger.Balances(
		ctx, domain.NormalizeAddress(req.Wallet), req.ChainID,
	)
	if err != nil {
		return nil, err
	}
	return &BalancesReply{newBalances(balances)}, nil
}
