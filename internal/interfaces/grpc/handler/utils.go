package grpchandler

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/deposit"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/order"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/selection"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errInvalidRequest = errors.New("invalid request")

func parseAmount(name, amount string) (*uint256.Int, error) {
	if len(amount) <= 0 {
		return nil, fmt.Errorf("%w: missing %s", errInvalidRequest, name)
	}
	v, err := uint256.FromDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", errInvalidRequest, name, amount)
	}
	return v, nil
}

func parseOptionalAmount(name, amount string) (*uint256.Int, error) {
	if len(amount) <= 0 {
		return new(uint256.Int), nil
	}
	return parseAmount(name, amount)
}

func parsePrice(name, price string) (decimal.Decimal, error) {
	if len(price) <= 0 {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s %q", errInvalidRequest, name, price)
	}
	return v, nil
}

func parseDirection(direction string) (domain.OrderDirection, error) {
	switch direction {
	case domain.OrderDirectionBuy.String():
		return domain.OrderDirectionBuy, nil
	case domain.OrderDirectionSell.String():
		return domain.OrderDirectionSell, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", errInvalidRequest, direction)
	}
}

func parseOrderID(orderID string) (string, error) {
	if len(orderID) <= 0 {
		return "", fmt.Errorf("%w: missing order id", errInvalidRequest)
	}
	return orderID, nil
}

func parseAccount(account Account) (ports.Account, error) {
	if len(account.Wallet) <= 0 {
		return ports.Account{}, fmt.Errorf("%w: missing wallet", errInvalidRequest)
	}
	if account.ChainID == 0 {
		return ports.Account{}, fmt.Errorf("%w: missing chain id", errInvalidRequest)
	}
	return ports.Account{
		ChainID:   account.ChainID,
		Wallet:    domain.NormalizeAddress(account.Wallet),
		PublicKey: account.PublicKey,
	}, nil
}

func parseOrderSpec(req *CreateOrderRequest) (*order.OrderSpec, error) {
	direction, err := parseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	price, err := parsePrice("price", req.Price)
	if err != nil {
		return nil, err
	}
	triggerPrice, err := parsePrice("trigger price", req.TriggerPrice)
	if err != nil {
		return nil, err
	}
	amountOut, err := parseAmount("amount out", req.AmountOut)
	if err != nil {
		return nil, err
	}
	amountIn, err := parseAmount("amount in", req.AmountIn)
	if err != nil {
		return nil, err
	}

	spec := &order.OrderSpec{
		ID:           req.ID,
		ChainID:      req.ChainID,
		AssetPairID:  req.AssetPairID,
		Wallet:       domain.NormalizeAddress(req.Wallet),
		PublicKey:    req.PublicKey,
		Direction:    direction,
		Type:         domain.OrderType(req.Type),
		TimeInForce:  domain.TimeInForce(req.TimeInForce),
		StpMode:      domain.StpMode(req.StpMode),
		Price:        price,
		TriggerPrice: triggerPrice,
		FeeRatio:     req.FeeRatio,
	}
	spec.AmountOut.Set(amountOut)
	spec.AmountIn.Set(amountIn)
	return spec, nil
}

// toStatusError maps application errors to grpc status codes.
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrChainMismatch),
		errors.Is(err, selection.ErrInvalidAmount),
		errors.Is(err, deposit.ErrMissingAsset),
		errors.Is(err, domain.ErrNoteInvalidAmount):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrNoteNotFound),
		errors.Is(err, domain.ErrAssetPairNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrDuplicateOrder):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrOrderNotCancellable),
		errors.Is(err, domain.ErrInvalidOrderTransition),
		errors.Is(err, order.ErrOrderNotUpdatable),
		errors.Is(err, selection.ErrInsufficientFunds),
		errors.Is(err, chaintx.ErrStaleNote),
		errors.Is(err, chaintx.ErrTransactionFailed):
		code = codes.FailedPrecondition
	case errors.Is(err, chaintx.ErrReceiptTimeout),
		errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, ports.ErrExternalService):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}
