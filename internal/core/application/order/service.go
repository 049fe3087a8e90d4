// Package order implements the boundary operations on orders: opening an
// order by pledging an exact note as collateral, cancelling it, triggering
// conditional orders and moving them in the book.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/assetpair"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/pubsub"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/selection"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	locks       *walletmutex.Registry
	repoManager ports.RepoManager
	ledger      *ledger.Service
	selection   *selection.Service
	txs         *chaintx.Service
	assetPairs  *assetpair.Service
	booknode    ports.Booknode
	pubsub      *pubsub.Service
}

func NewService(
	locks *walletmutex.Registry,
	repoManager ports.RepoManager,
	ledgerSvc *ledger.Service,
	selectionSvc *selection.Service,
	txSvc *chaintx.Service,
	assetPairSvc *assetpair.Service,
	booknode ports.Booknode,
	pubsubSvc *pubsub.Service,
) (*Service, error) {
	if locks == nil {
		return nil, fmt.Errorf("missing wallet lock registry")
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("missing ledger service")
	}
	if selectionSvc == nil {
		return nil, fmt.Errorf("missing selection service")
	}
	if txSvc == nil {
		return nil, fmt.Errorf("missing chain tx service")
	}
	if assetPairSvc == nil {
		return nil, fmt.Errorf("missing asset pair service")
	}
	if booknode == nil {
		return nil, fmt.Errorf("missing booknode client")
	}
	return &Service{
		locks:       locks,
		repoManager: repoManager,
		ledger:      ledgerSvc,
		selection:   selectionSvc,
		txs:         txSvc,
		assetPairs:  assetPairSvc,
		booknode:    booknode,
		pubsub:      pubsubSvc,
	}, nil
}

// CreateOrder selects a note of exactly the amount sold, pledges it on chain
// as collateral, stores the order and registers it with the booknode.
// If the booknode refuses the order, the collateral is released again.
func (s *Service) CreateOrder(
	ctx context.Context, spec OrderSpec,
) (*domain.Order, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	pair, err := s.assetPairs.GetAssetPair(ctx, spec.AssetPairID)
	if err != nil {
		return nil, err
	}
	if pair.ChainID != spec.ChainID {
		return nil, fmt.Errorf(
			"%w: pair %s, chain %d", ErrChainMismatch, pair.ID, spec.ChainID,
		)
	}

	order := newOrderFromSpec(spec, *pair)
	if err := s.locks.WithLock(
		ctx, order.ChainID, order.Wallet, func(ctx context.Context) error {
			return s.openOrder(ctx, order)
		},
	); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder withdraws the order, releases its collateral and informs the
// booknode. Cancelling an already cancelled order only informs the booknode.
func (s *Service) CancelOrder(ctx context.Context, orderID string) error {
	order, err := s.cancelUnderLock(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.booknode.CancelOrder(ctx, *order); err != nil {
		return fmt.Errorf("cancelling order %s on booknode: %w", order.ID, err)
	}
	return nil
}

// CancelOrderByNotification is CancelOrder for cancellations initiated by the
// booknode, which is therefore not called back.
func (s *Service) CancelOrderByNotification(
	ctx context.Context, orderID string,
) error {
	_, err := s.cancelUnderLock(ctx, orderID)
	return err
}

// TriggerOrder brings a conditional order into the book.
func (s *Service) TriggerOrder(
	ctx context.Context, orderID string,
) (*domain.Order, error) {
	order, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var triggered *domain.Order
	if err := s.locks.WithLock(
		ctx, order.ChainID, order.Wallet, func(ctx context.Context) error {
			var changed bool
			if err := s.repoManager.OrderRepository().UpdateOrder(
				ctx, orderID, func(o *domain.Order) (*domain.Order, error) {
					c, err := o.Trigger()
					if err != nil {
						return nil, err
					}
					changed = c
					triggered = o
					return o, nil
				},
			); err != nil {
				return err
			}
			if !changed {
				return nil
			}
			return s.RecordEvents(
				ctx, *triggered, domain.OrderStatusTriggered, domain.OrderStatusOpen,
			)
		},
	); err != nil {
		return nil, err
	}

	log.WithField("order", orderID).Info("order triggered")
	return triggered, nil
}

// UpdateOrderPrice moves an order that is still in the book. The booknode is
// updated first, the local copy only if that succeeds.
func (s *Service) UpdateOrderPrice(
	ctx context.Context, orderID string, update PriceUpdate,
) (*domain.Order, error) {
	if !update.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be greater than zero", ErrInvalidOrder)
	}
	if update.AmountIn.IsZero() {
		return nil, fmt.Errorf(
			"%w: amount in must be greater than zero", ErrInvalidOrder,
		)
	}

	order, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Order
	if err := s.locks.WithLock(
		ctx, order.ChainID, order.Wallet, func(ctx context.Context) error {
			return s.repoManager.OrderRepository().UpdateOrder(
				ctx, orderID, func(o *domain.Order) (*domain.Order, error) {
					if o.Status != domain.OrderStatusOpen &&
						o.Status != domain.OrderStatusNotTriggered {
						return nil, fmt.Errorf(
							"%w: order %s is %s", ErrOrderNotUpdatable, o.ID, o.Status,
						)
					}
					o.Price = update.Price
					o.AmountIn.Set(&update.AmountIn)
					o.PartialAmountIn.Set(&update.PartialAmountIn)
					if err := s.booknode.UpdateOrderPrice(ctx, *o); err != nil {
						return nil, err
					}
					updated = o
					return o, nil
				},
			)
		},
	); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repoManager.OrderRepository().GetOrder(ctx, orderID)
}

func (s *Service) GetOrderEvents(
	ctx context.Context, orderID string,
) ([]domain.OrderEvent, error) {
	if _, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repoManager.OrderEventRepository().GetEventsForOrder(ctx, orderID)
}

// GetIncrementalOrderEvents returns at most limit events following lastID,
// for clients polling the event log.
func (s *Service) GetIncrementalOrderEvents(
	ctx context.Context, lastID uint64, limit int,
) ([]domain.OrderEvent, error) {
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	return s.repoManager.OrderEventRepository().GetEventsAfter(ctx, lastID, limit)
}

// ListOrders returns the orders with the given status, or all orders if
// status is nil.
func (s *Service) ListOrders(
	ctx context.Context, status *domain.OrderStatus, page *domain.Page,
) ([]domain.Order, error) {
	if status == nil {
		return s.repoManager.OrderRepository().GetAllOrders(ctx, page)
	}
	return s.repoManager.OrderRepository().GetOrdersByStatus(ctx, *status, page)
}

// RecordEvents appends the given status changes of the order to the event
// log and publishes the ones not seen before.
func (s *Service) RecordEvents(
	ctx context.Context, order domain.Order, statuses ...domain.OrderStatus,
) error {
	for _, status := range statuses {
		event := domain.NewOrderEvent(order, status)
		added, err := s.repoManager.OrderEventRepository().AddEvent(ctx, event)
		if err != nil {
			return fmt.Errorf("logging %s event of order %s: %w", status, order.ID, err)
		}
		if added {
			s.pubsub.PublishOrderEvent(order, event)
		}
	}
	return nil
}

func (s *Service) openOrder(ctx context.Context, order *domain.Order) error {
	if _, err := s.repoManager.OrderRepository().GetOrder(ctx, order.ID); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, order.ID)
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		return err
	}

	account := AccountOf(*order)
	note, err := s.selection.SelectNoteForAmount(
		ctx, account, order.AssetOut, &order.AmountOut,
	)
	if err != nil {
		return err
	}
	inputs := []domain.Note{*note}
	if err := s.txs.ValidateActive(ctx, account, inputs); err != nil {
		return err
	}

	result, err := s.txs.SubmitExpecting(ctx, ports.PrepareRequest{
		Kind:    ports.TxKindCreateOrder,
		Account: account,
		Asset:   order.AssetOut,
		Inputs:  inputs,
		Amount:  order.AmountOut,
		Order:   order,
	}, ports.NoteOnChainStatusLocked)
	if err != nil {
		return err
	}

	if err := s.ledger.Transition(
		ctx, note.Commitment, order.Wallet, order.ChainID, domain.NoteStatusLocked,
	); err != nil {
		return err
	}

	order.NoteCommitment = note.Commitment
	order.Nullifier = result.Tx.Nullifier
	order.TxHashCreated = result.TxHash
	if err := s.repoManager.OrderRepository().AddOrder(ctx, *order); err != nil {
		return err
	}
	if err := s.RecordEvents(ctx, *order, order.Status); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"order": order.ID,
		"tx":    result.TxHash,
	}).Infof(
		"created %s order of %s %s", order.Direction, order.AmountOut.Dec(),
		order.AssetOut,
	)

	if err := s.booknode.CreateOrder(ctx, *order); err != nil {
		log.WithError(err).WithField("order", order.ID).Warn(
			"booknode refused order, releasing collateral",
		)
		cancelled, cerr := s.cancel(ctx, order.ID)
		if cerr != nil {
			log.WithError(cerr).WithField("order", order.ID).Warn(
				"failed to release collateral of refused order",
			)
		} else {
			*order = *cancelled
		}
		return fmt.Errorf("registering order %s: %w", order.ID, err)
	}
	return nil
}

func (s *Service) cancelUnderLock(
	ctx context.Context, orderID string,
) (*domain.Order, error) {
	order, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var cancelled *domain.Order
	if err := s.locks.WithLock(
		ctx, order.ChainID, order.Wallet, func(ctx context.Context) error {
			cancelled, err = s.cancel(ctx, orderID)
			return err
		},
	); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// cancel releases the collateral of the order and marks it as Cancelled.
// The caller must hold the wallet lock.
func (s *Service) cancel(
	ctx context.Context, orderID string,
) (*domain.Order, error) {
	order, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return order, nil
	}
	if !order.IsCancellable() {
		return nil, fmt.Errorf(
			"%w: order %s is %s", domain.ErrOrderNotCancellable, order.ID, order.Status,
		)
	}

	note, err := s.ledger.GetByCommitment(ctx, order.NoteCommitment)
	if err != nil {
		return nil, err
	}
	account := AccountOf(*order)
	status, err := s.txs.Chain().NoteStatus(ctx, account, *note)
	if err != nil {
		return nil, err
	}

	switch status {
	case ports.NoteOnChainStatusLocked:
		if _, err := s.txs.SubmitExpecting(ctx, ports.PrepareRequest{
			Kind:    ports.TxKindCancelOrder,
			Account: account,
			Asset:   order.AssetOut,
			Inputs:  []domain.Note{*note},
			Order:   order,
		}, ports.NoteOnChainStatusActive); err != nil {
			return nil, err
		}
	case ports.NoteOnChainStatusActive:
		log.WithField("order", order.ID).Info(
			"collateral already released on chain, cancelling locally",
		)
	case ports.NoteOnChainStatusSpent:
		return nil, fmt.Errorf(
			"%w: collateral of order %s is spent", domain.ErrOrderNotCancellable,
			order.ID,
		)
	default:
		return nil, fmt.Errorf(
			"%w: collateral of order %s is unknown on chain", chaintx.ErrStaleNote,
			order.ID,
		)
	}

	if err := s.ledger.Transition(
		ctx, note.Commitment, order.Wallet, order.ChainID, domain.NoteStatusActive,
	); err != nil {
		return nil, err
	}

	var cancelled *domain.Order
	if err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, order.ID, func(o *domain.Order) (*domain.Order, error) {
			if _, err := o.Cancel(); err != nil {
				return nil, err
			}
			cancelled = o
			return o, nil
		},
	); err != nil {
		return nil, err
	}
	if err := s.RecordEvents(ctx, *cancelled, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}

	log.WithField("order", order.ID).Info("order cancelled")
	return cancelled, nil
}
