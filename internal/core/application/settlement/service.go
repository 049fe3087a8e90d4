// Package settlement drives matched orders to settlement. Makers execute the
// swap on chain, takers hand their swap message over and book the outcome
// once the maker settled.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/chaintx"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/order"
	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	OutcomeSettled   = "settled"
	OutcomeRecovered = "recovered"
	OutcomeFailed    = "failed"
	OutcomeTaker     = "taker_settled"
)

var (
	// ErrCounterpartyNotLocked is returned when the taker note is not pledged
	// on chain at the time of the maker swap.
	ErrCounterpartyNotLocked = errors.New("counterparty note is not locked")
)

type Service struct {
	locks       *walletmutex.Registry
	repoManager ports.RepoManager
	ledger      *ledger.Service
	txs         *chaintx.Service
	indexer     ports.ChainIndexer
	booknode    ports.Booknode
	orders      *order.Service
	metrics     ports.Metrics
}

func NewService(
	locks *walletmutex.Registry,
	repoManager ports.RepoManager,
	ledgerSvc *ledger.Service,
	txSvc *chaintx.Service,
	indexer ports.ChainIndexer,
	booknode ports.Booknode,
	orderSvc *order.Service,
	metrics ports.Metrics,
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
	if txSvc == nil {
		return nil, fmt.Errorf("missing chain tx service")
	}
	if indexer == nil {
		return nil, fmt.Errorf("missing chain indexer")
	}
	if booknode == nil {
		return nil, fmt.Errorf("missing booknode client")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("missing order service")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		locks:       locks,
		repoManager: repoManager,
		ledger:      ledgerSvc,
		txs:         txSvc,
		indexer:     indexer,
		booknode:    booknode,
		orders:      orderSvc,
		metrics:     metrics,
	}, nil
}

// MarkMatched records that the booknode paired the order with a
// counterparty.
func (s *Service) MarkMatched(ctx context.Context, orderID string) error {
	return s.withOrderLock(ctx, orderID, func(ctx context.Context) error {
		_, err := s.match(ctx, orderID)
		return err
	})
}

// TakerConfirm hands the swap message of a matched taker order to the
// booknode, which forwards it to the maker. The note the taker will receive
// is journaled as Created and the message is stored with the order before it
// is sent, so that a failed delivery is retried with the same message.
func (s *Service) TakerConfirm(ctx context.Context, orderID string) error {
	return s.withOrderLock(ctx, orderID, func(ctx context.Context) error {
		o, err := s.match(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusSettled {
			return nil
		}
		if o.SwapMessageDelivered {
			log.WithField("order", orderID).Debug("taker order already confirmed")
			return nil
		}

		if len(o.SwapMessage) <= 0 {
			if o, err = s.prepareSwapMessage(ctx, o); err != nil {
				return err
			}
		}

		if err := s.booknode.ConfirmOrder(ctx, *o, o.SwapMessage); err != nil {
			return err
		}
		if err := s.repoManager.OrderRepository().UpdateOrder(
			ctx, orderID, func(o *domain.Order) (*domain.Order, error) {
				o.SwapMessageDelivered = true
				return o, nil
			},
		); err != nil {
			return err
		}
		log.WithField("order", orderID).Info("taker order confirmed")
		return nil
	})
}

func (s *Service) prepareSwapMessage(
	ctx context.Context, o *domain.Order,
) (*domain.Order, error) {
	details, err := s.booknode.GetMatchedOrderDetails(ctx, *o)
	if err != nil {
		return nil, err
	}
	collateral, err := s.ledger.GetByCommitment(ctx, o.NoteCommitment)
	if err != nil {
		return nil, err
	}

	account := order.AccountOf(*o)
	msg, err := s.txs.Chain().SwapMessage(ctx, ports.SwapMessageRequest{
		Account:    account,
		Order:      *o,
		Collateral: *collateral,
		Details:    *details,
	})
	if err != nil {
		return nil, fmt.Errorf("building swap message of order %s: %w", o.ID, err)
	}

	incoming := msg.IncomingNote
	incoming.ChainID = account.ChainID
	incoming.Wallet = account.Wallet
	incoming.PublicKey = account.PublicKey
	if _, err := s.ledger.RecordNote(
		ctx, incoming, domain.NoteStatusCreated,
	); err != nil {
		return nil, err
	}

	var updated *domain.Order
	if err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, o.ID, func(o *domain.Order) (*domain.Order, error) {
			o.IncomingNoteCommitment = incoming.Commitment
			o.SwapMessage = msg.Message
			updated = o
			return o, nil
		},
	); err != nil {
		return nil, err
	}
	return updated, nil
}

// MakerSwap settles a matched maker order by executing the swap on chain.
// If the collateral is no longer locked, or the receipt did not show up in
// time, the swap is looked up in the indexer and booked without being
// broadcast again.
func (s *Service) MakerSwap(ctx context.Context, orderID string) error {
	return s.withOrderLock(ctx, orderID, func(ctx context.Context) error {
		o, err := s.match(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusSettled {
			if o.IsSettlementUnreported() {
				return s.reportSettlement(ctx, o)
			}
			log.WithField("order", orderID).Debug("maker order already settled")
			return nil
		}

		details, err := s.booknode.GetMatchedOrderDetails(ctx, *o)
		if err != nil {
			return err
		}
		swap, err := s.txs.Chain().DecodeSwapMessage(details.TakerSwapMessage)
		if err != nil {
			return fmt.Errorf("decoding swap message of order %s: %w", orderID, err)
		}

		if o, err = s.confirm(ctx, orderID); err != nil {
			return err
		}

		collateral, err := s.ledger.GetByCommitment(ctx, o.NoteCommitment)
		if err != nil {
			return err
		}
		account := order.AccountOf(*o)
		status, err := s.txs.Chain().NoteStatus(ctx, account, *collateral)
		if err != nil {
			return err
		}

		if status == ports.NoteOnChainStatusLocked {
			result, err := s.swap(ctx, account, o, collateral, swap, details)
			if err == nil {
				return s.settle(
					ctx, o, collateral, result.TxHash, result.Tx.Outputs, OutcomeSettled,
				)
			}
			if !errors.Is(err, chaintx.ErrReceiptTimeout) {
				s.metrics.SettlementCompleted(OutcomeFailed)
				return err
			}
			log.WithError(err).WithField("order", orderID).Warn(
				"maker swap receipt not received, looking the swap up",
			)
		} else {
			log.WithField("order", orderID).Warnf(
				"collateral is %s on chain, looking the swap up", status,
			)
		}

		return s.recover(ctx, o, collateral, swap)
	})
}

// TakerPostSettlement books the outcome of a swap settled by the maker: the
// collateral is spent and the incoming note becomes spendable. Without a tx
// hash the chain must report the collateral as spent.
func (s *Service) TakerPostSettlement(
	ctx context.Context, orderID, txHash string,
) error {
	return s.withOrderLock(ctx, orderID, func(ctx context.Context) error {
		o, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusSettled {
			return nil
		}
		if o.Status != domain.OrderStatusOpen && !o.IsMatched() {
			return fmt.Errorf(
				"%w: order %s from %s to %s", domain.ErrInvalidOrderTransition,
				o.ID, o.Status, domain.OrderStatusSettled,
			)
		}

		collateral, err := s.ledger.GetByCommitment(ctx, o.NoteCommitment)
		if err != nil {
			return err
		}
		account := order.AccountOf(*o)

		if len(txHash) > 0 {
			receipt, err := s.txs.WaitForReceipt(ctx, o.ChainID, txHash)
			if err != nil {
				return err
			}
			if !receipt.Success {
				return fmt.Errorf(
					"%w: settlement of order %s %s", chaintx.ErrTransactionFailed,
					orderID, txHash,
				)
			}
		} else {
			spent, err := s.txs.AllSpent(ctx, account, []domain.Note{*collateral})
			if err != nil {
				return err
			}
			if !spent {
				return fmt.Errorf(
					"%w: collateral of order %s is not spent", chaintx.ErrStaleNote,
					orderID,
				)
			}
		}

		if o, err = s.match(ctx, orderID); err != nil {
			return err
		}

		outputs := make([]domain.Note, 0, 1)
		if len(o.IncomingNoteCommitment) > 0 {
			incoming, err := s.ledger.GetByCommitment(ctx, o.IncomingNoteCommitment)
			if err != nil {
				log.WithError(err).WithField("order", orderID).Warn(
					"incoming note of settled order not found",
				)
			} else {
				outputs = append(outputs, *incoming)
			}
		}
		return s.settle(ctx, o, collateral, txHash, outputs, OutcomeTaker)
	})
}

func (s *Service) swap(
	ctx context.Context, account ports.Account, o *domain.Order,
	collateral *domain.Note, swap *ports.CounterpartySwap,
	details *ports.MatchedOrderDetails,
) (*chaintx.Result, error) {
	takerStatus, err := s.txs.Chain().CounterpartyNoteStatus(ctx, o.ChainID, *swap)
	if err != nil {
		return nil, err
	}
	if takerStatus != ports.NoteOnChainStatusLocked {
		return nil, fmt.Errorf(
			"%w: note %s is %s", ErrCounterpartyNotLocked, swap.NoteCommitment,
			takerStatus,
		)
	}

	return s.txs.Submit(ctx, ports.PrepareRequest{
		Kind:        ports.TxKindMakerSwap,
		Account:     account,
		Asset:       o.AssetOut,
		Inputs:      []domain.Note{*collateral},
		Order:       o,
		SwapMessage: details.TakerSwapMessage,
	})
}

// recover books a swap that landed on chain without being booked locally.
func (s *Service) recover(
	ctx context.Context, o *domain.Order, collateral *domain.Note,
	swap *ports.CounterpartySwap,
) error {
	record, err := s.indexer.FindSwapByNullifiers(
		ctx, o.ChainID, o.Nullifier, swap.Nullifier,
	)
	if err != nil {
		return err
	}
	if record == nil {
		s.metrics.SettlementCompleted(OutcomeFailed)
		return fmt.Errorf(
			"%w: no swap found for collateral of order %s", chaintx.ErrStaleNote,
			o.ID,
		)
	}

	outputs := make([]domain.Note, 0, 1)
	incoming, err := s.ledger.GetByCommitment(ctx, record.AliceInNote)
	if err != nil {
		if !errors.Is(err, domain.ErrNoteNotFound) {
			return err
		}
		log.WithField("order", o.ID).Warnf(
			"recovered incoming note %s is unknown to the ledger", record.AliceInNote,
		)
	} else {
		outputs = append(outputs, *incoming)
	}

	log.WithFields(log.Fields{
		"order": o.ID,
		"tx":    record.TxHash,
	}).Info("recovered maker swap from indexer")
	return s.settle(ctx, o, collateral, record.TxHash, outputs, OutcomeRecovered)
}

// settle books a landed swap and, for makers, informs the booknode. A maker
// order stays unreported until the booknode accepted the notice.
func (s *Service) settle(
	ctx context.Context, o *domain.Order, collateral *domain.Note,
	txHash string, outputs []domain.Note, outcome string,
) error {
	if err := s.ledger.SpendNotes(ctx, []domain.Note{*collateral}); err != nil {
		return err
	}
	if err := s.ledger.ActivateNotes(ctx, outputs, txHash); err != nil {
		return err
	}

	var settled *domain.Order
	if err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, o.ID, func(o *domain.Order) (*domain.Order, error) {
			if _, err := o.Settle(txHash); err != nil {
				return nil, err
			}
			if len(outputs) > 0 && len(o.IncomingNoteCommitment) <= 0 {
				o.IncomingNoteCommitment = outputs[0].Commitment
			}
			o.SettlementReported = outcome == OutcomeTaker
			settled = o
			return o, nil
		},
	); err != nil {
		return err
	}
	if err := s.orders.RecordEvents(
		ctx, *settled, domain.OrderStatusSettled,
	); err != nil {
		return err
	}
	s.metrics.SettlementCompleted(outcome)

	log.WithFields(log.Fields{
		"order": o.ID,
		"tx":    txHash,
	}).Infof("order settled (%s)", outcome)

	if outcome == OutcomeTaker {
		return nil
	}
	return s.reportSettlement(ctx, settled)
}

func (s *Service) reportSettlement(ctx context.Context, o *domain.Order) error {
	if err := s.booknode.SettleOrder(ctx, *o, o.TxHashSettled); err != nil {
		return fmt.Errorf("reporting settlement of order %s: %w", o.ID, err)
	}
	if err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, o.ID, func(o *domain.Order) (*domain.Order, error) {
			o.SettlementReported = true
			return o, nil
		},
	); err != nil {
		return err
	}
	log.WithField("order", o.ID).Debug("settlement reported to booknode")
	return nil
}

// match moves an Open order to Matched. Orders past that point are returned
// untouched.
func (s *Service) match(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.advance(ctx, orderID, domain.OrderStatusMatched, (*domain.Order).Match)
}

// confirm moves a Matched order to Confirmed.
func (s *Service) confirm(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.advance(ctx, orderID, domain.OrderStatusConfirmed, (*domain.Order).Confirm)
}

func (s *Service) advance(
	ctx context.Context, orderID string, status domain.OrderStatus,
	transition func(*domain.Order) (bool, error),
) (*domain.Order, error) {
	var current *domain.Order
	changed := false
	if err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, orderID, func(o *domain.Order) (*domain.Order, error) {
			current = o
			if o.Status > status && o.Status <= domain.OrderStatusSettled {
				return o, nil
			}
			c, err := transition(o)
			if err != nil {
				return nil, err
			}
			changed = c
			return o, nil
		},
	); err != nil {
		return nil, err
	}
	if changed {
		if err := s.orders.RecordEvents(ctx, *current, status); err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (s *Service) withOrderLock(
	ctx context.Context, orderID string, fn func(ctx context.Context) error,
) error {
	o, err := s.repoManager.OrderRepository().GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return s.locks.WithLock(ctx, o.ChainID, o.Wallet, fn)
}
