// Package proverchain builds, proves and relays note operations through the
// proof/relayer sidecar. Receipts are followed directly on the chain.
package proverchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/darkswap-network/darkswap-daemon/pkg/circuitbreaker"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Proofs take a while, the default timeout is sized on them.
const defaultRequestTimeout = 2 * time.Minute

// ReceiptWaiter follows a broadcasted transaction until it is final.
type ReceiptWaiter interface {
	WaitForReceipt(
		ctx context.Context, chainID uint64, txHash string,
	) (*ports.Receipt, error)
}

type service struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	receipts   ReceiptWaiter
}

func NewService(
	baseURL string, requestTimeout time.Duration, receipts ReceiptWaiter,
) (ports.ChainService, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid prover url: %s", err)
	}
	if receipts == nil {
		return nil, fmt.Errorf("missing receipt waiter")
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &service{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		cb:         circuitbreaker.NewCircuitBreaker("prover"),
		receipts:   receipts,
	}, nil
}

func (s *service) Prepare(
	ctx context.Context, req ports.PrepareRequest,
) (*ports.PreparedTx, error) {
	resp := &preparedTx{}
	if err := s.do(ctx, "/v1/tx/prepare", newPrepareRequest(req), resp); err != nil {
		return nil, err
	}
	if resp.ChainID != req.Account.ChainID {
		return nil, fmt.Errorf(
			"%w: prepared tx for chain %d, requested %d",
			ports.ErrExternalService, resp.ChainID, req.Account.ChainID,
		)
	}
	tx, err := resp.toPortable(req.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrExternalService, err)
	}
	return tx, nil
}

func (s *service) GenerateProof(
	ctx context.Context, tx *ports.PreparedTx,
) (*ports.Proof, error) {
	resp := &proof{}
	if err := s.do(
		ctx, "/v1/tx/prove", proveRequest{newPreparedTx(*tx)}, resp,
	); err != nil {
		return nil, err
	}
	if len(resp.Proof) <= 0 {
		return nil, fmt.Errorf("%w: empty proof for tx %s", ports.ErrExternalService, tx.ID)
	}
	return &ports.Proof{Payload: resp.Proof}, nil
}

func (s *service) Execute(
	ctx context.Context, tx *ports.PreparedTx, p *ports.Proof,
) (string, error) {
	resp := &executeResponse{}
	req := executeRequest{Tx: newPreparedTx(*tx), Proof: p.Payload}
	if err := s.do(ctx, "/v1/tx/execute", req, resp); err != nil {
		return "", err
	}
	if len(resp.TxHash) <= 0 {
		return "", fmt.Errorf("%w: missing hash of tx %s", ports.ErrExternalService, tx.ID)
	}
	log.Debugf("relayed %s tx %s with hash %s", tx.Kind, tx.ID, resp.TxHash)
	return resp.TxHash, nil
}

func (s *service) WaitForReceipt(
	ctx context.Context, chainID uint64, txHash string,
) (*ports.Receipt, error) {
	return s.receipts.WaitForReceipt(ctx, chainID, txHash)
}

func (s *service) NoteStatus(
	ctx context.Context, account ports.Account, note domain.Note,
) (ports.NoteOnChainStatus, error) {
	resp := &statusResponse{}
	req := noteStatusRequest{
		Account:    newAccount(account),
		Commitment: note.Commitment,
	}
	if err := s.do(ctx, "/v1/notes/status", req, resp); err != nil {
		return ports.NoteOnChainStatusUnknown, err
	}
	return toNoteStatus(resp.Status), nil
}

func (s *service) CounterpartyNoteStatus(
	ctx context.Context, chainID uint64, swap ports.CounterpartySwap,
) (ports.NoteOnChainStatus, error) {
	resp := &statusResponse{}
	req := counterpartyStatusRequest{
		ChainID: chainID,
		Swap: swapEnvelope{
			ChainID:                chainID,
			NoteCommitment:         swap.NoteCommitment,
			PublicKey:              swap.PublicKey,
			Nullifier:              swap.Nullifier,
			IncomingNoteCommitment: swap.IncomingNoteCommitment,
		},
	}
	if err := s.do(ctx, "/v1/notes/counterparty-status", req, resp); err != nil {
		return ports.NoteOnChainStatusUnknown, err
	}
	return toNoteStatus(resp.Status), nil
}

func (s *service) SwapMessage(
	ctx context.Context, req ports.SwapMessageRequest,
) (*ports.SwapMessage, error) {
	resp := &swapMessageResponse{}
	body := swapMessageRequest{
		Account:            newAccount(req.Account),
		Order:              newOrder(req.Order),
		Collateral:         newNote(req.Collateral),
		MakerAmount:        req.Details.MakerAmount,
		MakerMatchedAmount: req.Details.MakerMatchedAmount,
		TakerMatchedAmount: req.Details.TakerMatchedAmount,
	}
	if err := s.do(ctx, "/v1/swap/message", body, resp); err != nil {
		return nil, err
	}
	if _, err := decodeSwapEnvelope(resp.Message); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrExternalService, err)
	}
	incoming, err := resp.IncomingNote.toDomain()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrExternalService, err)
	}
	return &ports.SwapMessage{IncomingNote: incoming, Message: resp.Message}, nil
}

func (s *service) DecodeSwapMessage(
	message string,
) (*ports.CounterpartySwap, error) {
	msg, err := decodeSwapEnvelope(message)
	if err != nil {
		return nil, err
	}
	return &ports.CounterpartySwap{
		NoteCommitment:         msg.NoteCommitment,
		PublicKey:              msg.PublicKey,
		Nullifier:              msg.Nullifier,
		IncomingNoteCommitment: msg.IncomingNoteCommitment,
	}, nil
}

func (s *service) do(
	ctx context.Context, path string, body, out interface{},
) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(buf),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("invalid reply: %s", err)
		}
		return nil, nil
	})
	if err != nil {
		log.WithError(err).Debugf("prover %s failed", path)
		return fmt.Errorf("%w: prover %s: %s", ports.ErrExternalService, path, err)
	}
	return nil
}
