// Package subgraph looks up settled swaps in the darkswap subgraph of every
// supported chain.
package subgraph

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

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/darkswap-network/darkswap-daemon/pkg/circuitbreaker"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	defaultRequestTimeout = 15 * time.Second

	findSwapQuery = `query findSwapByNullifiers($alice: String!, $bob: String!) {
  darkSwaps(where: {aliceOutNullifierIn: $alice, bobOutNullifierIn: $bob}) {
    aliceOutNullifierIn
    bobOutNullifierIn
    aliceInNote
    bobInNote
    transactionHash
  }
}`
)

type graphqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type darkSwap struct {
	AliceOutNullifierIn string `json:"aliceOutNullifierIn"`
	BobOutNullifierIn   string `json:"bobOutNullifierIn"`
	AliceInNote         string `json:"aliceInNote"`
	BobInNote           string `json:"bobInNote"`
	TransactionHash     string `json:"transactionHash"`
}

type findSwapResponse struct {
	Data *struct {
		DarkSwaps []darkSwap `json:"darkSwaps"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type indexer struct {
	urls       map[uint64]string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewIndexer returns a chain indexer querying the subgraph at the given url
// for every chain id.
func NewIndexer(
	urls map[uint64]string, requestTimeout time.Duration,
) (ports.ChainIndexer, error) {
	if len(urls) <= 0 {
		return nil, fmt.Errorf("missing subgraph urls")
	}
	for chainID, u := range urls {
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("invalid subgraph url for chain %d: %s", chainID, err)
		}
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &indexer{
		urls:       urls,
		httpClient: &http.Client{Timeout: requestTimeout},
		cb:         circuitbreaker.NewCircuitBreaker("subgraph"),
	}, nil
}

func (i *indexer) FindSwapByNullifiers(
	ctx context.Context, chainID uint64, aliceNullifier, bobNullifier string,
) (*ports.SwapRecord, error) {
	endpoint, ok := i.urls[chainID]
	if !ok {
		return nil, fmt.Errorf(
			"%w: no subgraph for chain %d", ports.ErrExternalService, chainID,
		)
	}

	resp := &findSwapResponse{}
	if err := i.query(ctx, endpoint, graphqlRequest{
		Query: findSwapQuery,
		Variables: map[string]string{
			"alice": aliceNullifier,
			"bob":   bobNullifier,
		},
	}, resp); err != nil {
		return nil, err
	}

	if resp.Data == nil || len(resp.Data.DarkSwaps) <= 0 {
		return nil, nil
	}
	swap := resp.Data.DarkSwaps[0]
	if len(resp.Data.DarkSwaps) > 1 {
		log.Warnf(
			"subgraph of chain %d returned %d swaps for nullifiers %s/%s, using %s",
			chainID, len(resp.Data.DarkSwaps), aliceNullifier, bobNullifier,
			swap.TransactionHash,
		)
	}
	return &ports.SwapRecord{
		TxHash:      swap.TransactionHash,
		AliceInNote: swap.AliceInNote,
		BobInNote:   swap.BobInNote,
	}, nil
}

func (i *indexer) query(
	ctx context.Context, endpoint string, body graphqlRequest,
	out *findSwapResponse,
) error {
	_, err := i.cb.Execute(func() (interface{}, error) {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, endpoint, bytes.NewReader(buf),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := i.httpClient.Do(req)
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
		if len(out.Errors) > 0 {
			msgs := make([]string, 0, len(out.Errors))
			for _, e := range out.Errors {
				msgs = append(msgs, e.Message)
			}
			return nil, fmt.Errorf("query failed: %s", strings.Join(msgs, "; "))
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: subgraph: %s", ports.ErrExternalService, err)
	}
	return nil
}
