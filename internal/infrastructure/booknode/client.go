// Package booknode talks to the matching service: a REST client for order
// management and a websocket listener for its notifications.
package booknode

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

const defaultRequestTimeout = 10 * time.Second

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewClient(
	baseURL, apiKey string, requestTimeout time.Duration,
) (ports.Booknode, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid booknode url: %s", err)
	}
	if len(apiKey) <= 0 {
		return nil, fmt.Errorf("missing booknode api key")
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		cb:         circuitbreaker.NewCircuitBreaker("booknode"),
	}, nil
}

func (c *client) CreateOrder(ctx context.Context, order domain.Order) error {
	return c.do(
		ctx, http.MethodPost, "/api/orders/create", newCreateOrderRequest(order),
		&response{},
	)
}

func (c *client) CancelOrder(ctx context.Context, order domain.Order) error {
	req := newOrderRequest(order)
	req.Nullifier = order.Nullifier
	return c.do(ctx, http.MethodPost, "/api/orders/cancel", req, &response{})
}

func (c *client) UpdateOrderPrice(ctx context.Context, order domain.Order) error {
	req := updatePriceRequest{
		ChainID:         order.ChainID,
		Wallet:          order.Wallet,
		OrderID:         order.ID,
		Price:           order.Price.InexactFloat64(),
		AmountIn:        order.AmountIn.Dec(),
		PartialAmountIn: order.PartialAmountIn.Dec(),
	}
	return c.do(ctx, http.MethodPut, "/api/orders/price", req, &response{})
}

func (c *client) ConfirmOrder(
	ctx context.Context, order domain.Order, swapMessage string,
) error {
	req := newOrderRequest(order)
	req.SwapMessage = swapMessage
	return c.do(ctx, http.MethodPost, "/api/orders/confirm", req, &response{})
}

func (c *client) SettleOrder(
	ctx context.Context, order domain.Order, txHash string,
) error {
	req := newOrderRequest(order)
	req.TxHashSettled = txHash
	return c.do(ctx, http.MethodPost, "/api/orders/settle", req, &response{})
}

func (c *client) GetMatchedOrderDetails(
	ctx context.Context, order domain.Order,
) (*ports.MatchedOrderDetails, error) {
	resp := &matchedOrderResponse{}
	if err := c.do(
		ctx, http.MethodPost, "/api/orders/matchdetails", newOrderRequest(order),
		resp,
	); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf(
			"%w: no match details for order %s", ports.ErrExternalService, order.ID,
		)
	}
	return resp.Data.toPortable(), nil
}

func (c *client) GetAssetPairs(ctx context.Context) ([]domain.AssetPair, error) {
	resp := &assetPairsResponse{}
	if err := c.do(
		ctx, http.MethodGet, "/api/trading-pairs", nil, resp,
	); err != nil {
		return nil, err
	}
	pairs := make([]domain.AssetPair, 0, len(resp.Data))
	for _, p := range resp.Data {
		pairs = append(pairs, p.toDomain())
	}
	return pairs, nil
}

func (c *client) GetAssetPair(
	ctx context.Context, id string,
) (*domain.AssetPair, error) {
	resp := &assetPair{}
	path := fmt.Sprintf("/assetPair/getAssetPair/%s", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, resp); err != nil {
		return nil, err
	}
	if len(resp.ID) <= 0 {
		return nil, fmt.Errorf(
			"%w: asset pair %s", domain.ErrAssetPairNotFound, id,
		)
	}
	pair := resp.toDomain()
	return &pair, nil
}

// do sends the request through the circuit breaker and decodes the reply
// into out. Replies carrying a non-success code are errors.
func (c *client) do(
	ctx context.Context, method, path string, body, out interface{},
) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		var reqBody io.Reader
		if body != nil {
			buf, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reqBody = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		buf, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, buf)
		}
		if len(buf) <= 0 {
			return nil, nil
		}
		if err := json.Unmarshal(buf, out); err != nil {
			return nil, fmt.Errorf("invalid reply: %s", err)
		}
		if r, ok := out.(interface{ result() response }); ok {
			if code := r.result().Code; code != 0 && code != successCode {
				return nil, fmt.Errorf("code %d: %s", code, r.result().Message)
			}
		}
		return nil, nil
	})
	if err != nil {
		log.WithError(err).Debugf("booknode %s %s failed", method, path)
		return fmt.Errorf("%w: booknode %s: %s", ports.ErrExternalService, path, err)
	}
	return nil
}

func (r *response) result() response {
	return *r
}
