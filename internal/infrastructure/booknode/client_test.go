package booknode_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/booknode"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const apiKey = "secret-key"

type call struct {
	method string
	path   string
	body   map[string]interface{}
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	calls := make(chan call, 10)
	server := newTestServer(t, calls)
	client, err := booknode.NewClient(server.URL, apiKey, time.Second)
	require.NoError(t, err)

	order := domain.Order{
		ID:           "order-1",
		ChainID:      31337,
		AssetPairID:  "pair-1",
		Wallet:       "0xwallet",
		PublicKey:    "pk",
		Direction:    domain.OrderDirectionSell,
		Type:         domain.OrderTypeLimit,
		Price:        decimal.NewFromFloat(20.5),
		TriggerPrice: decimal.NewFromInt(19),
		AmountOut:    *uint256.NewInt(10),
		AmountIn:     *uint256.NewInt(205),
		Nullifier:    "0xnullifier",
	}

	t.Run("create_order", func(t *testing.T) {
		require.NoError(t, client.CreateOrder(ctx, order))
		c := <-calls
		require.Equal(t, http.MethodPost, c.method)
		require.Equal(t, "/api/orders/create", c.path)
		require.Equal(t, "order-1", c.body["orderId"])
		require.Equal(t, "10", c.body["amountOut"])
		require.Equal(t, "205", c.body["amountIn"])
		require.Equal(t, 20.5, c.body["price"])
		require.Equal(t, float64(0), c.body["orderTriggerPrice"])
		require.Equal(t, float64(31337), c.body["chainId"])
	})

	t.Run("cancel_order", func(t *testing.T) {
		require.NoError(t, client.CancelOrder(ctx, order))
		c := <-calls
		require.Equal(t, "/api/orders/cancel", c.path)
		require.Equal(t, "0xnullifier", c.body["nullifier"])
		require.Equal(t, "0xwallet", c.body["wallet"])
	})

	t.Run("update_price", func(t *testing.T) {
		require.NoError(t, client.UpdateOrderPrice(ctx, order))
		c := <-calls
		require.Equal(t, http.MethodPut, c.method)
		require.Equal(t, "/api/orders/price", c.path)
	})

	t.Run("confirm_and_settle", func(t *testing.T) {
		require.NoError(t, client.ConfirmOrder(ctx, order, "swap-msg"))
		c := <-calls
		require.Equal(t, "/api/orders/confirm", c.path)
		require.Equal(t, "swap-msg", c.body["swapMessage"])

		require.NoError(t, client.SettleOrder(ctx, order, "0xtx"))
		c = <-calls
		require.Equal(t, "/api/orders/settle", c.path)
		require.Equal(t, "0xtx", c.body["txHashSettled"])
	})

	t.Run("match_details", func(t *testing.T) {
		details, err := client.GetMatchedOrderDetails(ctx, order)
		require.NoError(t, err)
		<-calls
		require.True(t, details.IsMaker)
		require.Equal(t, "order-1", details.OrderID)
		require.Equal(t, domain.OrderDirectionSell, details.Direction)
		require.Equal(t, "taker-msg", details.TakerSwapMessage)
	})

	t.Run("asset_pairs", func(t *testing.T) {
		pairs, err := client.GetAssetPairs(ctx)
		require.NoError(t, err)
		<-calls
		require.Len(t, pairs, 1)
		require.Equal(t, "0xbase", pairs[0].Base.Address)
		require.Equal(t, 6, pairs[0].Quote.Decimals)

		pair, err := client.GetAssetPair(ctx, "pair-1")
		require.NoError(t, err)
		c := <-calls
		require.Equal(t, "/assetPair/getAssetPair/pair-1", c.path)
		require.Equal(t, uint64(31337), pair.ChainID)
	})

	t.Run("refused", func(t *testing.T) {
		refused := order
		refused.ID = "refused"
		err := client.CreateOrder(ctx, refused)
		require.ErrorIs(t, err, ports.ErrExternalService)
		<-calls
	})
}

func TestClientUnauthorized(t *testing.T) {
	server := newTestServer(t, make(chan call, 1))
	client, err := booknode.NewClient(server.URL, "wrong", time.Second)
	require.NoError(t, err)

	_, err = client.GetAssetPairs(context.Background())
	require.ErrorIs(t, err, ports.ErrExternalService)
}

func TestNewClient(t *testing.T) {
	_, err := booknode.NewClient("", apiKey, 0)
	require.Error(t, err)
	_, err = booknode.NewClient("http://localhost:3000", "", 0)
	require.Error(t, err)
}

func newTestServer(t *testing.T, calls chan<- call) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+apiKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			body := make(map[string]interface{})
			if buf, _ := io.ReadAll(r.Body); len(buf) > 0 {
				//nolint
				json.Unmarshal(buf, &body)
			}
			calls <- call{r.Method, r.URL.Path, body}

			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/orders/matchdetails":
				writeJSON(w, map[string]interface{}{
					"code": 200,
					"data": map[string]interface{}{
						"orderId":            body["orderId"],
						"chainId":            body["chainId"],
						"assetPairId":        "pair-1",
						"orderDirection":     1,
						"isMaker":            true,
						"makerAmount":        "10",
						"makerMatchedAmount": "10",
						"takerMatchedAmount": "205",
						"takerSwapMessage":   "taker-msg",
					},
				})
			case "/api/trading-pairs":
				writeJSON(w, map[string]interface{}{
					"code": 200,
					"data": []interface{}{testAssetPair()},
				})
			case "/assetPair/getAssetPair/pair-1":
				writeJSON(w, testAssetPair())
			default:
				if body["orderId"] == "refused" {
					writeJSON(w, map[string]interface{}{
						"code": 400, "message": "order refused",
					})
					return
				}
				writeJSON(w, map[string]interface{}{"code": 200})
			}
		},
	))
	t.Cleanup(server.Close)
	return server
}

func testAssetPair() map[string]interface{} {
	return map[string]interface{}{
		"id":           "pair-1",
		"chainId":      31337,
		"baseAddress":  "0xbase",
		"baseSymbol":   "WETH",
		"baseDecimal":  18,
		"quoteAddress": "0xquote",
		"quoteSymbol":  "USDC",
		"quoteDecimal": 6,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	buf, _ := json.Marshal(v)
	//nolint
	w.Write(buf)
}
