package integration

import (
	"net/http"
	"sync"
	"testing"

	"payuni-gateway/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentCreatePayment_DedupsToOneOrder fires the same checkout
// request many times in parallel for one user/product and verifies C4's
// FindPendingOrder dedup collapses them all onto a single trade number,
// rather than racing into duplicate pending orders.
func TestConcurrentCreatePayment_DedupsToOneOrder(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	token := app.issueSession(t, "concurrent-user", "concurrent@example.com")

	const n = 20
	tradeNos := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resp := app.doJSON(t, http.MethodPost, "/api/v1/payments", token, map[string]string{"product_id": oneTimeProductID})
			defer resp.Body.Close()
			var checkout struct {
				TradeNo string `json:"trade_no"`
			}
			decodeData(t, resp, &checkout)
			tradeNos[i] = checkout.TradeNo
		}(i)
	}
	wg.Wait()

	first := tradeNos[0]
	require.NotEmpty(t, first)
	for _, tn := range tradeNos {
		assert.Equal(t, first, tn)
	}

	listResp := app.doJSON(t, http.MethodGet, "/api/v1/my-orders", token, nil)
	var list struct {
		Total int64 `json:"total"`
	}
	decodeData(t, listResp, &list)
	assert.Equal(t, int64(1), list.Total)
}

// TestConcurrentWebhook_GrantsEntitlementExactlyOnce redelivers the same
// paid trade concurrently and verifies exactly one ACTIVE entitlement is
// ever granted, exercising the entitlement repository's SourceOrderID
// idempotency under real concurrent pressure rather than sequential calls.
func TestConcurrentWebhook_GrantsEntitlementExactlyOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	token := app.issueSession(t, "concurrent-user-2", "concurrent2@example.com")

	resp := app.doJSON(t, http.MethodPost, "/api/v1/payments", token, map[string]string{"product_id": oneTimeProductID})
	var checkout struct {
		TradeNo string `json:"trade_no"`
	}
	decodeData(t, resp, &checkout)
	require.NotEmpty(t, checkout.TradeNo)

	app.sandbox.SetTradeInfo(&ports.TradeInfo{TradeNo: checkout.TradeNo, StatusCode: 1, Amount: 19900, GatewaySeq: "SEQ-CONCURRENT"})
	form := app.sealedGatewayForm(t, checkout.TradeNo)

	const n = 15
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			resp, err := http.PostForm(app.server.URL+"/payuni-webhook", form)
			if assert.NoError(t, err) {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	listResp := app.doJSON(t, http.MethodGet, "/api/v1/my-orders", token, nil)
	var list struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	decodeData(t, listResp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "PAID", list.Items[0].Status)

	entsResp := app.doJSON(t, http.MethodGet, "/api/v1/subscriptions", token, nil)
	var ents []struct {
		Status string `json:"status"`
	}
	decodeData(t, entsResp, &ents)
	require.Len(t, ents, 1)
	assert.Equal(t, "ACTIVE", ents[0].Status)
}
