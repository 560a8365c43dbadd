package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	purchworkflows "github.com/Apurer/go-storefront-api/internal/domains/purchasing/adapters/workflows"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := Config{
		Currency:          "USD",
		TaskQueueCapacity: 16,
		TaskQueueWorkers:  1,
		TaskTimeout:       time.Second,
		TemporalDisabled:  true,
		Payments: PaymentConfig{
			CallTimeout:  time.Second,
			DeclineAbove: decimal.NewFromInt(1000),
		},
	}
	components, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		components.Close(ctx)
	})
	return NewRouter("storefront-test", components, purchworkflows.NewInlinePurchaseWorkflows(components.Purchasing))
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestRouter_PurchaseFlowInMemory(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, user := do(t, r, http.MethodPost, "/v1/users", map[string]any{"username": "ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, product := do(t, r, http.MethodPost, "/v1/products", map[string]any{"name": "Laptop", "sku": "LAP-1", "price": "15.00", "stock": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	purchase := map[string]any{
		"userId":        user["id"],
		"productId":     product["id"],
		"quantity":      2,
		"paymentMethod": "credit_card",
	}
	w, receipt := do(t, r, http.MethodPost, "/v1/purchases", purchase, "Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, receipt["success"])
	total, ok := receipt["totalAmount"].(string)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString(total).Equal(decimal.NewFromInt(30)))
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, receipt["orderNumber"])

	w, replay := do(t, r, http.MethodPost, "/v1/purchases", purchase, "Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, receipt["orderId"], replay["orderId"])

	w, stock := do(t, r, http.MethodGet, "/v1/products/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, stock["stock"])

	purchase["paymentMethod"] = "bitcoin"
	w, failure := do(t, r, http.MethodPost, "/v1/purchases", purchase)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, failure["success"])
	assert.Equal(t, "UnsupportedPaymentMethod", failure["errorKind"])
}

func TestRouter_ListsBoundPaymentMethods(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/payment-methods", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var methods []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &methods))
	require.Len(t, methods, 3)
	assert.Equal(t, MethodCreditCard, methods[0]["method"])
	assert.Equal(t, MethodCrypto, methods[1]["method"])
	assert.Equal(t, MethodPayPal, methods[2]["method"])
}
