package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/adapters/memory"
	"github.com/Apurer/go-storefront-api/internal/domains/carts/application"
)

type knownProducts map[int64]bool

func (k knownProducts) Exists(_ context.Context, id int64) (bool, error) { return k[id], nil }

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := application.NewService(memory.NewRepository(), knownProducts{7: true, 8: true})
	NewHandler(svc).Register(r.Group("/v1"))
	return r
}

func send(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CartFlow(t *testing.T) {
	r := newRouter()

	w := send(r, http.MethodPost, "/v1/users/1/cart/items", `{"productId":7,"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = send(r, http.MethodPost, "/v1/users/1/cart/items", `{"productId":7,"quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = send(r, http.MethodPost, "/v1/users/1/cart/items", `{"productId":8,"quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var cart Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Equal(t, []Line{{ProductID: 7, Quantity: 3}, {ProductID: 8, Quantity: 1}}, cart.Lines)

	w = send(r, http.MethodDelete, "/v1/users/1/cart/items/8", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodDelete, "/v1/users/1/cart", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = send(r, http.MethodGet, "/v1/users/1/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Empty(t, cart.Lines)
}

func TestHandler_CartProblems(t *testing.T) {
	r := newRouter()

	w := send(r, http.MethodPost, "/v1/users/1/cart/items", `{"productId":99,"quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(r, http.MethodPost, "/v1/users/1/cart/items", `{"productId":7,"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodDelete, "/v1/users/1/cart/items/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
