package card

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to a remote card gateway over JSON/HTTP.
type HTTPClient struct {
	client *resty.Client
}

type apiError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewHTTPClient builds a client for baseURL. apiKey is sent as a bearer token when set.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPClient{client: client}
}

// Process posts a charge. A 402 answer is a decline, not a transport failure.
func (c *HTTPClient) Process(ctx context.Context, req ProcessRequest) (ProcessResponse, error) {
	var out ProcessResponse
	var failure apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		Post("/v1/payments")
	if err != nil {
		return ProcessResponse{}, err
	}
	if resp.StatusCode() == http.StatusPaymentRequired {
		return ProcessResponse{Amount: req.Amount, Currency: req.Currency, Status: "declined", Message: failure.Message}, nil
	}
	if resp.IsError() {
		return ProcessResponse{}, fmt.Errorf("card gateway returned %d: %s", resp.StatusCode(), failure.Message)
	}
	return out, nil
}

func (c *HTTPClient) Refund(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	var out RefundResponse
	var failure apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		Post("/v1/payments/" + req.PaymentID + "/refunds")
	if err != nil {
		return RefundResponse{}, err
	}
	if resp.StatusCode() == http.StatusPaymentRequired || resp.StatusCode() == http.StatusConflict {
		return RefundResponse{Amount: req.Amount, Status: "declined", Message: failure.Message}, nil
	}
	if resp.IsError() {
		return RefundResponse{}, fmt.Errorf("card gateway returned %d: %s", resp.StatusCode(), failure.Message)
	}
	return out, nil
}
