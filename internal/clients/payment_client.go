package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/interfaces"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Ensure HTTPPaymentClient implements interfaces.PaymentClient
var _ interfaces.PaymentClient = (*HTTPPaymentClient)(nil)

// HTTPPaymentClient implements interfaces.PaymentClient using HTTP.
type HTTPPaymentClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPPaymentClient creates a new HTTP-based payment client.
func NewHTTPPaymentClient(cfg config.ServiceConfig) *HTTPPaymentClient {
	return &HTTPPaymentClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logging.NewLogger("payment-client"),
	}
}

// CapturePayment charges the order total. A declined charge is reported in
// the response status, not as an error.
func (c *HTTPPaymentClient) CapturePayment(ctx context.Context, req *models.CapturePaymentRequest) (*models.CapturePaymentResponse, error) {
	c.logger.Debug("Capturing payment", logging.Fields{
		"order_number": req.OrderNumber,
		"amount":       req.Amount,
		"method":       string(req.Method),
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v2/payments", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Payment request failed", logging.Fields{
			"order_number": req.OrderNumber,
			"error":        err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("Payment request returned error", logging.Fields{
			"order_number": req.OrderNumber,
			"status_code":  resp.StatusCode,
		})
		return nil, fmt.Errorf("payment service returned status %d", resp.StatusCode)
	}

	var result models.CapturePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	c.logger.Info("Payment captured", logging.Fields{
		"order_number": req.OrderNumber,
		"payment_id":   result.PaymentID,
		"status":       string(result.Status),
	})

	return &result, nil
}

func (c *HTTPPaymentClient) setHeaders(ctx context.Context, req *http.Request) {
	setHeaders(ctx, req, c.apiKey)
}

// setHeaders applies the JSON, bearer and request ID headers shared by the
// outbound clients.
func setHeaders(ctx context.Context, req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	// Propagate request ID for tracing
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}
}
