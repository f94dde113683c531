// Package backend is the REST client for the storefront backend that owns
// carts, coupons, saved addresses and payment processing.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker/v2"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

// ErrUnavailable covers transport failures and non-JSON error responses.
// Callers surface it as a generic, retryable message.
var ErrUnavailable = errors.New("storefront backend unavailable")

// BusinessError carries a server-reported failure message, which is shown to
// the user verbatim.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
}

func NewClient(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name: "storefront-backend",
	})
	return &Client{
		baseURL: baseURL,
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

func (c *Client) CartByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	var cart domain.Cart
	path := "/carts/customer/" + url.PathEscape(customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &cart); err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	return &cart, nil
}

func (c *Client) IncrementQuantity(ctx context.Context, itemID string) error {
	path := "/carts/items/" + url.PathEscape(itemID) + "/increment"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) DecrementQuantity(ctx context.Context, itemID string) error {
	path := "/carts/items/" + url.PathEscape(itemID) + "/decrement"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) RemoveItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/carts/items/"+url.PathEscape(itemID), nil, nil)
}

func (c *Client) RemoveCombo(ctx context.Context, comboID string) error {
	return c.do(ctx, http.MethodDelete, "/carts/combos/"+url.PathEscape(comboID), nil, nil)
}

// ValidateCoupon checks a code against a specific cart. A success=false
// answer is not an error; callers decide how to react to the rejection.
func (c *Client) ValidateCoupon(ctx context.Context, code, cartID string) (*domain.CouponResult, error) {
	query := url.Values{}
	query.Set("code", code)
	query.Set("cart_id", cartID)

	var result domain.CouponResult
	if err := c.do(ctx, http.MethodGet, "/coupons/validate?"+query.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("validate coupon: %w", err)
	}
	return &result, nil
}

func (c *Client) AddressesByCustomer(ctx context.Context, customerID string) ([]domain.Address, error) {
	var addresses []domain.Address
	path := "/addresses/customer/" + url.PathEscape(customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &addresses); err != nil {
		return nil, fmt.Errorf("fetch addresses: %w", err)
	}
	return addresses, nil
}

func (c *Client) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	var result domain.PaymentResult
	if err := c.do(ctx, http.MethodPost, "/payments", req, &result); err != nil {
		return nil, fmt.Errorf("process payment: %w", err)
	}
	return &result, nil
}

// do runs one backend call through the circuit breaker. Non-2xx responses
// with a JSON message become BusinessError; everything else maps to
// ErrUnavailable.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		c.logger.Error("backend request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			message := payload.Message
			if message == "" {
				message = payload.Error
			}
			if message != "" {
				return &BusinessError{Message: message}
			}
		}
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
