package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_CartByCustomer(t *testing.T) {
	t.Run("decodes the cart", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/carts/customer/cust-1" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cart-1","items":[{"item_id":"item-1","name":"Áo thun","quantity":2,"price":100000}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		cart, err := client.CartByCustomer(context.Background(), "cust-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cart.ID != "cart-1" {
			t.Errorf("unexpected cart id: %s", cart.ID)
		}
		if len(cart.Items) != 1 || cart.Items[0].Price != 100000 {
			t.Errorf("unexpected items: %+v", cart.Items)
		}
	})

	t.Run("transport failure maps to ErrUnavailable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", &http.Client{}, testLogger())

		_, err := client.CartByCustomer(context.Background(), "cust-1")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestClient_ValidateCoupon(t *testing.T) {
	t.Run("forwards code and cart id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("code"); got != "SALE20" {
				t.Errorf("unexpected code: %s", got)
			}
			if got := r.URL.Query().Get("cart_id"); got != "cart-1" {
				t.Errorf("unexpected cart id: %s", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"discount_amount":20000}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		result, err := client.ValidateCoupon(context.Background(), "SALE20", "cart-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Success || result.DiscountAmount != 20000 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("a rejection is a result, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":false,"message":"mã đã hết hạn"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		result, err := client.ValidateCoupon(context.Background(), "OLD", "cart-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Success {
			t.Error("expected a rejected result")
		}
		if result.Message != "mã đã hết hạn" {
			t.Errorf("unexpected message: %q", result.Message)
		}
	})
}

func TestClient_ProcessPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"order_id":"order-77","final_amount":240000}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	result, err := client.ProcessPayment(context.Background(), domain.PaymentRequest{
		RequestID: "req-1",
		Method:    domain.PaymentMethodCOD,
		Amount:    240000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OrderID != "order-77" || result.FinalAmount != 240000 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Run("json error body becomes a business error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"sản phẩm đã hết hàng"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		err := client.IncrementQuantity(context.Background(), "item-1")

		var business *BusinessError
		if !errors.As(err, &business) {
			t.Fatalf("expected BusinessError, got %v", err)
		}
		if business.Message != "sản phẩm đã hết hàng" {
			t.Errorf("message must survive verbatim, got %q", business.Message)
		}
	})

	t.Run("error key is accepted too", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"giỏ hàng đã thay đổi"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		err := client.RemoveItem(context.Background(), "item-1")

		var business *BusinessError
		if !errors.As(err, &business) {
			t.Fatalf("expected BusinessError, got %v", err)
		}
		if business.Message != "giỏ hàng đã thay đổi" {
			t.Errorf("unexpected message: %q", business.Message)
		}
	})

	t.Run("non-json error body maps to ErrUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		err := client.RemoveCombo(context.Background(), "combo-1")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}
