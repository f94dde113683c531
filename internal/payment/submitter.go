// Package payment orchestrates order submission: re-fetching the cart,
// re-validating the coupon, re-deriving the shipping fee, composing the
// delivery address and posting the payment request.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vhoangnguyen/checkoutflow/internal/checkoutform"
	"github.com/vhoangnguyen/checkoutflow/internal/domain"
	"github.com/vhoangnguyen/checkoutflow/internal/pricing"
)

var (
	// ErrSubmitInFlight refuses a second submission while one is outstanding,
	// so a double click cannot place duplicate orders.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrEmptyCart blocks checkout of a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAmountMismatch aborts a gateway redirect whose server-side amount
	// disagrees with the locally recomputed one.
	ErrAmountMismatch = errors.New("payment amount mismatch, please retry")
	// ErrMalformedAddress aborts submission when address composition produced
	// an incomplete string.
	ErrMalformedAddress = errors.New("delivery address is incomplete")
)

// RefusedError carries the processor's rejection message verbatim so callers
// can show it to the customer unchanged.
type RefusedError struct {
	Message string
}

func (e *RefusedError) Error() string {
	if e.Message == "" {
		return "payment refused"
	}
	return "payment refused: " + e.Message
}

type Repricer interface {
	Reprice(ctx context.Context, customerID, couponCode, province string) (*domain.PriceBreakdown, error)
}

type Forms interface {
	Get(ctx context.Context, customerID string) (*domain.CheckoutForm, error)
	ResolveNames(ctx context.Context, form *domain.CheckoutForm) (province, district, ward string, err error)
	Clear(ctx context.Context, customerID string) error
}

type Vouchers interface {
	State(customerID string) *domain.Voucher
	MarkRejected(customerID, message string)
	Reset(customerID string)
}

type Carts interface {
	Clear(customerID string)
}

type Processor interface {
	ProcessPayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error)
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}

// Result is the successful outcome of a submission: an order identifier for
// cash-on-delivery, or a redirect URL for gateway payments.
type Result struct {
	OrderID     string                 `json:"order_id,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Method      domain.PaymentMethod   `json:"payment_method"`
	Breakdown   *domain.PriceBreakdown `json:"breakdown"`
}

type Submitter struct {
	repricer  Repricer
	forms     Forms
	vouchers  Vouchers
	carts     Carts
	processor Processor
	publisher Publisher
	logger    *slog.Logger

	submissions metric.Int64Counter

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewSubmitter wires the submission pipeline. publisher may be nil when no
// broker is configured.
func NewSubmitter(repricer Repricer, forms Forms, vouchers Vouchers, carts Carts, processor Processor, publisher Publisher, logger *slog.Logger) (*Submitter, error) {
	meter := otel.Meter("checkoutflow/payment")
	submissions, err := meter.Int64Counter("checkout.submissions",
		metric.WithDescription("Payment submissions by method and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create submissions counter: %w", err)
	}

	return &Submitter{
		repricer:    repricer,
		forms:       forms,
		vouchers:    vouchers,
		carts:       carts,
		processor:   processor,
		publisher:   publisher,
		logger:      logger,
		submissions: submissions,
		inFlight:    make(map[string]bool),
	}, nil
}

// Submit runs the full submission sequence against authoritative data. Any
// failure leaves cart, voucher and form state untouched so the user can
// retry; state is cleared only after a confirmed cash-on-delivery order.
func (s *Submitter) Submit(ctx context.Context, customerID string, method domain.PaymentMethod) (*Result, error) {
	s.mu.Lock()
	if s.inFlight[customerID] {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.inFlight[customerID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, customerID)
		s.mu.Unlock()
	}()

	result, err := s.submit(ctx, customerID, method)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
		attribute.String("outcome", outcome),
	))
	return result, err
}

func (s *Submitter) submit(ctx context.Context, customerID string, method domain.PaymentMethod) (*Result, error) {
	form, err := s.forms.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := checkoutform.ValidateRequired(form); err != nil {
		return nil, err
	}

	provinceName, districtName, wardName, err := s.forms.ResolveNames(ctx, form)
	if err != nil {
		return nil, err
	}

	couponCode := ""
	if state := s.vouchers.State(customerID); state.Applied() {
		couponCode = state.Code
	}

	// Re-fetches the cart, re-validates the coupon against the fresh cart id
	// and re-derives the shipping fee from the selected province.
	breakdown, err := s.repricer.Reprice(ctx, customerID, couponCode, provinceName)
	if err != nil {
		var rejected *pricing.CouponRejectedError
		if errors.As(err, &rejected) {
			s.vouchers.MarkRejected(customerID, rejected.Message)
		}
		return nil, err
	}
	if breakdown.Lines == 0 {
		return nil, ErrEmptyCart
	}

	address, err := composeAddress(form.Street, wardName, districtName, provinceName)
	if err != nil {
		return nil, err
	}

	request := domain.PaymentRequest{
		RequestID:     uuid.New().String(),
		CartID:        breakdown.CartID,
		CouponCode:    couponCode,
		Method:        method,
		RecipientName: form.RecipientName,
		Phone:         form.Phone,
		Address:       address,
		Discount:      breakdown.Discount,
		ShippingFee:   breakdown.ShippingFee,
		Amount:        breakdown.Total,
	}

	response, err := s.processor.ProcessPayment(ctx, request)
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, &RefusedError{Message: response.Message}
	}

	switch method {
	case domain.PaymentMethodGateway:
		if response.FinalAmount != breakdown.Total {
			s.logger.Error("gateway amount mismatch",
				"customer_id", customerID, "local", breakdown.Total, "server", response.FinalAmount)
			return nil, ErrAmountMismatch
		}
		return &Result{
			RedirectURL: response.Message,
			Method:      method,
			Breakdown:   breakdown,
		}, nil

	default:
		s.clearCheckoutState(ctx, customerID)
		s.publishOrderPlaced(ctx, customerID, response.OrderID, request)
		s.logger.Info("order placed", "customer_id", customerID, "order_id", response.OrderID, "amount", breakdown.Total)
		return &Result{
			OrderID:   response.OrderID,
			Method:    method,
			Breakdown: breakdown,
		}, nil
	}
}

// clearCheckoutState drops the cart snapshot, voucher state and persisted
// form once the order is confirmed. The order is already placed, so a storage
// failure here is logged rather than surfaced.
func (s *Submitter) clearCheckoutState(ctx context.Context, customerID string) {
	s.carts.Clear(customerID)
	s.vouchers.Reset(customerID)
	if err := s.forms.Clear(ctx, customerID); err != nil {
		s.logger.Error("failed to clear checkout form", "customer_id", customerID, "error", err)
	}
}

func (s *Submitter) publishOrderPlaced(ctx context.Context, customerID, orderID string, request domain.PaymentRequest) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderPlacedEvent{
		OrderID:       orderID,
		CustomerID:    customerID,
		Method:        request.Method,
		Amount:        request.Amount,
		RecipientName: request.RecipientName,
		Address:       request.Address,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("failed to publish order placed event", "order_id", orderID, "error", err)
	}
}

func composeAddress(street, ward, district, province string) (string, error) {
	parts := []string{strings.TrimSpace(street), strings.TrimSpace(ward), strings.TrimSpace(district), strings.TrimSpace(province)}
	for _, part := range parts {
		if part == "" {
			return "", ErrMalformedAddress
		}
	}
	return strings.Join(parts, ", "), nil
}
