// Package pricing recomputes cart totals from authoritative data. Both the
// coupon-apply and payment-submit paths go through Reprice so the two can
// never drift.
package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

// CouponRejectedError reports a coupon the backend refused for the current
// cart. Message is the server's wording when one was provided.
type CouponRejectedError struct {
	Message string
}

func (e *CouponRejectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "coupon was rejected"
}

// CartLoader re-fetches the authoritative cart; a loaded snapshot is never
// trusted for pricing.
type CartLoader interface {
	Load(ctx context.Context, customerID string) (*domain.Cart, error)
}

type CouponValidator interface {
	ValidateCoupon(ctx context.Context, code, cartID string) (*domain.CouponResult, error)
}

type Quoter interface {
	Quote(province string) domain.ShippingQuote
}

type Repricer struct {
	carts    CartLoader
	coupons  CouponValidator
	shipping Quoter
	logger   *slog.Logger
}

func NewRepricer(carts CartLoader, coupons CouponValidator, shipping Quoter, logger *slog.Logger) *Repricer {
	return &Repricer{
		carts:    carts,
		coupons:  coupons,
		shipping: shipping,
		logger:   logger,
	}
}

// Reprice fetches the cart, re-validates the coupon against the fresh cart
// identifier and re-derives the shipping fee for the selected province.
//
// When the backend rejects the coupon, Reprice returns the breakdown priced
// without any discount alongside a CouponRejectedError, so callers can still
// report subtotal, fee and total for the rejected state.
func (r *Repricer) Reprice(ctx context.Context, customerID, couponCode, province string) (*domain.PriceBreakdown, error) {
	cart, err := r.carts.Load(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("reprice: %w", err)
	}

	quote := r.shipping.Quote(province)
	breakdown := &domain.PriceBreakdown{
		CartID:      cart.ID,
		Lines:       cart.Lines(),
		Subtotal:    cart.Subtotal(),
		ShippingFee: quote.FeeVND,
	}
	breakdown.Total = breakdown.Subtotal + breakdown.ShippingFee

	if couponCode == "" {
		return breakdown, nil
	}

	result, err := r.coupons.ValidateCoupon(ctx, couponCode, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("reprice: %w", err)
	}
	if !result.Success {
		r.logger.Info("coupon rejected", "customer_id", customerID, "cart_id", cart.ID, "code", couponCode, "message", result.Message)
		return breakdown, &CouponRejectedError{Message: result.Message}
	}

	breakdown.Discount = result.DiscountAmount
	breakdown.Total = breakdown.Subtotal - breakdown.Discount + breakdown.ShippingFee
	if breakdown.Total < 0 {
		breakdown.Total = 0
	}
	return breakdown, nil
}
