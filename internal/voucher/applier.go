// Package voucher tracks per-customer coupon state through the
// idle/validating/applied/rejected lifecycle.
package voucher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
	"github.com/vhoangnguyen/checkoutflow/internal/pricing"
)

// ErrApplyInFlight refuses a second Apply while a validation is outstanding,
// so duplicate submissions cannot double-count a discount.
var ErrApplyInFlight = errors.New("coupon validation already in progress")

const genericRejection = "could not validate coupon, please try again"

// Repricer prices the current cart with the candidate code against the fresh
// cart identifier.
type Repricer interface {
	Reprice(ctx context.Context, customerID, couponCode, province string) (*domain.PriceBreakdown, error)
}

type Applier struct {
	repricer Repricer
	logger   *slog.Logger

	mu     sync.Mutex
	states map[string]*domain.Voucher
}

func NewApplier(repricer Repricer, logger *slog.Logger) *Applier {
	return &Applier{
		repricer: repricer,
		logger:   logger,
		states:   make(map[string]*domain.Voucher),
	}
}

// Apply validates a code for the customer's current cart and moves the state
// machine to applied or rejected. The returned breakdown reflects the
// resulting price either way: with the discount when applied, without one
// when rejected.
func (a *Applier) Apply(ctx context.Context, customerID, code, province string) (*domain.Voucher, *domain.PriceBreakdown, error) {
	a.mu.Lock()
	state := a.state(customerID)
	if state.Status == domain.VoucherValidating {
		a.mu.Unlock()
		return nil, nil, ErrApplyInFlight
	}
	state.Code = code
	state.Status = domain.VoucherValidating
	state.Message = ""
	a.mu.Unlock()

	breakdown, err := a.repricer.Reprice(ctx, customerID, code, province)

	a.mu.Lock()
	defer a.mu.Unlock()

	var rejected *pricing.CouponRejectedError
	switch {
	case errors.As(err, &rejected):
		state.Status = domain.VoucherRejected
		state.Discount = 0
		state.Message = rejected.Error()
		return copyState(state), breakdown, nil
	case err != nil:
		state.Status = domain.VoucherRejected
		state.Discount = 0
		state.Message = genericRejection
		a.logger.Error("coupon validation failed", "customer_id", customerID, "code", code, "error", err)
		return copyState(state), nil, err
	}

	state.Status = domain.VoucherApplied
	state.Discount = breakdown.Discount
	a.logger.Info("coupon applied", "customer_id", customerID, "code", code, "discount", breakdown.Discount)
	return copyState(state), breakdown, nil
}

// State returns a copy of the customer's voucher state, idle when none exists.
func (a *Applier) State(customerID string) *domain.Voucher {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyState(a.state(customerID))
}

// MarkRejected records a rejection discovered outside Apply, such as the
// re-validation at payment submission time.
func (a *Applier) MarkRejected(customerID, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.state(customerID)
	state.Status = domain.VoucherRejected
	state.Discount = 0
	if message == "" {
		message = genericRejection
	}
	state.Message = message
}

// Reset returns the customer to the idle state, used after checkout.
func (a *Applier) Reset(customerID string) {
	a.mu.Lock()
	delete(a.states, customerID)
	a.mu.Unlock()
}

// state returns the tracked entry, creating an idle one on first use.
// Caller must hold the lock.
func (a *Applier) state(customerID string) *domain.Voucher {
	if st, ok := a.states[customerID]; ok {
		return st
	}
	st := &domain.Voucher{Status: domain.VoucherIdle}
	a.states[customerID] = st
	return st
}

func copyState(st *domain.Voucher) *domain.Voucher {
	out := *st
	return &out
}
