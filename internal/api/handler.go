// Package api exposes the checkout flow over HTTP: cart reads and edits,
// coupon application, the delivery form and final payment submission.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vhoangnguyen/checkoutflow/internal/backend"
	"github.com/vhoangnguyen/checkoutflow/internal/cart"
	"github.com/vhoangnguyen/checkoutflow/internal/checkoutform"
	"github.com/vhoangnguyen/checkoutflow/internal/domain"
	"github.com/vhoangnguyen/checkoutflow/internal/payment"
	"github.com/vhoangnguyen/checkoutflow/internal/pricing"
	"github.com/vhoangnguyen/checkoutflow/internal/shipping"
	"github.com/vhoangnguyen/checkoutflow/internal/telemetry"
	"github.com/vhoangnguyen/checkoutflow/internal/voucher"
)

type Handler struct {
	carts     *cart.Store
	vouchers  *voucher.Applier
	forms     *checkoutform.Service
	shipping  *shipping.Resolver
	submitter *payment.Submitter
	logger    *slog.Logger
}

func NewHandler(carts *cart.Store, vouchers *voucher.Applier, forms *checkoutform.Service, resolver *shipping.Resolver, submitter *payment.Submitter, logger *slog.Logger) *Handler {
	return &Handler{
		carts:     carts,
		vouchers:  vouchers,
		forms:     forms,
		shipping:  resolver,
		submitter: submitter,
		logger:    logger,
	}
}

// Register wires every route onto the mux. Route patterns follow the Go 1.22
// method+path syntax; each handler records the matched pattern on its span.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart/{customerId}", telemetry.WithHTTPRoute(h.HandleGetCart))
	mux.HandleFunc("POST /cart/{customerId}/items/{itemId}/quantity", telemetry.WithHTTPRoute(h.HandleChangeQuantity))
	mux.HandleFunc("DELETE /cart/{customerId}/items/{itemId}", telemetry.WithHTTPRoute(h.HandleRemoveItem))
	mux.HandleFunc("DELETE /cart/{customerId}/combos/{comboId}", telemetry.WithHTTPRoute(h.HandleRemoveCombo))
	mux.HandleFunc("POST /checkout/{customerId}/coupon", telemetry.WithHTTPRoute(h.HandleApplyCoupon))
	mux.HandleFunc("GET /checkout/{customerId}/form", telemetry.WithHTTPRoute(h.HandleGetForm))
	mux.HandleFunc("PUT /checkout/{customerId}/form", telemetry.WithHTTPRoute(h.HandleUpdateForm))
	mux.HandleFunc("POST /checkout/{customerId}/form/address", telemetry.WithHTTPRoute(h.HandleSelectAddress))
	mux.HandleFunc("POST /checkout/{customerId}/submit", telemetry.WithHTTPRoute(h.HandleSubmit))
	mux.HandleFunc("GET /shipping/quote", telemetry.WithHTTPRoute(h.HandleShippingQuote))
}

type cartResponse struct {
	Cart     *domain.Cart `json:"cart"`
	Subtotal int64        `json:"subtotal"`
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	if customerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	loaded, err := h.carts.Load(r.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "customer_id", customerID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cartResponse{Cart: loaded, Subtotal: loaded.Subtotal()})
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type changeQuantityResponse struct {
	Quantity int   `json:"quantity"`
	Subtotal int64 `json:"subtotal"`
}

func (h *Handler) HandleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	itemID := r.PathValue("itemId")

	var req changeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, err := h.carts.ChangeQuantity(r.Context(), customerID, itemID, req.Delta)
	if err != nil {
		h.logger.Error("failed to change quantity", "error", err, "customer_id", customerID, "item_id", itemID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, changeQuantityResponse{
		Quantity: quantity,
		Subtotal: h.carts.Subtotal(customerID),
	})
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	itemID := r.PathValue("itemId")
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := h.carts.RemoveItem(r.Context(), customerID, itemID, confirmed); err != nil {
		h.logger.Error("failed to remove item", "error", err, "customer_id", customerID, "item_id", itemID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cartResponse{
		Cart:     h.snapshotOrEmpty(customerID),
		Subtotal: h.carts.Subtotal(customerID),
	})
}

func (h *Handler) HandleRemoveCombo(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	comboID := r.PathValue("comboId")
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := h.carts.RemoveCombo(r.Context(), customerID, comboID, confirmed); err != nil {
		h.logger.Error("failed to remove combo", "error", err, "customer_id", customerID, "combo_id", comboID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cartResponse{
		Cart:     h.snapshotOrEmpty(customerID),
		Subtotal: h.carts.Subtotal(customerID),
	})
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

type couponResponse struct {
	Voucher   *domain.Voucher        `json:"voucher"`
	Breakdown *domain.PriceBreakdown `json:"breakdown,omitempty"`
}

func (h *Handler) HandleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		h.writeError(w, http.StatusBadRequest, "missing coupon code")
		return
	}

	province, err := h.provinceName(r, customerID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	state, breakdown, err := h.vouchers.Apply(r.Context(), customerID, req.Code, province)
	if err != nil {
		h.logger.Error("failed to apply coupon", "error", err, "customer_id", customerID, "code", req.Code)
		h.handleError(w, err)
		return
	}

	status := http.StatusOK
	if !state.Applied() {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, couponResponse{Voucher: state, Breakdown: breakdown})
}

type formResponse struct {
	Form     *domain.CheckoutForm  `json:"form"`
	Shipping *domain.ShippingQuote `json:"shipping,omitempty"`
}

func (h *Handler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	form, err := h.forms.Get(r.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to load checkout form", "error", err, "customer_id", customerID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, formResponse{Form: form, Shipping: h.quoteFor(r, form)})
}

func (h *Handler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	var upd checkoutform.FormUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	form, err := h.forms.Update(r.Context(), customerID, upd)
	if err != nil {
		h.logger.Error("failed to update checkout form", "error", err, "customer_id", customerID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, formResponse{Form: form, Shipping: h.quoteFor(r, form)})
}

type selectAddressRequest struct {
	AddressID string `json:"address_id"`
}

func (h *Handler) HandleSelectAddress(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	var req selectAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AddressID == "" {
		h.writeError(w, http.StatusBadRequest, "missing address id")
		return
	}

	form, quote, err := h.forms.SelectSavedAddress(r.Context(), customerID, req.AddressID)
	if err != nil {
		h.logger.Error("failed to select saved address", "error", err, "customer_id", customerID, "address_id", req.AddressID)
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, formResponse{Form: form, Shipping: &quote})
}

type quoteResponse struct {
	Province string `json:"province"`
	Fee      int64  `json:"fee"`
	LeadTime string `json:"lead_time"`
}

func (h *Handler) HandleShippingQuote(w http.ResponseWriter, r *http.Request) {
	province := r.URL.Query().Get("province")
	if province == "" {
		h.writeError(w, http.StatusBadRequest, "missing province")
		return
	}

	quote := h.shipping.Quote(province)
	h.writeJSON(w, http.StatusOK, quoteResponse{
		Province: shipping.Normalize(province),
		Fee:      quote.FeeVND,
		LeadTime: quote.LeadTime,
	})
}

type submitRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type submitResponse struct {
	OrderID     string                 `json:"order_id,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Method      domain.PaymentMethod   `json:"method"`
	Breakdown   *domain.PriceBreakdown `json:"breakdown"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.PaymentMethod {
	case domain.PaymentMethodCOD, domain.PaymentMethodGateway:
	default:
		h.writeError(w, http.StatusBadRequest, "unknown payment method")
		return
	}

	result, err := h.submitter.Submit(r.Context(), customerID, req.PaymentMethod)
	if err != nil {
		h.logger.Error("submission failed", "error", err, "customer_id", customerID, "method", req.PaymentMethod)
		h.handleError(w, err)
		return
	}

	h.logger.Info("order submitted", "customer_id", customerID, "method", req.PaymentMethod, "order_id", result.OrderID)
	h.writeJSON(w, http.StatusOK, submitResponse{
		OrderID:     result.OrderID,
		RedirectURL: result.RedirectURL,
		Method:      result.Method,
		Breakdown:   result.Breakdown,
	})
}

// provinceName resolves the display name of the province currently selected
// on the customer's form, "" when none is selected yet.
func (h *Handler) provinceName(r *http.Request, customerID string) (string, error) {
	form, err := h.forms.Get(r.Context(), customerID)
	if err != nil {
		return "", err
	}
	return h.forms.ProvinceName(r.Context(), form)
}

// quoteFor computes a shipping quote for the form's province. Returns nil
// when the province is not selected or cannot be resolved.
func (h *Handler) quoteFor(r *http.Request, form *domain.CheckoutForm) *domain.ShippingQuote {
	name, err := h.forms.ProvinceName(r.Context(), form)
	if err != nil {
		h.logger.Warn("failed to resolve province for quote", "error", err)
		return nil
	}
	if name == "" {
		return nil
	}
	quote := h.shipping.Quote(name)
	return &quote
}

func (h *Handler) snapshotOrEmpty(customerID string) *domain.Cart {
	if snapshot, ok := h.carts.Snapshot(customerID); ok {
		return snapshot
	}
	return &domain.Cart{}
}

// handleError maps the error taxonomy of the inner packages onto HTTP
// statuses. Business errors surface their message verbatim; transport
// failures hide details behind a 502.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var missing *checkoutform.MissingFieldsError
	var unresolved *checkoutform.UnresolvedTierError
	var rejected *pricing.CouponRejectedError
	var refused *payment.RefusedError
	var business *backend.BusinessError

	switch {
	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, checkoutform.ErrAddressNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrConfirmationRequired),
		errors.Is(err, cart.ErrQuantityConflict),
		errors.Is(err, cart.ErrNotLoaded),
		errors.Is(err, checkoutform.ErrAddressInactive),
		errors.Is(err, voucher.ErrApplyInFlight),
		errors.Is(err, payment.ErrSubmitInFlight),
		errors.Is(err, payment.ErrEmptyCart),
		errors.Is(err, payment.ErrAmountMismatch):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &missing),
		errors.Is(err, payment.ErrMalformedAddress):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unresolved),
		errors.As(err, &rejected):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &refused):
		h.writeError(w, http.StatusPaymentRequired, refused.Error())
	case errors.As(err, &business):
		h.writeError(w, http.StatusBadRequest, business.Message)
	case errors.Is(err, backend.ErrUnavailable):
		h.writeError(w, http.StatusBadGateway, "storefront backend unavailable")
	default:
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
