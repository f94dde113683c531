package domain

import "time"

type PaymentMethod string

const (
	// PaymentMethodCOD collects payment at delivery time.
	PaymentMethodCOD PaymentMethod = "cod"
	// PaymentMethodGateway requires a full-page redirect to an external processor.
	PaymentMethodGateway PaymentMethod = "gateway"
)

// CheckoutForm is the in-progress delivery form for one customer. The
// administrative codes reference the province/district/ward hierarchy; a
// district code is only meaningful under its province, and a ward code only
// under its district.
type CheckoutForm struct {
	CustomerID    string    `json:"customer_id"`
	RecipientName string    `json:"recipient_name"`
	Phone         string    `json:"phone"`
	ProvinceCode  string    `json:"province_code"`
	DistrictCode  string    `json:"district_code"`
	WardCode      string    `json:"ward_code"`
	Street        string    `json:"street"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Address is a saved delivery address as the storefront backend returns it.
// Location fields are free text, not administrative codes.
type Address struct {
	ID            string `json:"id"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	Ward          string `json:"ward"`
	District      string `json:"district"`
	Province      string `json:"province"`
	Active        bool   `json:"active"`
}

// ShippingQuote is the fee and delivery lead time for one province.
type ShippingQuote struct {
	FeeVND   int64  `json:"fee"`
	LeadTime string `json:"lead_time"`
}

// CouponResult is the storefront backend's answer to a coupon validation
// request for a specific cart.
type CouponResult struct {
	Success        bool   `json:"success"`
	DiscountAmount int64  `json:"discount_amount"`
	Message        string `json:"message"`
}

// PriceBreakdown is the result of repricing a cart: fresh subtotal, validated
// discount, derived shipping fee and the resulting total.
type PriceBreakdown struct {
	CartID      string `json:"cart_id"`
	Lines       int    `json:"lines"`
	Subtotal    int64  `json:"subtotal"`
	Discount    int64  `json:"discount"`
	ShippingFee int64  `json:"shipping_fee"`
	Total       int64  `json:"total"`
}

// PaymentRequest is composed fresh at submission time from re-fetched cart
// data, never from a stale local snapshot.
type PaymentRequest struct {
	RequestID     string        `json:"request_id"`
	CartID        string        `json:"cart_id"`
	CouponCode    string        `json:"coupon_code,omitempty"`
	Method        PaymentMethod `json:"payment_method"`
	RecipientName string        `json:"recipient_name"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	Discount      int64         `json:"discount"`
	ShippingFee   int64         `json:"shipping_fee"`
	Amount        int64         `json:"amount"`
}

// PaymentResult is the backend's response to a payment request. For gateway
// payments the Message field carries the redirect URL on success.
type PaymentResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	OrderID     string `json:"order_id,omitempty"`
	ShippingFee int64  `json:"shipping_fee"`
	FinalAmount int64  `json:"final_amount"`
}
