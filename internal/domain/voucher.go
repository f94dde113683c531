package domain

type VoucherStatus string

const (
	VoucherIdle       VoucherStatus = "idle"
	VoucherValidating VoucherStatus = "validating"
	VoucherApplied    VoucherStatus = "applied"
	VoucherRejected   VoucherStatus = "rejected"
)

// Voucher tracks the coupon state for one customer. The discount amount is
// only trustworthy immediately after a successful validation against the
// current cart; it must be revalidated before payment submission.
type Voucher struct {
	Code     string        `json:"code"`
	Discount int64         `json:"discount"`
	Status   VoucherStatus `json:"status"`
	Message  string        `json:"message,omitempty"`
}

func (v *Voucher) Applied() bool {
	return v.Status == VoucherApplied
}
