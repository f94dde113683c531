package shipping

import "github.com/vhoangnguyen/checkoutflow/internal/domain"

// LeadTimeUnknown marks a quote for a province missing from the fee table.
const LeadTimeUnknown = "unknown"

// fees is the static province fee table, keyed by canonical display name.
var fees = map[string]domain.ShippingQuote{
	"Hà Nội":            {FeeVND: 40000, LeadTime: "2-4 ngày"},
	"Hồ Chí Minh":       {FeeVND: 30000, LeadTime: "1-3 ngày"},
	"Đà Nẵng":           {FeeVND: 35000, LeadTime: "2-4 ngày"},
	"Hải Phòng":         {FeeVND: 40000, LeadTime: "2-4 ngày"},
	"Cần Thơ":           {FeeVND: 35000, LeadTime: "2-4 ngày"},
	"Bắc Ninh":          {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Bắc Giang":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Hải Dương":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Hưng Yên":          {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Vĩnh Phúc":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Quảng Ninh":        {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Thái Nguyên":       {FeeVND: 50000, LeadTime: "3-5 ngày"},
	"Nam Định":          {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Ninh Bình":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Thanh Hóa":         {FeeVND: 50000, LeadTime: "3-6 ngày"},
	"Nghệ An":           {FeeVND: 50000, LeadTime: "3-6 ngày"},
	"Hà Tĩnh":           {FeeVND: 50000, LeadTime: "3-6 ngày"},
	"Quảng Bình":        {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"Quảng Trị":         {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"Thừa Thiên Huế":    {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Quảng Nam":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Quảng Ngãi":        {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"Bình Định":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Phú Yên":           {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"Khánh Hòa":         {FeeVND: 40000, LeadTime: "3-5 ngày"},
	"Lâm Đồng":          {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Đắk Lắk":           {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"Gia Lai":           {FeeVND: 55000, LeadTime: "4-7 ngày"},
	"Bình Dương":        {FeeVND: 35000, LeadTime: "2-4 ngày"},
	"Đồng Nai":          {FeeVND: 35000, LeadTime: "2-4 ngày"},
	"Bà Rịa - Vũng Tàu": {FeeVND: 40000, LeadTime: "2-4 ngày"},
	"Tây Ninh":          {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Long An":           {FeeVND: 40000, LeadTime: "2-4 ngày"},
	"Tiền Giang":        {FeeVND: 40000, LeadTime: "3-5 ngày"},
	"Bến Tre":           {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Vĩnh Long":         {FeeVND: 45000, LeadTime: "3-5 ngày"},
	"Đồng Tháp":         {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"An Giang":          {FeeVND: 50000, LeadTime: "4-6 ngày"},
	"Kiên Giang":        {FeeVND: 55000, LeadTime: "4-7 ngày"},
	"Cà Mau":            {FeeVND: 60000, LeadTime: "5-7 ngày"},
	"Sóc Trăng":         {FeeVND: 55000, LeadTime: "4-7 ngày"},
	"Bạc Liêu":          {FeeVND: 55000, LeadTime: "4-7 ngày"},
}

// Resolver turns raw province names into shipping quotes.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Fold exposes the name folding for callers that match administrative names
// rather than quote them.
func (r *Resolver) Fold(raw string) string {
	return Fold(raw)
}

// Quote returns the fee and lead time for a province. Unknown provinces
// resolve to a zero fee and LeadTimeUnknown so checkout is never blocked by an
// unrecognized name.
func (r *Resolver) Quote(province string) domain.ShippingQuote {
	if quote, ok := fees[Normalize(province)]; ok {
		return quote
	}
	return domain.ShippingQuote{FeeVND: 0, LeadTime: LeadTimeUnknown}
}
