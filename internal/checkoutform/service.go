// Package checkoutform manages the durable delivery form: field updates with
// the province/district/ward cascade, saved-address resolution and the
// required-field validation that gates submission.
package checkoutform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

var (
	// ErrAddressNotFound means the saved address id is unknown to the backend.
	ErrAddressNotFound = errors.New("saved address not found")
	// ErrAddressInactive blocks selection of an address flagged inactive.
	ErrAddressInactive = errors.New("address inactive, please update it")
)

// UnresolvedTierError reports a free-text location name that matched nothing
// in the administrative hierarchy. Selection is all-or-nothing, so the form
// stays untouched when this is returned.
type UnresolvedTierError struct {
	Tier string
	Name string
}

func (e *UnresolvedTierError) Error() string {
	return fmt.Sprintf("could not resolve %s %q, please update the address", e.Tier, e.Name)
}

// MissingFieldsError aggregates every empty required field into one message.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// FormStore is the durable storage for in-progress forms.
type FormStore interface {
	Get(ctx context.Context, customerID string) (*domain.CheckoutForm, error)
	Save(ctx context.Context, form *domain.CheckoutForm) error
	Delete(ctx context.Context, customerID string) error
}

type AddressLister interface {
	AddressesByCustomer(ctx context.Context, customerID string) ([]domain.Address, error)
}

// BoundaryLookup serves the administrative hierarchy used for both reverse
// resolution (names to codes) and address composition (codes to names).
type BoundaryLookup interface {
	Provinces(ctx context.Context) ([]domain.Province, error)
	Districts(ctx context.Context, provinceCode int) ([]domain.District, error)
	Wards(ctx context.Context, districtCode int) ([]domain.Ward, error)
}

// Normalizer folds location names for lenient matching and quotes shipping
// for resolved provinces.
type Normalizer interface {
	Fold(raw string) string
	Quote(province string) domain.ShippingQuote
}

// FormUpdate carries a partial edit; nil fields are left alone.
type FormUpdate struct {
	RecipientName *string `json:"recipient_name"`
	Phone         *string `json:"phone"`
	ProvinceCode  *string `json:"province_code"`
	DistrictCode  *string `json:"district_code"`
	WardCode      *string `json:"ward_code"`
	Street        *string `json:"street"`
}

type Service struct {
	store     FormStore
	addresses AddressLister
	boundary  BoundaryLookup
	shipping  Normalizer
	logger    *slog.Logger
}

func NewService(store FormStore, addresses AddressLister, boundary BoundaryLookup, shipping Normalizer, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		addresses: addresses,
		boundary:  boundary,
		shipping:  shipping,
		logger:    logger,
	}
}

// Get restores the persisted form, or an empty one on first entry.
func (s *Service) Get(ctx context.Context, customerID string) (*domain.CheckoutForm, error) {
	form, err := s.store.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load checkout form: %w", err)
	}
	if form == nil {
		form = &domain.CheckoutForm{CustomerID: customerID}
	}
	return form, nil
}

// Update applies a partial edit and persists the result. Selecting a new
// province clears district and ward; selecting a new district clears ward.
func (s *Service) Update(ctx context.Context, customerID string, upd FormUpdate) (*domain.CheckoutForm, error) {
	form, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if upd.RecipientName != nil {
		form.RecipientName = *upd.RecipientName
	}
	if upd.Phone != nil {
		form.Phone = *upd.Phone
	}
	if upd.ProvinceCode != nil && *upd.ProvinceCode != form.ProvinceCode {
		form.ProvinceCode = *upd.ProvinceCode
		form.DistrictCode = ""
		form.WardCode = ""
	}
	if upd.DistrictCode != nil && *upd.DistrictCode != form.DistrictCode {
		form.DistrictCode = *upd.DistrictCode
		form.WardCode = ""
	}
	if upd.WardCode != nil {
		form.WardCode = *upd.WardCode
	}
	if upd.Street != nil {
		form.Street = *upd.Street
	}

	form.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, form); err != nil {
		return nil, fmt.Errorf("persist checkout form: %w", err)
	}
	return form, nil
}

// SelectSavedAddress resolves a saved address's free-text province, district
// and ward names to administrative codes and fills the form. Resolution is
// all-or-nothing: any unresolved tier aborts without touching the form. On
// success the shipping quote for the resolved province is returned as well.
func (s *Service) SelectSavedAddress(ctx context.Context, customerID, addressID string) (*domain.CheckoutForm, domain.ShippingQuote, error) {
	var quote domain.ShippingQuote

	addresses, err := s.addresses.AddressesByCustomer(ctx, customerID)
	if err != nil {
		return nil, quote, fmt.Errorf("list saved addresses: %w", err)
	}

	var address *domain.Address
	for i := range addresses {
		if addresses[i].ID == addressID {
			address = &addresses[i]
			break
		}
	}
	if address == nil {
		return nil, quote, ErrAddressNotFound
	}
	if !address.Active {
		return nil, quote, ErrAddressInactive
	}

	provinces, err := s.boundary.Provinces(ctx)
	if err != nil {
		return nil, quote, fmt.Errorf("resolve province: %w", err)
	}
	province := matchProvince(s.shipping, provinces, address.Province)
	if province == nil {
		return nil, quote, &UnresolvedTierError{Tier: "province", Name: address.Province}
	}

	districts, err := s.boundary.Districts(ctx, province.Code)
	if err != nil {
		return nil, quote, fmt.Errorf("resolve district: %w", err)
	}
	district := matchDistrict(s.shipping, districts, address.District)
	if district == nil {
		return nil, quote, &UnresolvedTierError{Tier: "district", Name: address.District}
	}

	wards, err := s.boundary.Wards(ctx, district.Code)
	if err != nil {
		return nil, quote, fmt.Errorf("resolve ward: %w", err)
	}
	ward := matchWard(s.shipping, wards, address.Ward)
	if ward == nil {
		return nil, quote, &UnresolvedTierError{Tier: "ward", Name: address.Ward}
	}

	form, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, quote, err
	}
	form.RecipientName = address.RecipientName
	form.Phone = address.Phone
	form.Street = address.Street
	form.ProvinceCode = strconv.Itoa(province.Code)
	form.DistrictCode = strconv.Itoa(district.Code)
	form.WardCode = strconv.Itoa(ward.Code)
	form.UpdatedAt = time.Now().UTC()

	if err := s.store.Save(ctx, form); err != nil {
		return nil, quote, fmt.Errorf("persist checkout form: %w", err)
	}

	quote = s.shipping.Quote(province.Name)
	s.logger.Info("saved address selected", "customer_id", customerID, "address_id", addressID, "province", province.Name)
	return form, quote, nil
}

// ResolveNames looks up the display names behind the form's selected codes.
// Every tier must resolve; a stale or missing code is an error.
func (s *Service) ResolveNames(ctx context.Context, form *domain.CheckoutForm) (province, district, ward string, err error) {
	provinceCode, err := strconv.Atoi(form.ProvinceCode)
	if err != nil {
		return "", "", "", &UnresolvedTierError{Tier: "province", Name: form.ProvinceCode}
	}
	provinces, err := s.boundary.Provinces(ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve province name: %w", err)
	}
	for _, p := range provinces {
		if p.Code == provinceCode {
			province = p.Name
			break
		}
	}
	if province == "" {
		return "", "", "", &UnresolvedTierError{Tier: "province", Name: form.ProvinceCode}
	}

	districtCode, err := strconv.Atoi(form.DistrictCode)
	if err != nil {
		return "", "", "", &UnresolvedTierError{Tier: "district", Name: form.DistrictCode}
	}
	districts, err := s.boundary.Districts(ctx, provinceCode)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve district name: %w", err)
	}
	for _, d := range districts {
		if d.Code == districtCode {
			district = d.Name
			break
		}
	}
	if district == "" {
		return "", "", "", &UnresolvedTierError{Tier: "district", Name: form.DistrictCode}
	}

	wardCode, err := strconv.Atoi(form.WardCode)
	if err != nil {
		return "", "", "", &UnresolvedTierError{Tier: "ward", Name: form.WardCode}
	}
	wards, err := s.boundary.Wards(ctx, districtCode)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve ward name: %w", err)
	}
	for _, w := range wards {
		if w.Code == wardCode {
			ward = w.Name
			break
		}
	}
	if ward == "" {
		return "", "", "", &UnresolvedTierError{Tier: "ward", Name: form.WardCode}
	}

	return province, district, ward, nil
}

// ProvinceName returns the display name of the form's selected province, or
// "" when no province is selected or the code no longer matches.
func (s *Service) ProvinceName(ctx context.Context, form *domain.CheckoutForm) (string, error) {
	if form.ProvinceCode == "" {
		return "", nil
	}
	code, err := strconv.Atoi(form.ProvinceCode)
	if err != nil {
		return "", nil
	}
	provinces, err := s.boundary.Provinces(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve province name: %w", err)
	}
	for _, p := range provinces {
		if p.Code == code {
			return p.Name, nil
		}
	}
	return "", nil
}

// Clear deletes the persisted form after a successful order.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	return s.store.Delete(ctx, customerID)
}

// ValidateRequired checks every field submission depends on and reports all
// missing ones in a single aggregated error.
func ValidateRequired(form *domain.CheckoutForm) error {
	var missing []string
	if strings.TrimSpace(form.RecipientName) == "" {
		missing = append(missing, "recipient name")
	}
	if strings.TrimSpace(form.Phone) == "" {
		missing = append(missing, "phone")
	}
	if form.ProvinceCode == "" {
		missing = append(missing, "province")
	}
	if form.DistrictCode == "" {
		missing = append(missing, "district")
	}
	if form.WardCode == "" {
		missing = append(missing, "ward")
	}
	if strings.TrimSpace(form.Street) == "" {
		missing = append(missing, "street address")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

func matchProvince(n Normalizer, provinces []domain.Province, name string) *domain.Province {
	want := n.Fold(name)
	for i := range provinces {
		if n.Fold(provinces[i].Name) == want {
			return &provinces[i]
		}
	}
	return nil
}

func matchDistrict(n Normalizer, districts []domain.District, name string) *domain.District {
	want := n.Fold(name)
	for i := range districts {
		if n.Fold(districts[i].Name) == want {
			return &districts[i]
		}
	}
	return nil
}

func matchWard(n Normalizer, wards []domain.Ward, name string) *domain.Ward {
	want := n.Fold(name)
	for i := range wards {
		if n.Fold(wards[i].Name) == want {
			return &wards[i]
		}
	}
	return nil
}
