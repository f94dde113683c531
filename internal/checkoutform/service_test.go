package checkoutform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
	"github.com/vhoangnguyen/checkoutflow/internal/shipping"
)

type fakeStore struct {
	forms   map[string]*domain.CheckoutForm
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{forms: make(map[string]*domain.CheckoutForm)}
}

func (f *fakeStore) Get(_ context.Context, customerID string) (*domain.CheckoutForm, error) {
	form, ok := f.forms[customerID]
	if !ok {
		return nil, nil
	}
	out := *form
	return &out, nil
}

func (f *fakeStore) Save(_ context.Context, form *domain.CheckoutForm) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	out := *form
	f.forms[form.CustomerID] = &out
	return nil
}

func (f *fakeStore) Delete(_ context.Context, customerID string) error {
	delete(f.forms, customerID)
	return nil
}

type fakeAddresses struct {
	addresses []domain.Address
	err       error
}

func (f *fakeAddresses) AddressesByCustomer(_ context.Context, _ string) ([]domain.Address, error) {
	return f.addresses, f.err
}

type fakeBoundary struct {
	provinces []domain.Province
	districts map[int][]domain.District
	wards     map[int][]domain.Ward
}

func (f *fakeBoundary) Provinces(_ context.Context) ([]domain.Province, error) {
	return f.provinces, nil
}

func (f *fakeBoundary) Districts(_ context.Context, provinceCode int) ([]domain.District, error) {
	return f.districts[provinceCode], nil
}

func (f *fakeBoundary) Wards(_ context.Context, districtCode int) ([]domain.Ward, error) {
	return f.wards[districtCode], nil
}

func testBoundary() *fakeBoundary {
	return &fakeBoundary{
		provinces: []domain.Province{
			{Code: 1, Name: "Thành phố Hà Nội"},
			{Code: 79, Name: "Thành phố Hồ Chí Minh"},
		},
		districts: map[int][]domain.District{
			1:  {{Code: 2, Name: "Quận Hoàn Kiếm"}},
			79: {{Code: 785, Name: "Huyện Hóc Môn"}},
		},
		wards: map[int][]domain.Ward{
			2:   {{Code: 70, Name: "Phường Hàng Trống"}},
			785: {{Code: 27496, Name: "Xã Xuân Thới Thượng"}},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *fakeStore, addresses *fakeAddresses) *Service {
	return NewService(store, addresses, testBoundary(), shipping.NewResolver(), testLogger())
}

func str(s string) *string { return &s }

func TestService_Get(t *testing.T) {
	t.Run("first entry returns an empty form", func(t *testing.T) {
		service := newTestService(newFakeStore(), &fakeAddresses{})

		form, err := service.Get(context.Background(), "cust-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if form.CustomerID != "cust-1" {
			t.Errorf("unexpected customer id: %s", form.CustomerID)
		}
		if form.RecipientName != "" || form.ProvinceCode != "" {
			t.Errorf("expected an empty form, got %+v", form)
		}
	})
}

func TestService_Update(t *testing.T) {
	t.Run("persists partial edits", func(t *testing.T) {
		store := newFakeStore()
		service := newTestService(store, &fakeAddresses{})

		form, err := service.Update(context.Background(), "cust-1", FormUpdate{
			RecipientName: str("Nguyễn Văn A"),
			Phone:         str("0912345678"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if form.RecipientName != "Nguyễn Văn A" || form.Phone != "0912345678" {
			t.Errorf("unexpected form: %+v", form)
		}
		if store.saves != 1 {
			t.Errorf("expected one save, got %d", store.saves)
		}

		reloaded, _ := service.Get(context.Background(), "cust-1")
		if reloaded.RecipientName != "Nguyễn Văn A" {
			t.Errorf("edit not persisted: %+v", reloaded)
		}
	})

	t.Run("changing province clears district and ward", func(t *testing.T) {
		store := newFakeStore()
		service := newTestService(store, &fakeAddresses{})

		_, _ = service.Update(context.Background(), "cust-1", FormUpdate{
			ProvinceCode: str("1"),
			DistrictCode: str("2"),
		})
		_, _ = service.Update(context.Background(), "cust-1", FormUpdate{WardCode: str("70")})

		form, err := service.Update(context.Background(), "cust-1", FormUpdate{ProvinceCode: str("79")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if form.ProvinceCode != "79" {
			t.Errorf("unexpected province: %s", form.ProvinceCode)
		}
		if form.DistrictCode != "" || form.WardCode != "" {
			t.Errorf("district and ward must be cleared, got %q %q", form.DistrictCode, form.WardCode)
		}
	})

	t.Run("changing district clears ward only", func(t *testing.T) {
		store := newFakeStore()
		service := newTestService(store, &fakeAddresses{})

		_, _ = service.Update(context.Background(), "cust-1", FormUpdate{ProvinceCode: str("1")})
		_, _ = service.Update(context.Background(), "cust-1", FormUpdate{DistrictCode: str("2"), WardCode: str("70")})

		form, err := service.Update(context.Background(), "cust-1", FormUpdate{DistrictCode: str("3")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if form.ProvinceCode != "1" {
			t.Errorf("province must survive, got %q", form.ProvinceCode)
		}
		if form.WardCode != "" {
			t.Errorf("ward must be cleared, got %q", form.WardCode)
		}
	})

	t.Run("re-selecting the same province keeps district and ward", func(t *testing.T) {
		store := newFakeStore()
		service := newTestService(store, &fakeAddresses{})

		_, _ = service.Update(context.Background(), "cust-1", FormUpdate{ProvinceCode: str("1")})
		_, _ = service.Update(context.Background(), "cust-1", FormUpdate{DistrictCode: str("2"), WardCode: str("70")})

		form, _ := service.Update(context.Background(), "cust-1", FormUpdate{ProvinceCode: str("1")})
		if form.DistrictCode != "2" || form.WardCode != "70" {
			t.Errorf("selection must survive, got %q %q", form.DistrictCode, form.WardCode)
		}
	})
}

func TestService_SelectSavedAddress(t *testing.T) {
	savedAddress := domain.Address{
		ID:            "addr-1",
		RecipientName: "Trần Thị B",
		Phone:         "0987654321",
		Street:        "12 Hàng Gai",
		Ward:          "Hàng Trống",
		District:      "Hoàn Kiếm",
		Province:      "Hà Nội",
		Active:        true,
	}

	t.Run("resolves free-text names to codes and quotes shipping", func(t *testing.T) {
		store := newFakeStore()
		service := newTestService(store, &fakeAddresses{addresses: []domain.Address{savedAddress}})

		form, quote, err := service.SelectSavedAddress(context.Background(), "cust-1", "addr-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if form.ProvinceCode != "1" || form.DistrictCode != "2" || form.WardCode != "70" {
			t.Errorf("unexpected codes: %q %q %q", form.ProvinceCode, form.DistrictCode, form.WardCode)
		}
		if form.RecipientName != "Trần Thị B" || form.Street != "12 Hàng Gai" {
			t.Errorf("unexpected form: %+v", form)
		}
		if quote.FeeVND != 40000 {
			t.Errorf("expected fee 40000, got %d", quote.FeeVND)
		}
	})

	t.Run("unknown address id", func(t *testing.T) {
		service := newTestService(newFakeStore(), &fakeAddresses{addresses: []domain.Address{savedAddress}})

		_, _, err := service.SelectSavedAddress(context.Background(), "cust-1", "ghost")
		if !errors.Is(err, ErrAddressNotFound) {
			t.Errorf("expected ErrAddressNotFound, got %v", err)
		}
	})

	t.Run("inactive address is refused", func(t *testing.T) {
		inactive := savedAddress
		inactive.Active = false
		service := newTestService(newFakeStore(), &fakeAddresses{addresses: []domain.Address{inactive}})

		_, _, err := service.SelectSavedAddress(context.Background(), "cust-1", "addr-1")
		if !errors.Is(err, ErrAddressInactive) {
			t.Errorf("expected ErrAddressInactive, got %v", err)
		}
	})

	t.Run("unresolved district leaves the form untouched", func(t *testing.T) {
		broken := savedAddress
		broken.District = "Nowhere"
		store := newFakeStore()
		store.forms["cust-1"] = &domain.CheckoutForm{CustomerID: "cust-1", RecipientName: "Nguyễn Văn A", ProvinceCode: "79"}
		service := newTestService(store, &fakeAddresses{addresses: []domain.Address{broken}})

		_, _, err := service.SelectSavedAddress(context.Background(), "cust-1", "addr-1")

		var unresolved *UnresolvedTierError
		if !errors.As(err, &unresolved) {
			t.Fatalf("expected UnresolvedTierError, got %v", err)
		}
		if unresolved.Tier != "district" {
			t.Errorf("expected district tier, got %s", unresolved.Tier)
		}

		form, _ := service.Get(context.Background(), "cust-1")
		if form.RecipientName != "Nguyễn Văn A" || form.ProvinceCode != "79" {
			t.Errorf("form must be untouched, got %+v", form)
		}
		if store.saves != 0 {
			t.Errorf("expected no save, got %d", store.saves)
		}
	})
}

func TestService_ResolveNames(t *testing.T) {
	t.Run("resolves every tier", func(t *testing.T) {
		service := newTestService(newFakeStore(), &fakeAddresses{})
		form := &domain.CheckoutForm{ProvinceCode: "1", DistrictCode: "2", WardCode: "70"}

		province, district, ward, err := service.ResolveNames(context.Background(), form)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if province != "Thành phố Hà Nội" || district != "Quận Hoàn Kiếm" || ward != "Phường Hàng Trống" {
			t.Errorf("unexpected names: %q %q %q", province, district, ward)
		}
	})

	t.Run("stale ward code fails", func(t *testing.T) {
		service := newTestService(newFakeStore(), &fakeAddresses{})
		form := &domain.CheckoutForm{ProvinceCode: "1", DistrictCode: "2", WardCode: "99999"}

		_, _, _, err := service.ResolveNames(context.Background(), form)

		var unresolved *UnresolvedTierError
		if !errors.As(err, &unresolved) {
			t.Fatalf("expected UnresolvedTierError, got %v", err)
		}
		if unresolved.Tier != "ward" {
			t.Errorf("expected ward tier, got %s", unresolved.Tier)
		}
	})
}

func TestService_ProvinceName(t *testing.T) {
	service := newTestService(newFakeStore(), &fakeAddresses{})

	t.Run("resolves a selected province", func(t *testing.T) {
		name, err := service.ProvinceName(context.Background(), &domain.CheckoutForm{ProvinceCode: "79"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Thành phố Hồ Chí Minh" {
			t.Errorf("unexpected name: %q", name)
		}
	})

	t.Run("empty selection resolves to nothing", func(t *testing.T) {
		name, err := service.ProvinceName(context.Background(), &domain.CheckoutForm{})
		if err != nil || name != "" {
			t.Errorf("expected empty name, got %q (%v)", name, err)
		}
	})
}

func TestValidateRequired(t *testing.T) {
	t.Run("complete form passes", func(t *testing.T) {
		form := &domain.CheckoutForm{
			RecipientName: "Nguyễn Văn A",
			Phone:         "0912345678",
			ProvinceCode:  "1",
			DistrictCode:  "2",
			WardCode:      "70",
			Street:        "12 Hàng Gai",
		}
		if err := ValidateRequired(form); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("reports every missing field at once", func(t *testing.T) {
		err := ValidateRequired(&domain.CheckoutForm{Phone: "0912345678", Street: "12 Hàng Gai"})

		var missing *MissingFieldsError
		if !errors.As(err, &missing) {
			t.Fatalf("expected MissingFieldsError, got %v", err)
		}
		if len(missing.Fields) != 4 {
			t.Errorf("expected 4 missing fields, got %v", missing.Fields)
		}
	})

	t.Run("whitespace-only values count as missing", func(t *testing.T) {
		err := ValidateRequired(&domain.CheckoutForm{RecipientName: "   "})
		var missing *MissingFieldsError
		if !errors.As(err, &missing) {
			t.Fatalf("expected MissingFieldsError, got %v", err)
		}
	})
}
