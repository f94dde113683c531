package checkoutform

import (
	"context"
	"database/sql"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

// Repository persists in-progress checkout forms so a navigation round-trip
// never loses input. One row per customer; the row is deleted only after a
// successful order placement.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, customerID string) (*domain.CheckoutForm, error) {
	form := &domain.CheckoutForm{}

	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, recipient_name, phone, province_code, district_code, ward_code, street, updated_at
		FROM checkout_forms
		WHERE customer_id = $1
	`, customerID).Scan(
		&form.CustomerID, &form.RecipientName, &form.Phone,
		&form.ProvinceCode, &form.DistrictCode, &form.WardCode,
		&form.Street, &form.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return form, nil
}

func (r *Repository) Save(ctx context.Context, form *domain.CheckoutForm) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_forms (customer_id, recipient_name, phone, province_code, district_code, ward_code, street, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (customer_id) DO UPDATE SET
			recipient_name = EXCLUDED.recipient_name,
			phone = EXCLUDED.phone,
			province_code = EXCLUDED.province_code,
			district_code = EXCLUDED.district_code,
			ward_code = EXCLUDED.ward_code,
			street = EXCLUDED.street,
			updated_at = EXCLUDED.updated_at
	`, form.CustomerID, form.RecipientName, form.Phone,
		form.ProvinceCode, form.DistrictCode, form.WardCode,
		form.Street, form.UpdatedAt,
	)
	return err
}

func (r *Repository) Delete(ctx context.Context, customerID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM checkout_forms WHERE customer_id = $1
	`, customerID)
	return err
}
