package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boostcv/backend/pkg/db/models"
)

// InvoiceRepository manages persistence for issued invoices.
type InvoiceRepository interface {
	WithTx(tx *gorm.DB) InvoiceRepository
	// HasInvoice reports whether an invoice was already issued for the
	// payment. Payment id carries a unique constraint, so the check plus a
	// tolerated duplicate insert keeps issuance idempotent.
	HasInvoice(ctx context.Context, paymentID string) (bool, error)
	Create(ctx context.Context, invoice *models.Invoice) error
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository returns an invoice repository bound to the database.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) WithTx(tx *gorm.DB) InvoiceRepository {
	if tx == nil {
		return r
	}
	return &invoiceRepository{db: tx}
}

func (r *invoiceRepository) HasInvoice(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}
