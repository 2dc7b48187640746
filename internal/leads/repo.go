package leads

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/boostcv/backend/pkg/db/models"
)

// Repository manages persistence for captured leads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CaptureByEmail(ctx context.Context, lead *models.Lead) error
	UpsertByEmail(ctx context.Context, lead *models.Lead) error
	FindByEmail(ctx context.Context, email string) (*models.Lead, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Lead, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lead repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CaptureByEmail inserts the lead or refreshes only the contact columns of
// the existing row keyed by email. Lifecycle status and gateway references
// are never written on conflict, so a retried form submission cannot unlink
// or downgrade a lead that already points at a live subscription.
func (r *repository) CaptureByEmail(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name",
			"phone",
			"resume_data",
			"updated_at",
		}),
	}).Create(lead).Error
}

// UpsertByEmail inserts the lead or refreshes the mutable columns of the
// existing row keyed by email, gateway references and status included.
// Callers own the lifecycle rules.
func (r *repository) UpsertByEmail(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name",
			"phone",
			"resume_data",
			"status",
			"asaas_customer_id",
			"asaas_subscription_id",
			"updated_at",
		}),
	}).Create(lead).Error
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *repository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Lead, error) {
	return r.findOne(ctx, "asaas_subscription_id = ?", subscriptionID)
}

func (r *repository) FindByCustomerID(ctx context.Context, customerID string) (*models.Lead, error) {
	return r.findOne(ctx, "asaas_customer_id = ?", customerID)
}

func (r *repository) Update(ctx context.Context, lead *models.Lead) error {
	lead.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(lead).Error
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).Where(query, arg).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}
