package leads

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/boostcv/backend/pkg/db/models"
	"github.com/boostcv/backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite")
	require.NoError(t, conn.AutoMigrate(&models.Lead{}), "failed to migrate sqlite")
	return conn
}

func TestUpsertByEmailCreatesThenUpdates(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	first := &models.Lead{
		Email:    " Maria@Example.com ",
		FullName: "Maria Silva",
		Status:   enums.LeadStatusCaptured,
	}
	require.NoError(t, repo.UpsertByEmail(ctx, first))

	subscriptionID := "sub_1"
	customerID := "cus_1"
	second := &models.Lead{
		Email:               "maria@example.com",
		FullName:            "Maria S. Silva",
		Status:              enums.LeadStatusPendingPayment,
		AsaasCustomerID:     &customerID,
		AsaasSubscriptionID: &subscriptionID,
	}
	require.NoError(t, repo.UpsertByEmail(ctx, second))

	found, err := repo.FindByEmail(ctx, "MARIA@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, first.ID, found.ID, "upsert must keep one row per email")
	require.Equal(t, "Maria S. Silva", found.FullName, "upsert should refresh mutable columns")
	require.Equal(t, enums.LeadStatusPendingPayment, found.Status)
	require.NotNil(t, found.AsaasSubscriptionID)
	require.Equal(t, "sub_1", *found.AsaasSubscriptionID)

	var count int64
	require.NoError(t, repo.(*repository).db.Model(&models.Lead{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "expected a single lead row")
}

func TestCaptureByEmailPreservesGatewayLink(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	subscriptionID := "sub_7"
	customerID := "cus_7"
	require.NoError(t, repo.UpsertByEmail(ctx, &models.Lead{
		Email:               "rita@example.com",
		FullName:            "Rita Costa",
		Status:              enums.LeadStatusActive,
		AsaasCustomerID:     &customerID,
		AsaasSubscriptionID: &subscriptionID,
	}))

	require.NoError(t, repo.CaptureByEmail(ctx, &models.Lead{
		Email:    "Rita@Example.com",
		FullName: "Rita C. Costa",
		Status:   enums.LeadStatusCaptured,
	}))

	found, err := repo.FindBySubscriptionID(ctx, "sub_7")
	require.NoError(t, err)
	require.NotNil(t, found, "capture must not unlink the subscription")
	require.Equal(t, enums.LeadStatusActive, found.Status, "capture must not downgrade status")
	require.NotNil(t, found.AsaasCustomerID)
	require.Equal(t, "cus_7", *found.AsaasCustomerID)
	require.Equal(t, "Rita C. Costa", found.FullName, "capture still refreshes contact columns")
}

func TestCaptureByEmailCreatesFreshLead(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CaptureByEmail(ctx, &models.Lead{
		Email:    "novo@example.com",
		FullName: "Novo Lead",
		Status:   enums.LeadStatusCaptured,
	}))

	found, err := repo.FindByEmail(ctx, "novo@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, enums.LeadStatusCaptured, found.Status)
	require.Nil(t, found.AsaasSubscriptionID)
}

func TestFindByGatewayReferences(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	subscriptionID := "sub_42"
	customerID := "cus_42"
	lead := &models.Lead{
		Email:               "joao@example.com",
		FullName:            "Joao Souza",
		Status:              enums.LeadStatusPendingPayment,
		AsaasCustomerID:     &customerID,
		AsaasSubscriptionID: &subscriptionID,
	}
	require.NoError(t, repo.UpsertByEmail(ctx, lead))

	bySub, err := repo.FindBySubscriptionID(ctx, "sub_42")
	require.NoError(t, err)
	require.NotNil(t, bySub)

	byCus, err := repo.FindByCustomerID(ctx, "cus_42")
	require.NoError(t, err)
	require.NotNil(t, byCus)

	missing, err := repo.FindBySubscriptionID(ctx, "sub_unknown")
	require.NoError(t, err)
	require.Nil(t, missing, "unknown subscription should return nil")
}

func TestUpdateMovesLeadToActive(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	lead := &models.Lead{
		Email:    "ana@example.com",
		FullName: "Ana Lima",
		Status:   enums.LeadStatusPendingPayment,
	}
	require.NoError(t, repo.UpsertByEmail(ctx, lead))

	lead.Status = enums.LeadStatusActive
	require.NoError(t, repo.Update(ctx, lead))

	found, err := repo.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, enums.LeadStatusActive, found.Status)
}
