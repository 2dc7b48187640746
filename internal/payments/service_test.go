package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/boostcv/backend/internal/leads"
	"github.com/boostcv/backend/pkg/asaas"
	"github.com/boostcv/backend/pkg/config"
	"github.com/boostcv/backend/pkg/db/models"
	"github.com/boostcv/backend/pkg/enums"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
)

type stubGateway struct {
	customerID     string
	customerErr    error
	customerParams []asaas.CustomerParams

	charge    *asaas.PixCharge
	chargeErr error
	charges   []asaas.ChargeCreateParams

	subscriptionID  string
	subscriptionErr error
	subscriptions   []asaas.SubscriptionCreateParams

	status    *asaas.PaymentStatus
	statusErr error
}

func (g *stubGateway) FindOrCreateCustomer(_ context.Context, params asaas.CustomerParams) (string, error) {
	g.customerParams = append(g.customerParams, params)
	return g.customerID, g.customerErr
}

func (g *stubGateway) CreatePixCharge(_ context.Context, params asaas.ChargeCreateParams) (*asaas.PixCharge, error) {
	g.charges = append(g.charges, params)
	return g.charge, g.chargeErr
}

func (g *stubGateway) CreateSubscription(_ context.Context, params asaas.SubscriptionCreateParams) (string, error) {
	g.subscriptions = append(g.subscriptions, params)
	return g.subscriptionID, g.subscriptionErr
}

func (g *stubGateway) GetPaymentStatus(context.Context, string) (*asaas.PaymentStatus, error) {
	return g.status, g.statusErr
}

type leadsRecorder struct {
	captures []models.Lead
	upserts  []models.Lead
	err      error
}

func (r *leadsRecorder) WithTx(*gorm.DB) leads.Repository { return r }

func (r *leadsRecorder) CaptureByEmail(_ context.Context, lead *models.Lead) error {
	if r.err != nil {
		return r.err
	}
	r.captures = append(r.captures, *lead)
	return nil
}

func (r *leadsRecorder) UpsertByEmail(_ context.Context, lead *models.Lead) error {
	if r.err != nil {
		return r.err
	}
	r.upserts = append(r.upserts, *lead)
	return nil
}

func (r *leadsRecorder) FindByEmail(context.Context, string) (*models.Lead, error) {
	return nil, nil
}

func (r *leadsRecorder) FindBySubscriptionID(context.Context, string) (*models.Lead, error) {
	return nil, nil
}

func (r *leadsRecorder) FindByCustomerID(context.Context, string) (*models.Lead, error) {
	return nil, nil
}

func (r *leadsRecorder) Update(context.Context, *models.Lead) error { return nil }

type stubInvoicesRepo struct {
	exists  bool
	hasErr  error
	created []models.Invoice
	createE error
}

func (r *stubInvoicesRepo) WithTx(*gorm.DB) InvoiceRepository { return r }

func (r *stubInvoicesRepo) HasInvoice(context.Context, string) (bool, error) {
	return r.exists, r.hasErr
}

func (r *stubInvoicesRepo) Create(_ context.Context, invoice *models.Invoice) error {
	if r.createE != nil {
		return r.createE
	}
	r.created = append(r.created, *invoice)
	return nil
}

func billingDefaults() config.BillingConfig {
	return config.BillingConfig{
		ResumePriceCents:       990,
		SubscriptionPriceCents: 5990,
		SubscriptionCycle:      "YEARLY",
	}
}

func TestCreatePixChargeRejectsInvalidCPF(t *testing.T) {
	gateway := &stubGateway{}
	svc := newTestService(t, gateway, &leadsRecorder{}, &stubInvoicesRepo{})

	_, err := svc.CreatePixCharge(context.Background(), ChargeInput{
		FullName: "Maria Silva",
		Email:    "maria@example.com",
		CPF:      "111.111.111-11",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(gateway.customerParams) != 0 {
		t.Fatalf("gateway should not be called for an invalid CPF")
	}
}

func TestCreatePixChargeUsesCpfDedupAndResumePrice(t *testing.T) {
	gateway := &stubGateway{
		customerID: "cus_123",
		charge:     &asaas.PixCharge{ID: "pay_123", QRPayload: "pix-copy-paste"},
	}
	svc := newTestService(t, gateway, &leadsRecorder{}, &stubInvoicesRepo{})

	charge, err := svc.CreatePixCharge(context.Background(), ChargeInput{
		FullName: "Maria Silva",
		Email:    "Maria@Example.com",
		CPF:      "529.982.247-25",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charge.ID != "pay_123" {
		t.Fatalf("unexpected charge id %s", charge.ID)
	}

	if len(gateway.customerParams) != 1 {
		t.Fatalf("expected one customer lookup")
	}
	params := gateway.customerParams[0]
	if params.SearchBy != asaas.SearchByCpfCnpj {
		t.Fatalf("charge path must dedup by cpfCnpj, got %s", params.SearchBy)
	}
	if params.CpfCnpj != "52998224725" {
		t.Fatalf("expected cleaned CPF digits, got %s", params.CpfCnpj)
	}
	if params.Email != "maria@example.com" {
		t.Fatalf("email should be normalized, got %s", params.Email)
	}

	if len(gateway.charges) != 1 {
		t.Fatalf("expected one charge request")
	}
	if got := gateway.charges[0].Amount.StringFixed(2); got != "9.90" {
		t.Fatalf("expected resume price 9.90, got %s", got)
	}
}

func TestCreateSubscriptionLinksLeadOnlyAfterGatewaySuccess(t *testing.T) {
	gateway := &stubGateway{customerID: "cus_9", subscriptionID: "sub_9"}
	recorder := &leadsRecorder{}
	svc := newTestService(t, gateway, recorder, &stubInvoicesRepo{})

	result, err := svc.CreateSubscription(context.Background(), SubscriptionInput{
		FullName: "Joao Souza",
		Email:    "JOAO@example.com",
		Phone:    "+55 11 99999-0000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SubscriptionID != "sub_9" || result.CustomerID != "cus_9" {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(recorder.captures) != 1 || len(recorder.upserts) != 1 {
		t.Fatalf("expected one capture then one link, got %d captures %d upserts",
			len(recorder.captures), len(recorder.upserts))
	}
	captured := recorder.captures[0]
	if captured.Status != enums.LeadStatusCaptured || captured.AsaasSubscriptionID != nil {
		t.Fatalf("capture must not carry gateway ids: %+v", captured)
	}
	linked := recorder.upserts[0]
	if linked.Status != enums.LeadStatusPendingPayment {
		t.Fatalf("linked lead should be pending_payment, got %s", linked.Status)
	}
	if linked.AsaasSubscriptionID == nil || *linked.AsaasSubscriptionID != "sub_9" {
		t.Fatalf("linked lead missing subscription id")
	}
	if linked.Email != "joao@example.com" {
		t.Fatalf("email should be normalized, got %s", linked.Email)
	}

	if len(gateway.customerParams) != 1 || gateway.customerParams[0].SearchBy != asaas.SearchByEmail {
		t.Fatalf("subscription path must dedup by email")
	}
}

func TestCreateSubscriptionGatewayFailureLeavesLeadCaptured(t *testing.T) {
	gateway := &stubGateway{
		customerID:      "cus_9",
		subscriptionErr: pkgerrors.New(pkgerrors.CodeGateway, "subscription rejected"),
	}
	recorder := &leadsRecorder{}
	svc := newTestService(t, gateway, recorder, &stubInvoicesRepo{})

	_, err := svc.CreateSubscription(context.Background(), SubscriptionInput{
		FullName: "Joao Souza",
		Email:    "joao@example.com",
	})
	if err == nil {
		t.Fatalf("expected gateway error")
	}

	if len(recorder.upserts) != 0 {
		t.Fatalf("failed subscription must not link the lead, got %d upserts", len(recorder.upserts))
	}
	if len(recorder.captures) != 1 || recorder.captures[0].Status != enums.LeadStatusCaptured {
		t.Fatalf("lead should only be captured, got %+v", recorder.captures)
	}
}

func TestCreateSubscriptionGatewayFailurePreservesExistingLink(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Lead{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	repo := leads.NewRepository(conn)
	ctx := context.Background()

	subscriptionID := "sub_1"
	customerID := "cus_1"
	if err := repo.UpsertByEmail(ctx, &models.Lead{
		Email:               "maria@example.com",
		FullName:            "Maria Silva",
		Status:              enums.LeadStatusActive,
		AsaasCustomerID:     &customerID,
		AsaasSubscriptionID: &subscriptionID,
	}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	gateway := &stubGateway{
		customerID:      "cus_2",
		subscriptionErr: pkgerrors.New(pkgerrors.CodeGateway, "subscription rejected"),
	}
	svc := newTestService(t, gateway, repo, &stubInvoicesRepo{})

	if _, err := svc.CreateSubscription(ctx, SubscriptionInput{
		FullName: "Maria S. Silva",
		Email:    "maria@example.com",
	}); err == nil {
		t.Fatalf("expected gateway error")
	}

	linked, err := repo.FindBySubscriptionID(ctx, "sub_1")
	if err != nil {
		t.Fatalf("lookup by subscription: %v", err)
	}
	if linked == nil {
		t.Fatalf("failed attempt must not unlink the existing subscription")
	}
	if linked.Status != enums.LeadStatusActive {
		t.Fatalf("failed attempt must not downgrade the lead, got %s", linked.Status)
	}
	if linked.AsaasCustomerID == nil || *linked.AsaasCustomerID != "cus_1" {
		t.Fatalf("customer link should be preserved")
	}
	if linked.FullName != "Maria S. Silva" {
		t.Fatalf("capture should still refresh contact columns, got %q", linked.FullName)
	}
}

func TestGetStatusIssuesInvoiceOnceOnConfirmation(t *testing.T) {
	gateway := &stubGateway{
		status: &asaas.PaymentStatus{
			ID:        "pay_1",
			Status:    enums.GatewayPaymentStatusConfirmed,
			Confirmed: true,
		},
	}
	invoices := &stubInvoicesRepo{}
	svc := newTestService(t, gateway, &leadsRecorder{}, invoices)

	result, err := svc.GetStatus(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Confirmed {
		t.Fatalf("expected confirmed result")
	}
	if len(invoices.created) != 1 || invoices.created[0].PaymentID != "pay_1" {
		t.Fatalf("expected one invoice for pay_1, got %+v", invoices.created)
	}

	invoices.exists = true
	if _, err := svc.GetStatus(context.Background(), "pay_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(invoices.created) != 1 {
		t.Fatalf("repeat poll must not issue a second invoice")
	}
}

func TestGetStatusSkipsInvoiceWhilePending(t *testing.T) {
	gateway := &stubGateway{
		status: &asaas.PaymentStatus{
			ID:     "pay_2",
			Status: enums.GatewayPaymentStatusPending,
		},
	}
	invoices := &stubInvoicesRepo{}
	svc := newTestService(t, gateway, &leadsRecorder{}, invoices)

	result, err := svc.GetStatus(context.Background(), "pay_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confirmed {
		t.Fatalf("pending payment should not be confirmed")
	}
	if len(invoices.created) != 0 {
		t.Fatalf("pending payment must not issue an invoice")
	}
}

func TestGetStatusSurvivesInvoiceFailure(t *testing.T) {
	gateway := &stubGateway{
		status: &asaas.PaymentStatus{
			ID:        "pay_3",
			Status:    enums.GatewayPaymentStatusReceived,
			Confirmed: true,
		},
	}
	invoices := &stubInvoicesRepo{createE: errors.New("insert failed")}
	svc := newTestService(t, gateway, &leadsRecorder{}, invoices)

	result, err := svc.GetStatus(context.Background(), "pay_3")
	if err != nil {
		t.Fatalf("status poll should not fail on invoice bookkeeping: %v", err)
	}
	if !result.Confirmed {
		t.Fatalf("expected confirmed result")
	}
}

func newTestService(t *testing.T, gateway Gateway, leadsRepo leads.Repository, invoices InvoiceRepository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Gateway:  gateway,
		Leads:    leadsRepo,
		Invoices: invoices,
		Billing:  billingDefaults(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}
