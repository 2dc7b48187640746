package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boostcv/backend/internal/leads"
	"github.com/boostcv/backend/pkg/asaas"
	"github.com/boostcv/backend/pkg/config"
	"github.com/boostcv/backend/pkg/cpf"
	"github.com/boostcv/backend/pkg/db"
	"github.com/boostcv/backend/pkg/db/models"
	"github.com/boostcv/backend/pkg/enums"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

// Gateway is the payment gateway surface the orchestrator depends on.
type Gateway interface {
	FindOrCreateCustomer(ctx context.Context, params asaas.CustomerParams) (string, error)
	CreatePixCharge(ctx context.Context, params asaas.ChargeCreateParams) (*asaas.PixCharge, error)
	CreateSubscription(ctx context.Context, params asaas.SubscriptionCreateParams) (string, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*asaas.PaymentStatus, error)
}

// ChargeInput is a one-off PIX charge request for the clean resume artifact.
type ChargeInput struct {
	FullName string
	Email    string
	CPF      string
}

// SubscriptionInput captures the lead fields accompanying a subscription.
type SubscriptionInput struct {
	FullName   string
	Email      string
	Phone      string
	ResumeData json.RawMessage
}

// SubscriptionResult carries the gateway references created for a lead.
type SubscriptionResult struct {
	SubscriptionID string
	CustomerID     string
}

// StatusResult is the reconciled view of a payment returned to pollers.
type StatusResult struct {
	ID        string
	Status    enums.GatewayPaymentStatus
	Confirmed bool
}

// ServiceParams groups dependencies for the payment orchestrator.
type ServiceParams struct {
	Gateway  Gateway
	Leads    leads.Repository
	Invoices InvoiceRepository
	Billing  config.BillingConfig
	Logger   *logger.Logger
}

// Service orchestrates charge and subscription creation against the gateway
// and reconciles invoices on confirmation polls.
type Service struct {
	gateway  Gateway
	leads    leads.Repository
	invoices InvoiceRepository
	billing  config.BillingConfig
	logger   *logger.Logger
}

// NewService wires the payment orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Leads == nil {
		return nil, fmt.Errorf("leads repository required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	return &Service{
		gateway:  params.Gateway,
		leads:    params.Leads,
		invoices: params.Invoices,
		billing:  params.Billing,
		logger:   params.Logger,
	}, nil
}

// CreatePixCharge validates the buyer's CPF, resolves the gateway customer by
// tax id, and creates an immediate PIX charge for the resume price.
func (s *Service) CreatePixCharge(ctx context.Context, input ChargeInput) (*asaas.PixCharge, error) {
	document := cpf.Clean(input.CPF)
	if !cpf.IsValid(document) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid CPF").
			WithDetails(map[string]any{"field": "cpf"})
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, asaas.CustomerParams{
		Name:     input.FullName,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		CpfCnpj:  document,
		SearchBy: asaas.SearchByCpfCnpj,
	})
	if err != nil {
		return nil, err
	}

	charge, err := s.gateway.CreatePixCharge(ctx, asaas.ChargeCreateParams{
		CustomerID: customerID,
		Amount:     centsToDecimal(s.billing.ResumePriceCents),
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "pix charge created", map[string]any{"payment_id": charge.ID})
	return charge, nil
}

// CreateSubscription records the lead before touching the gateway and only
// attaches gateway ids and the pending_payment status after the subscription
// exists. The capture step never writes status or gateway columns on an
// existing row, so a gateway failure leaves a previously linked lead exactly
// as it was and a new lead plain captured.
func (s *Service) CreateSubscription(ctx context.Context, input SubscriptionInput) (*SubscriptionResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}

	lead := &models.Lead{
		Email:      email,
		FullName:   input.FullName,
		ResumeData: input.ResumeData,
		Status:     enums.LeadStatusCaptured,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		lead.Phone = &phone
	}
	if err := s.leads.CaptureByEmail(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture lead")
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, asaas.CustomerParams{
		Name:     input.FullName,
		Email:    email,
		SearchBy: asaas.SearchByEmail,
	})
	if err != nil {
		return nil, err
	}

	cycle, parseErr := enums.ParseBillingCycle(s.billing.SubscriptionCycle)
	if parseErr != nil {
		cycle = enums.BillingCycleYearly
	}

	subscriptionID, err := s.gateway.CreateSubscription(ctx, asaas.SubscriptionCreateParams{
		CustomerID: customerID,
		Amount:     centsToDecimal(s.billing.SubscriptionPriceCents),
		Cycle:      cycle,
	})
	if err != nil {
		return nil, err
	}

	lead.Status = enums.LeadStatusPendingPayment
	lead.AsaasCustomerID = &customerID
	lead.AsaasSubscriptionID = &subscriptionID
	if err := s.leads.UpsertByEmail(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link lead to subscription")
	}

	s.info(ctx, "subscription created", map[string]any{
		"subscription_id": subscriptionID,
		"customer_id":     customerID,
	})
	return &SubscriptionResult{SubscriptionID: subscriptionID, CustomerID: customerID}, nil
}

// GetStatus polls the gateway and, on the first confirmed sighting, issues
// the invoice record for the payment. Issuance is idempotent: an existing
// invoice short-circuits, and a duplicate insert lost to a concurrent poll is
// swallowed.
func (s *Service) GetStatus(ctx context.Context, paymentID string) (*StatusResult, error) {
	status, err := s.gateway.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if status.Confirmed {
		if err := s.ensureInvoice(ctx, status.ID); err != nil {
			// The caller asked for the payment status and got it; invoice
			// bookkeeping failures are logged and retried on the next poll.
			s.warnErr(ctx, "invoice issuance failed", err, map[string]any{"payment_id": status.ID})
		}
	}

	return &StatusResult{
		ID:        status.ID,
		Status:    status.Status,
		Confirmed: status.Confirmed,
	}, nil
}

func (s *Service) ensureInvoice(ctx context.Context, paymentID string) error {
	exists, err := s.invoices.HasInvoice(ctx, paymentID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	invoice := &models.Invoice{
		PaymentID:   paymentID,
		AmountCents: s.billing.ResumePriceCents,
		IssuedAt:    time.Now(),
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return err
	}

	s.info(ctx, "invoice issued", map[string]any{"payment_id": paymentID})
	return nil
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

func (s *Service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(s.logger.WithFields(ctx, fields), msg)
}

func (s *Service) warnErr(ctx context.Context, msg string, err error, fields map[string]any) {
	if s.logger == nil {
		return
	}
	fields["error"] = err.Error()
	s.logger.Warn(s.logger.WithFields(ctx, fields), msg)
}
