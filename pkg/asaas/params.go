package asaas

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boostcv/backend/pkg/enums"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
)

// SearchKey selects which field dedups customers at the gateway.
//
// The one-off charge path searches by cpfCnpj while the subscription path
// searches by email. These are different dedup keys against the same gateway
// customer set and can produce duplicate customers for one person; the
// gateway does not document which key is canonical, so both call sites keep
// their historical behavior.
type SearchKey string

const (
	SearchByCpfCnpj SearchKey = "cpfCnpj"
	SearchByEmail   SearchKey = "email"
)

// CustomerParams describes a find-or-create customer request.
type CustomerParams struct {
	Name     string
	Email    string
	CpfCnpj  string
	SearchBy SearchKey
}

func (p CustomerParams) validate() error {
	switch p.SearchBy {
	case SearchByEmail:
		if strings.TrimSpace(p.Email) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
		}
	case SearchByCpfCnpj, "":
		if strings.TrimSpace(p.CpfCnpj) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer cpf is required")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown customer search key")
	}
	if strings.TrimSpace(p.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	return nil
}

func (p CustomerParams) toCreateRequest() map[string]any {
	req := map[string]any{"name": p.Name}
	if p.Email != "" {
		req["email"] = p.Email
	}
	if p.CpfCnpj != "" {
		req["cpfCnpj"] = p.CpfCnpj
	}
	return req
}

// ChargeCreateParams describes an immediate PIX charge.
type ChargeCreateParams struct {
	CustomerID string
	Amount     decimal.Decimal

	now func() time.Time
}

func (p ChargeCreateParams) validate() error {
	if strings.TrimSpace(p.CustomerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !p.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	return nil
}

func (p ChargeCreateParams) toRequest() map[string]any {
	clock := p.now
	if clock == nil {
		clock = time.Now
	}
	return map[string]any{
		"customer":    p.CustomerID,
		"billingType": "PIX",
		"value":       p.Amount.InexactFloat64(),
		"dueDate":     clock().Format("2006-01-02"),
	}
}

// SubscriptionCreateParams describes a recurring charge schedule.
type SubscriptionCreateParams struct {
	CustomerID string
	Amount     decimal.Decimal
	Cycle      enums.BillingCycle

	now func() time.Time
}

func (p SubscriptionCreateParams) validate() error {
	if strings.TrimSpace(p.CustomerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !p.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription amount must be positive")
	}
	if !p.Cycle.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}
	return nil
}

func (p SubscriptionCreateParams) toRequest() map[string]any {
	clock := p.now
	if clock == nil {
		clock = time.Now
	}
	return map[string]any{
		"customer":    p.CustomerID,
		"billingType": "PIX",
		"value":       p.Amount.InexactFloat64(),
		"cycle":       p.Cycle.String(),
		"nextDueDate": clock().Add(24 * time.Hour).Format("2006-01-02"),
	}
}

// PixCharge is the created charge plus its scannable representation.
type PixCharge struct {
	ID             string
	QREncodedImage string
	QRPayload      string
	ExpirationDate string
}

// PaymentStatus is the polled gateway status for a payment.
type PaymentStatus struct {
	ID        string
	Status    enums.GatewayPaymentStatus
	Confirmed bool
}

type customerResponse struct {
	ID string `json:"id"`
}

type customerListResponse struct {
	Data []customerResponse `json:"data"`
}

type paymentResponse struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Value    float64 `json:"value"`
	Customer string  `json:"customer"`
}

func (p paymentResponse) gatewayStatus() enums.GatewayPaymentStatus {
	return enums.GatewayPaymentStatus(strings.ToUpper(strings.TrimSpace(p.Status)))
}

type pixQrCodeResponse struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

type subscriptionResponse struct {
	ID string `json:"id"`
}
