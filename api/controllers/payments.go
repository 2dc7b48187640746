package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/boostcv/backend/api/responses"
	"github.com/boostcv/backend/api/validators"
	"github.com/boostcv/backend/internal/coupons"
	"github.com/boostcv/backend/internal/payments"
	"github.com/boostcv/backend/pkg/asaas"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

// PaymentService is the orchestration surface the payment endpoints use.
type PaymentService interface {
	CreatePixCharge(ctx context.Context, input payments.ChargeInput) (*asaas.PixCharge, error)
	CreateSubscription(ctx context.Context, input payments.SubscriptionInput) (*payments.SubscriptionResult, error)
	GetStatus(ctx context.Context, paymentID string) (*payments.StatusResult, error)
}

// CouponService is the coupon ledger surface the payment endpoints use.
type CouponService interface {
	Validate(ctx context.Context, code string) (*coupons.Validation, error)
	Redeem(ctx context.Context, code string, metadata json.RawMessage) (*coupons.Redemption, error)
}

type createChargeRequest struct {
	FullName string `json:"fullName" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email"`
	CPF      string `json:"cpf" validate:"required"`
}

type createChargeResponse struct {
	ChargeID       string `json:"chargeId"`
	QREncodedImage string `json:"qrEncodedImage"`
	QRPayload      string `json:"qrPayload"`
	ExpirationDate string `json:"expirationDate"`
}

// CreateCharge creates a PIX charge for the one-off resume purchase.
func CreateCharge(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createChargeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		charge, err := svc.CreatePixCharge(ctx, payments.ChargeInput{
			FullName: validators.SanitizeString(req.FullName, 120),
			Email:    req.Email,
			CPF:      req.CPF,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, createChargeResponse{
			ChargeID:       charge.ID,
			QREncodedImage: charge.QREncodedImage,
			QRPayload:      charge.QRPayload,
			ExpirationDate: charge.ExpirationDate,
		})
	}
}

type createSubscriptionRequest struct {
	FullName   string          `json:"fullName" validate:"required,min=3,max=120"`
	Email      string          `json:"email" validate:"required,email"`
	Phone      string          `json:"phone" validate:"omitempty,max=32"`
	ResumeData json.RawMessage `json:"resumeData" validate:"omitempty"`
}

type createSubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	CustomerID     string `json:"customerId"`
}

// CreateSubscription captures the lead and opens a recurring charge schedule.
func CreateSubscription(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateSubscription(ctx, payments.SubscriptionInput{
			FullName:   validators.SanitizeString(req.FullName, 120),
			Email:      req.Email,
			Phone:      req.Phone,
			ResumeData: req.ResumeData,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, createSubscriptionResponse{
			SubscriptionID: result.SubscriptionID,
			CustomerID:     result.CustomerID,
		})
	}
}

type paymentStatusResponse struct {
	Status    string `json:"status"`
	Confirmed bool   `json:"confirmed"`
}

// PaymentStatus reports the gateway status for a payment id.
func PaymentStatus(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		paymentID := strings.TrimSpace(r.URL.Query().Get("id"))
		if paymentID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required").
				WithDetails(map[string]any{"field": "id"}))
			return
		}

		status, err := svc.GetStatus(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentStatusResponse{
			Status:    status.Status.String(),
			Confirmed: status.Confirmed,
		})
	}
}

type couponRequest struct {
	CouponCode string          `json:"couponCode" validate:"required,min=1,max=64"`
	Metadata   json.RawMessage `json:"metadata" validate:"omitempty"`
}

type validateCouponResponse struct {
	Valid           bool   `json:"valid"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
	Message         string `json:"message"`
}

// ValidateCoupon answers whether a code is redeemable without spending it.
func ValidateCoupon(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req couponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Validate(ctx, req.CouponCode)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, validateCouponResponse{
			Valid:           result.Valid,
			DiscountPercent: result.DiscountPercent,
			Message:         result.Message,
		})
	}
}

type registerUsageResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
}

// RegisterCouponUsage spends one coupon use and returns the minted download
// token in the paymentId field the frontend already reads.
func RegisterCouponUsage(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req couponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		redemption, err := svc.Redeem(ctx, req.CouponCode, req.Metadata)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, registerUsageResponse{
			Success:   true,
			PaymentID: redemption.Token.Value,
		})
	}
}
