package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boostcv/backend/pkg/config"
	pkgerrors "github.com/boostcv/backend/pkg/errors"
	"github.com/boostcv/backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	accessTokenHeader = "access_token"
)

var (
	errAPIKeyRequired  = errors.New("asaas api key is required")
	errBaseURLRequired = errors.New("asaas base url is required")
	errInvalidAsaasEnv = fmt.Errorf("asaas environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired  = errors.New("asaas logger is required")
)

// Client exposes Asaas primitives with centralized auth, timeouts, logging,
// and error mapping. Credentials arrive through the injected config, never
// ambient globals, so tests can point the client at fakes.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	environment  string
	webhookToken string
	logger       *logger.Logger
}

// NewClient initializes the Asaas wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.AsaasConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		apiKey:       apiKey,
		baseURL:      baseURL,
		environment:  env,
		webhookToken: strings.TrimSpace(cfg.WebhookToken),
		logger:       logg,
	}

	logg.Info(ctx, "asaas client initialized")
	return c, nil
}

// Environment reports the normalized Asaas environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// WebhookToken returns the shared secret expected on webhook deliveries.
func (c *Client) WebhookToken() string {
	if c == nil {
		return ""
	}
	return c.webhookToken
}

// FindOrCreateCustomer searches the gateway by the configured dedup key and
// creates the customer when the search comes back empty.
func (c *Client) FindOrCreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	if err := params.validate(); err != nil {
		return "", err
	}

	query := url.Values{}
	switch params.SearchBy {
	case SearchByEmail:
		query.Set("email", params.Email)
	default:
		query.Set("cpfCnpj", params.CpfCnpj)
	}

	c.log(ctx, "request", "find_customer", map[string]any{"search_by": string(params.SearchBy)})

	var listing customerListResponse
	if err := c.do(ctx, http.MethodGet, "/customers?"+query.Encode(), nil, &listing); err != nil {
		c.log(ctx, "error", "find_customer", map[string]any{"error": err.Error()})
		return "", err
	}
	if len(listing.Data) > 0 {
		c.log(ctx, "response", "find_customer", map[string]any{"customer_id": listing.Data[0].ID})
		return listing.Data[0].ID, nil
	}

	c.log(ctx, "request", "create_customer", nil)

	var created customerResponse
	if err := c.do(ctx, http.MethodPost, "/customers", params.toCreateRequest(), &created); err != nil {
		c.log(ctx, "error", "create_customer", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "create_customer", map[string]any{"customer_id": created.ID})
	return created.ID, nil
}

// CreatePixCharge creates an immediate PIX charge due today and fetches its
// QR code representation. The QR fetch only runs after the charge succeeds.
func (c *Client) CreatePixCharge(ctx context.Context, params ChargeCreateParams) (*PixCharge, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c.log(ctx, "request", "create_charge", map[string]any{
		"customer_id": params.CustomerID,
		"amount":      params.Amount.String(),
	})

	var payment paymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments", params.toRequest(), &payment); err != nil {
		c.log(ctx, "error", "create_charge", map[string]any{"error": err.Error()})
		return nil, err
	}

	var qr pixQrCodeResponse
	if err := c.do(ctx, http.MethodGet, "/payments/"+payment.ID+"/pixQrCode", nil, &qr); err != nil {
		c.log(ctx, "error", "fetch_qr_code", map[string]any{"error": err.Error(), "payment_id": payment.ID})
		return nil, err
	}

	c.log(ctx, "response", "create_charge", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})

	return &PixCharge{
		ID:             payment.ID,
		QREncodedImage: qr.EncodedImage,
		QRPayload:      qr.Payload,
		ExpirationDate: qr.ExpirationDate,
	}, nil
}

// CreateSubscription creates a recurring charge schedule with the first due
// date 24 hours out.
func (c *Client) CreateSubscription(ctx context.Context, params SubscriptionCreateParams) (string, error) {
	if err := params.validate(); err != nil {
		return "", err
	}

	c.log(ctx, "request", "create_subscription", map[string]any{
		"customer_id": params.CustomerID,
		"cycle":       params.Cycle.String(),
	})

	var sub subscriptionResponse
	if err := c.do(ctx, http.MethodPost, "/subscriptions", params.toRequest(), &sub); err != nil {
		c.log(ctx, "error", "create_subscription", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "create_subscription", map[string]any{"subscription_id": sub.ID})
	return sub.ID, nil
}

// GetPaymentStatus fetches the current gateway status for a payment.
// Confirmed is true only for the two terminal success codes; the caller polls
// everything else.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	c.log(ctx, "request", "get_payment_status", map[string]any{"payment_id": paymentID})

	var payment paymentResponse
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		c.log(ctx, "error", "get_payment_status", map[string]any{"error": err.Error(), "payment_id": paymentID})
		return nil, err
	}

	status := payment.gatewayStatus()
	c.log(ctx, "response", "get_payment_status", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})

	return &PaymentStatus{
		ID:        payment.ID,
		Status:    status,
		Confirmed: status.IsConfirmed(),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode asaas request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build asaas request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "asaas request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read asaas response")
	}

	if resp.StatusCode >= 400 {
		return c.mapGatewayError(resp.StatusCode, payload)
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode asaas response")
		}
	}
	return nil
}

// mapGatewayError normalizes the gateway's {errors:[{description}]} shape
// into a single tagged error carrying the human-readable description.
func (c *Client) mapGatewayError(status int, payload []byte) error {
	var body struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && len(body.Errors) > 0 {
		typed := pkgerrors.New(pkgerrors.CodeGateway, body.Errors[0].Description)
		return typed.WithDetails(map[string]any{"gateway_code": body.Errors[0].Code})
	}

	if status >= 500 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("asaas returned status %d", status))
	}
	return pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("asaas returned status %d", status))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("asaas %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("asaas %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "cpf"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidAsaasEnv
	}
}
