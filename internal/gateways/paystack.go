package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	// SignatureHeader carries the hex HMAC-SHA512 digest of the raw webhook body.
	SignatureHeader = "X-Paystack-Signature"

	// MinAmountPesewas is the smallest charge the gateway accepts (minor units).
	MinAmountPesewas = 100

	DefaultPaystackBaseURL = "https://api.paystack.co"
	defaultInitTimeout     = 15 * time.Second
)

var ErrSecretNotConfigured = errors.New("paystack secret key is not configured")

// APIError is a non-2xx response from the Paystack API. StatusCode is the
// gateway's HTTP status; Code and Message come from its error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %d %s (code=%s)", e.StatusCode, e.Message, e.Code)
}

// InitializeRequest is the input for creating a checkout session. Amount is
// in pesewas (minor units).
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference"`
	Channels    []string       `json:"channels,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CallbackURL string         `json:"callback_url"`
}

// InitializeResponse is what the caller needs to redirect the payer.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// WebhookEvent is the envelope Paystack delivers to the webhook endpoint.
type WebhookEvent struct {
	Event string       `json:"event"`
	Data  *WebhookData `json:"data"`
}

// WebhookData carries the fields the reconciler reads; Amount is in pesewas.
type WebhookData struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

// EventChargeSuccess is the only event type the reconciler acts on.
const EventChargeSuccess = "charge.success"

type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type PaystackClient struct {
	secretKey string
	baseURL   string
	timeout   time.Duration
	client    *fasthttp.Client
}

func NewPaystackClient(cfg PaystackConfig) *PaystackClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultInitTimeout
	}
	return &PaystackClient{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		timeout:   timeout,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

// Configured reports whether a secret key was supplied. Handlers use this to
// distinguish operator misconfiguration from client error.
func (c *PaystackClient) Configured() bool {
	return c.secretKey != ""
}

// Initialize creates a checkout session at the gateway and returns the
// redirect URL. The call is bounded by the client timeout; a hung upstream
// surfaces as an error rather than holding the handler.
func (c *PaystackClient) Initialize(ctx context.Context, p InitializeRequest) (*InitializeResponse, error) {
	if !c.Configured() {
		return nil, ErrSecretNotConfigured
	}

	reqBody, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/transaction/initialize")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.SetBody(reqBody)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode > 299 {
		apiErr := &APIError{StatusCode: statusCode, Message: "transaction initialize failed"}
		var envelope struct {
			Message string `json:"message"`
			Code    string `json:"code"`
			Type    string `json:"type"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.Code = envelope.Code
			apiErr.Type = envelope.Type
		}
		logger.Warn("paystack initialize rejected", "status", statusCode, "message", apiErr.Message, "reference", p.Reference)
		return nil, apiErr
	}

	var envelope struct {
		Status  bool               `json:"status"`
		Message string             `json:"message"`
		Data    InitializeResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Info("paystack transaction initialized", "reference", envelope.Data.Reference, "amount_pesewas", p.Amount)

	return &envelope.Data, nil
}

// VerifyWebhookSignature checks that signature is the hex HMAC-SHA512 digest
// of body under secret. The digest must be computed over the exact raw bytes
// received on the wire; re-serializing parsed JSON would change it. An empty
// secret or signature fails closed.
func VerifyWebhookSignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	if _, err := mac.Write(body); err != nil {
		return false
	}
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
