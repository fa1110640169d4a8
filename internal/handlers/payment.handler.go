package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/services"
	xhttp "github.com/asuogyaman/constituency-gateway/pkg/http"
)

type PaymentService interface {
	GatewayConfigured() bool
	Initialize(ctx context.Context, p gateway.InitializeRequest) (*gateway.InitializeResponse, error)
	Reconcile(ctx context.Context, rawBody []byte, signature string) (*services.ReconcileResult, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payments/initialize", h.InitializePayment)
	e.POST("/payments/webhook", h.HandleWebhook)
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: paymentService,
	}
}

type initializePaymentRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url"`
	Channels    []string       `json:"channels"`
	Metadata    map[string]any `json:"metadata"`
}

type webhookAckResponse struct {
	Message string `json:"message"`
}

type amountMismatchResponse struct {
	Error       string  `json:"error"`
	Reference   string  `json:"reference"`
	ExpectedGHS float64 `json:"expected_ghs"`
	ReceivedGHS float64 `json:"received_ghs"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) InitializePayment(ctx *xhttp.RequestCtx) {
	if !h.svc.GatewayConfigured() {
		writeError(ctx, 503, "payment gateway is not configured")
		return
	}

	var req initializePaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	resp, err := h.svc.Initialize(ctx, gateway.InitializeRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Channels:    req.Channels,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(ctx, paymentErrorStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, resp)
}

func (h *PaymentHandler) HandleWebhook(ctx *xhttp.RequestCtx) {
	signature := string(ctx.Request.Header.Peek(gateway.SignatureHeader))
	if signature == "" {
		writeError(ctx, 401, "missing signature")
		return
	}

	// The raw body goes to the service untouched; re-serializing it here
	// would break signature verification.
	result, err := h.svc.Reconcile(ctx, ctx.PostBody(), signature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			writeError(ctx, 401, "invalid signature")
		case errors.Is(err, services.ErrMalformedEvent):
			writeError(ctx, 400, err.Error())
		case errors.Is(err, services.ErrContributionNotFound):
			writeError(ctx, 404, "unknown payment reference")
		default:
			writeError(ctx, 500, "webhook processing failed")
		}
		return
	}

	if result.Outcome == services.OutcomeAmountMismatch {
		writeJSON(ctx, 400, amountMismatchResponse{
			Error:       "amount mismatch",
			Reference:   result.Reference,
			ExpectedGHS: result.ExpectedGHS,
			ReceivedGHS: result.ReceivedGHS,
		})
		return
	}

	writeJSON(ctx, 200, webhookAckResponse{Message: string(result.Outcome)})
}

func paymentErrorStatus(err error) int {
	if errors.Is(err, services.ErrInvalidRequest) {
		return 400
	}
	if errors.Is(err, gateway.ErrSecretNotConfigured) {
		return 503
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401:
			return 401
		case apiErr.StatusCode >= 500:
			return 502
		default:
			return 400
		}
	}
	return 500
}
