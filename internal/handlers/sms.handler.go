package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fasthttp/router"
	"github.com/asuogyaman/constituency-gateway/internal/auth"
	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/internal/services"
	xhttp "github.com/asuogyaman/constituency-gateway/pkg/http"
)

type SmsService interface {
	Dispatch(ctx context.Context, callerID string, p services.DispatchRequest) (*services.DispatchResult, error)
}

type SmsHandler struct {
	svc    SmsService
	tokens *auth.TokenVerifier
}

func RegisterSmsRoutes(e *router.Group, h *SmsHandler) {
	e.POST("/sms/send", h.SendSms)
}

func NewSmsHandler(smsService SmsService, tokens *auth.TokenVerifier) *SmsHandler {
	return &SmsHandler{
		svc:    smsService,
		tokens: tokens,
	}
}

// smsRecipient accepts either a bare phone string or a {phone,name} object,
// so callers can mix both forms in one request.
type smsRecipient model.Recipient

func (r *smsRecipient) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.Phone)
	}
	var obj struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.Phone = obj.Phone
	r.DisplayName = obj.Name
	return nil
}

type sendSmsRequest struct {
	Recipients []smsRecipient `json:"recipients"`
	Message    string         `json:"message"`
	SenderName string         `json:"senderName"`
}

type sendSmsResponse struct {
	Success bool    `json:"success"`
	Sent    int     `json:"sent"`
	Batch   *string `json:"batch"`
}

type smsErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *SmsHandler) SendSms(ctx *xhttp.RequestCtx) {
	authorization := string(ctx.Request.Header.Peek("Authorization"))
	callerID, err := h.tokens.ResolveUserID(authorization)
	if err != nil {
		writeSmsError(ctx, 401, "unauthorized")
		return
	}

	var req sendSmsRequest
	if err := readJSON(ctx, &req); err != nil {
		writeSmsError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	recipients := make([]model.Recipient, len(req.Recipients))
	for i, r := range req.Recipients {
		recipients[i] = model.Recipient(r)
	}

	result, err := h.svc.Dispatch(ctx, callerID, services.DispatchRequest{
		Recipients: recipients,
		Message:    req.Message,
		SenderName: req.SenderName,
	})
	if err != nil {
		writeSmsError(ctx, smsErrorStatus(err), smsErrorMessage(err))
		return
	}

	var batch *string
	if result.BatchID != "" {
		batch = &result.BatchID
	}
	writeJSON(ctx, 200, sendSmsResponse{Success: true, Sent: result.Sent, Batch: batch})
}

func writeSmsError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, smsErrorResponse{Success: false, Error: msg})
}

func smsErrorStatus(err error) int {
	var sendErr *gateway.SendError
	switch {
	case errors.Is(err, services.ErrForbidden):
		return 403
	case errors.Is(err, services.ErrInvalidRequest):
		return 400
	case errors.Is(err, gateway.ErrAPIKeyNotConfigured):
		return 500
	case errors.As(err, &sendErr):
		return 502
	default:
		return 500
	}
}

func smsErrorMessage(err error) string {
	var sendErr *gateway.SendError
	switch {
	case errors.Is(err, services.ErrForbidden):
		return "only admins and assembly members may send SMS"
	case errors.Is(err, services.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, gateway.ErrAPIKeyNotConfigured):
		return "sms gateway is not configured"
	case errors.As(err, &sendErr):
		return err.Error()
	default:
		return "sms dispatch failed"
	}
}
