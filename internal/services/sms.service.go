package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/internal/repository"
	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/asuogyaman/constituency-gateway/pkg/prom"
	"github.com/google/uuid"
)

var (
	// ErrForbidden is a caller whose role may not dispatch SMS.
	ErrForbidden = errors.New("caller is not allowed to send messages")
)

// bodySeparator joins the message text and recipient display name in the
// persisted log row, e.g. "Meeting tomorrow||NAME||0241234567".
const bodySeparator = "||NAME||"

type SmsGateway interface {
	Configured() bool
	Send(ctx context.Context, p gateway.BatchRequest) (*gateway.BatchResult, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

type MessageLogStore interface {
	CreateBatch(ctx context.Context, logs []*model.MessageLog) ([]*model.MessageLog, error)
}

// DispatchRequest is a normalized send request: recipients have already been
// reduced to canonical {phone, display name} records at the handler boundary.
type DispatchRequest struct {
	Recipients []model.Recipient
	Message    string
	SenderName string
}

// DispatchResult reports a gateway-acknowledged batch. BatchID is empty when
// the gateway did not return one.
type DispatchResult struct {
	Sent    int
	BatchID string
}

type SmsService struct {
	gateway       SmsGateway
	profiles      ProfileStore
	logs          MessageLogStore
	defaultSender string
}

func NewSmsService(gw SmsGateway, profiles ProfileStore, logs MessageLogStore, defaultSender string) *SmsService {
	return &SmsService{
		gateway:       gw,
		profiles:      profiles,
		logs:          logs,
		defaultSender: defaultSender,
	}
}

// GatewayConfigured reports whether the SMS gateway credential is set.
func (s *SmsService) GatewayConfigured() bool {
	return s.gateway.Configured()
}

// Dispatch authorizes the caller, submits one gateway batch covering every
// recipient, and persists one log row per recipient once the gateway has
// acknowledged the batch. No rows are written for a rejected batch.
func (s *SmsService) Dispatch(ctx context.Context, callerID string, p DispatchRequest) (*DispatchResult, error) {
	profile, err := s.profiles.GetByUserID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !profile.Role.CanSendSMS() {
		logger.Warn("sms dispatch rejected for role", "caller", callerID, "role", string(profile.Role))
		return nil, ErrForbidden
	}

	if len(p.Recipients) == 0 {
		return nil, fmt.Errorf("%w: recipients are required", ErrInvalidRequest)
	}
	message := strings.TrimSpace(p.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	sender := p.SenderName
	if sender == "" {
		sender = s.defaultSender
	}

	destinations := make([]string, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		phone := strings.TrimSpace(r.Phone)
		if phone == "" {
			return nil, fmt.Errorf("%w: recipient phone is required", ErrInvalidRequest)
		}
		destinations = append(destinations, phone)
	}

	result, err := s.gateway.Send(ctx, gateway.BatchRequest{
		Text:         message,
		Sender:       sender,
		Destinations: destinations,
	})
	if err != nil {
		prom.IncCounterVec(prom.SystemSMS, prom.MetricSMSBatches, "error")
		return nil, err
	}

	// Log rows always carry a batch id for correlation even when the
	// gateway omits one; the response surfaces only the gateway's id.
	logBatchID := result.BatchID
	if logBatchID == "" {
		logBatchID = uuid.NewString()
	}

	logs := make([]*model.MessageLog, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		displayName := strings.TrimSpace(r.DisplayName)
		if displayName == "" {
			displayName = strings.TrimSpace(r.Phone)
		}
		logs = append(logs, &model.MessageLog{
			SenderID:  callerID,
			Recipient: strings.TrimSpace(r.Phone),
			Body:      message + bodySeparator + displayName,
			Type:      model.MessageTypeSMS,
			Status:    model.MessageStatusSent,
			BatchID:   logBatchID,
		})
	}
	if _, err := s.logs.CreateBatch(ctx, logs); err != nil {
		return nil, err
	}

	logger.Info("sms batch dispatched", "caller", callerID, "recipients", len(logs), "batch", result.BatchID)
	prom.IncCounterVec(prom.SystemSMS, prom.MetricSMSBatches, "ok")
	prom.AddCounter(prom.SystemSMS, prom.MetricSMSRecipients, float64(len(logs)))

	return &DispatchResult{Sent: len(logs), BatchID: result.BatchID}, nil
}
