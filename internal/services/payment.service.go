package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/asuogyaman/constituency-gateway/internal/dedup"
	gateway "github.com/asuogyaman/constituency-gateway/internal/gateways"
	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/asuogyaman/constituency-gateway/internal/repository"
	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/asuogyaman/constituency-gateway/pkg/prom"
)

var (
	// ErrInvalidRequest marks client input errors; handlers map it to 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidSignature is an inbound webhook whose body does not match
	// its signature header.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedEvent is a verified webhook body that is not a usable
	// event envelope.
	ErrMalformedEvent = errors.New("malformed webhook event")

	ErrContributionNotFound = repository.ErrContributionNotFound
)

// ReconcileOutcome describes what a webhook delivery did to the record.
type ReconcileOutcome string

const (
	OutcomeIgnored          ReconcileOutcome = "ignored"
	OutcomeCompleted        ReconcileOutcome = "completed"
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
	OutcomeAmountMismatch   ReconcileOutcome = "amount_mismatch"
)

// ReconcileResult is returned for every accepted webhook delivery. Expected
// and Received are in GHS and only populated for amount mismatches.
type ReconcileResult struct {
	Outcome     ReconcileOutcome
	Reference   string
	ExpectedGHS float64
	ReceivedGHS float64
}

type PaymentGateway interface {
	Configured() bool
	Initialize(ctx context.Context, p gateway.InitializeRequest) (*gateway.InitializeResponse, error)
}

type ContributionStore interface {
	GetByReference(ctx context.Context, reference string) (*model.Contribution, error)
	TransitionFromPending(ctx context.Context, reference string, to model.ContributionStatus) (bool, error)
}

type PaymentService struct {
	gateway       PaymentGateway
	contributions ContributionStore
	webhookSecret []byte
	deduper       *dedup.Deduper
	initTimeout   time.Duration
}

func NewPaymentService(gw PaymentGateway, contributions ContributionStore, webhookSecret string, deduper *dedup.Deduper) *PaymentService {
	return &PaymentService{
		gateway:       gw,
		contributions: contributions,
		webhookSecret: []byte(webhookSecret),
		deduper:       deduper,
		initTimeout:   15 * time.Second,
	}
}

// GatewayConfigured reports whether the payment gateway credential is set;
// handlers answer 503 when it is not, so operators can tell a deployment
// problem from a client error.
func (s *PaymentService) GatewayConfigured() bool {
	return s.gateway.Configured()
}

// Initialize validates the request and creates a checkout session at the
// gateway. The contribution row itself is created by the portal's
// contribution flow; this call only talks to the gateway.
func (s *PaymentService) Initialize(ctx context.Context, p gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	if p.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	if p.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidRequest)
	}
	if p.CallbackURL == "" {
		return nil, fmt.Errorf("%w: callback_url is required", ErrInvalidRequest)
	}
	if p.Amount < gateway.MinAmountPesewas {
		return nil, fmt.Errorf("%w: amount must be at least %d pesewas", ErrInvalidRequest, gateway.MinAmountPesewas)
	}

	ctx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	resp, err := s.gateway.Initialize(ctx, p)
	if err != nil {
		prom.IncCounterVec(prom.SystemPayments, prom.MetricPaymentInitialized, "error")
		return nil, err
	}

	prom.IncCounterVec(prom.SystemPayments, prom.MetricPaymentInitialized, "ok")
	return resp, nil
}

// Reconcile applies one webhook delivery to the matching contribution.
// Deliveries are at-least-once; the pending-only conditional update in the
// store is what guarantees a single terminal transition, and the redis
// deduper only short-circuits redeliveries that were already applied.
func (s *PaymentService) Reconcile(ctx context.Context, rawBody []byte, signature string) (*ReconcileResult, error) {
	if !gateway.VerifyWebhookSignature(s.webhookSecret, rawBody, signature) {
		prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "bad_signature")
		return nil, ErrInvalidSignature
	}

	var event gateway.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Event == "" || event.Data == nil {
		return nil, fmt.Errorf("%w: event and data are required", ErrMalformedEvent)
	}

	if event.Event != gateway.EventChargeSuccess {
		logger.Debug("ignoring webhook event", "event", event.Event)
		prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "ignored")
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	reference := event.Data.Reference
	if reference == "" {
		return nil, fmt.Errorf("%w: data.reference is required", ErrMalformedEvent)
	}

	eventKey := event.Event + ":" + reference
	if s.deduper.Seen(ctx, eventKey) {
		prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "duplicate")
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Reference: reference}, nil
	}

	contribution, err := s.contributions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if contribution.Status == model.ContributionStatusCompleted {
		s.deduper.MarkProcessed(ctx, eventKey)
		prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "duplicate")
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Reference: reference}, nil
	}

	receivedGHS := float64(event.Data.Amount) / 100
	if math.Abs(receivedGHS-contribution.AmountGHS) > model.AmountEpsilon {
		// Mismatch is terminal. The pending guard keeps a late mismatch
		// delivery from clobbering a concurrent completion.
		if _, err := s.contributions.TransitionFromPending(ctx, reference, model.ContributionStatusFailed); err != nil {
			return nil, err
		}
		logger.Warn("webhook amount mismatch",
			"reference", reference,
			"expected_ghs", contribution.AmountGHS,
			"received_ghs", receivedGHS)
		prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "amount_mismatch")
		return &ReconcileResult{
			Outcome:     OutcomeAmountMismatch,
			Reference:   reference,
			ExpectedGHS: contribution.AmountGHS,
			ReceivedGHS: receivedGHS,
		}, nil
	}

	applied, err := s.contributions.TransitionFromPending(ctx, reference, model.ContributionStatusCompleted)
	if err != nil {
		return nil, err
	}
	s.deduper.MarkProcessed(ctx, eventKey)

	if !applied {
		// A concurrent delivery won the transition; that is still success.
		prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "duplicate")
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Reference: reference}, nil
	}

	logger.Info("contribution completed", "reference", reference, "amount_ghs", contribution.AmountGHS)
	prom.IncCounterVec(prom.SystemPayments, prom.MetricWebhookEvents, "completed")
	return &ReconcileResult{Outcome: OutcomeCompleted, Reference: reference}, nil
}
