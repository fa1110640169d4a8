package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	DefaultSMSOnlineBaseURL = "https://api.smsonlinegh.com/v4"
	defaultSendTimeout      = 30 * time.Second

	// HandshakeOK is the acknowledgment label SMSOnlineGH embeds in its
	// response envelope. The gateway may answer HTTP 200 with a failure
	// label, so success is judged by this value and not the status code.
	HandshakeOK = "HSHK_OK"
)

var ErrAPIKeyNotConfigured = errors.New("sms gateway api key is not configured")

// SendError is a dispatch the gateway refused, either via HTTP status or via
// an embedded handshake label other than HSHK_OK.
type SendError struct {
	StatusCode int
	Label      string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("smsonline: send rejected (status=%d, label=%s)", e.StatusCode, e.Label)
}

// BatchRequest is one gateway call covering every destination of a send.
type BatchRequest struct {
	Text         string
	Sender       string
	Destinations []string
}

// BatchResult reports a gateway-acknowledged send. BatchID may be empty when
// the gateway omits it.
type BatchResult struct {
	BatchID  string
	Accepted int
}

type SMSOnlineConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type SMSOnlineClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewSMSOnlineClient(cfg SMSOnlineConfig) *SMSOnlineClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultSMSOnlineBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &SMSOnlineClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

func (c *SMSOnlineClient) Configured() bool {
	return c.apiKey != ""
}

// Send submits one batch containing all destinations. It returns a SendError
// when the gateway answers with a non-2xx status or an embedded handshake
// label other than HSHK_OK.
func (c *SMSOnlineClient) Send(ctx context.Context, p BatchRequest) (*BatchResult, error) {
	if !c.Configured() {
		return nil, ErrAPIKeyNotConfigured
	}

	payload := struct {
		Text         string   `json:"text"`
		Type         int      `json:"type"`
		Sender       string   `json:"sender"`
		Destinations []string `json:"destinations"`
	}{
		Text:         p.Text,
		Sender:       p.Sender,
		Destinations: p.Destinations,
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/message/sms/send")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "key "+c.apiKey)
	req.SetBody(reqBody)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()

	var envelope struct {
		Handshake struct {
			ID    int    `json:"id"`
			Label string `json:"label"`
		} `json:"handshake"`
		Data struct {
			Batch        string `json:"batch"`
			Destinations []struct {
				To string `json:"to"`
			} `json:"destinations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		if statusCode < 200 || statusCode > 299 {
			return nil, &SendError{StatusCode: statusCode, Label: "unreadable response"}
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if statusCode < 200 || statusCode > 299 || envelope.Handshake.Label != HandshakeOK {
		logger.Warn("sms batch rejected by gateway", "status", statusCode, "label", envelope.Handshake.Label, "destinations", len(p.Destinations))
		return nil, &SendError{StatusCode: statusCode, Label: envelope.Handshake.Label}
	}

	accepted := len(envelope.Data.Destinations)
	if accepted == 0 {
		accepted = len(p.Destinations)
	}

	logger.Info("sms batch accepted", "batch", envelope.Data.Batch, "destinations", accepted, "sender", p.Sender)

	return &BatchResult{BatchID: envelope.Data.Batch, Accepted: accepted}, nil
}
