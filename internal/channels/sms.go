package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrSMSNotConfigured is returned when no gateway endpoint is set.
var ErrSMSNotConfigured = errors.New("sms gateway endpoint not configured")

// SMSMessage is the gateway request body.
type SMSMessage struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

// SMSGatewayError is a non-2xx gateway response.
type SMSGatewayError struct {
	Status int
	Body   string
}

func (e *SMSGatewayError) Error() string {
	return fmt.Sprintf("sms gateway returned %d", e.Status)
}

// SMSClient posts messages to the SMS gateway webhook.
type SMSClient struct {
	client *http.Client
	logger *zap.Logger
}

// NewSMSClient returns a gateway client with a per-request timeout.
func NewSMSClient(timeout time.Duration, logger *zap.Logger) *SMSClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSClient{client: &http.Client{Timeout: timeout}, logger: logger}
}

// Send posts msg to endpoint. apiKey, when set, is sent as a bearer token.
func (c *SMSClient) Send(ctx context.Context, endpoint, apiKey string, msg SMSMessage) error {
	if endpoint == "" {
		return ErrSMSNotConfigured
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sms: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &SMSGatewayError{Status: resp.StatusCode, Body: string(body)}
	}
	c.logger.Debug("sms accepted by gateway", zap.String("reference", msg.Reference))
	return nil
}
