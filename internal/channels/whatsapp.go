// Package channels holds the HTTP clients for the outbound messaging providers.
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nialike/backend/internal/messaging"
)

const (
	messagesAPIVersion  = "v18.0"
	templatesAPIVersion = "v19.0"

	// CodeParameterMismatch is the Cloud API error code for a template parameter count mismatch.
	CodeParameterMismatch = 132000
)

// ErrParameterMismatch matches APIErrors reporting a template parameter count mismatch.
var ErrParameterMismatch = errors.New("template parameter mismatch")

// APIError is an error response from the Graph API.
type APIError struct {
	Status  int
	Code    int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("whatsapp api returned %d", e.Status)
	}
	return e.Message
}

// Is reports parameter mismatches as ErrParameterMismatch.
func (e *APIError) Is(target error) bool {
	return target == ErrParameterMismatch && e.Code == CodeParameterMismatch
}

// Credentials are the Cloud API values a request needs.
type Credentials struct {
	APIKey            string
	PhoneNumberID     string
	BusinessAccountID string
}

// TemplateMessage is a template send request.
type TemplateMessage struct {
	To         string
	Name       string
	Language   string
	Components []messaging.Component
}

// PhoneStatus is the subset of the phone number resource used for pre-flight checks.
type PhoneStatus struct {
	VerifiedName           string `json:"verified_name"`
	DisplayPhoneNumber     string `json:"display_phone_number"`
	QualityRating          string `json:"quality_rating"`
	CodeVerificationStatus string `json:"code_verification_status"`
}

// Verified reports whether the number carries a verified business name.
func (p PhoneStatus) Verified() bool { return p.VerifiedName != "" }

// Template is a message template registered on a business account.
type Template struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Language   string              `json:"language"`
	Status     string              `json:"status"`
	Category   string              `json:"category"`
	Components []TemplateComponent `json:"components"`
}

// TemplateComponent is one section of a template.
type TemplateComponent struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
	Text   string `json:"text,omitempty"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*\d+\s*\}\}`)

// Slots lists the mapping slot keys the template expects, e.g. header-0, body-0, body-1.
// An IMAGE header takes one slot.
func (t Template) Slots() []string {
	var slots []string
	for _, c := range t.Components {
		kind := strings.ToLower(c.Type)
		if kind != "header" && kind != "body" && kind != "footer" {
			continue
		}
		n := len(placeholderPattern.FindAllString(c.Text, -1))
		if kind == "header" && strings.EqualFold(c.Format, "image") {
			n = 1
		}
		for i := 0; i < n; i++ {
			slots = append(slots, fmt.Sprintf("%s-%d", kind, i))
		}
	}
	return slots
}

// WhatsAppClient talks to the WhatsApp Cloud API.
type WhatsAppClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewWhatsAppClient returns a client for the Graph API at baseURL.
func NewWhatsAppClient(baseURL string, timeout time.Duration, logger *zap.Logger) *WhatsAppClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type sendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         sendTemplate `json:"template"`
}

type sendTemplate struct {
	Name       string                `json:"name"`
	Language   sendLanguage          `json:"language"`
	Components []messaging.Component `json:"components"`
}

type sendLanguage struct {
	Code string `json:"code"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTemplate sends a template message and returns the provider message id.
func (c *WhatsAppClient) SendTemplate(ctx context.Context, creds Credentials, msg TemplateMessage) (string, error) {
	lang := msg.Language
	if lang == "" {
		lang = "en"
	}
	components := msg.Components
	if components == nil {
		components = []messaging.Component{}
	}
	body := sendRequest{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "template",
		Template:         sendTemplate{Name: msg.Name, Language: sendLanguage{Code: lang}, Components: components},
	}
	var out sendResponse
	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, messagesAPIVersion, url.PathEscape(creds.PhoneNumberID))
	if err := c.do(ctx, http.MethodPost, endpoint, creds.APIKey, body, &out); err != nil {
		return "", err
	}
	c.logger.Debug("whatsapp template sent", zap.String("template", msg.Name), zap.Int("components", len(components)))
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

// PhoneNumberStatus fetches the phone number resource for creds.PhoneNumberID.
func (c *WhatsAppClient) PhoneNumberStatus(ctx context.Context, creds Credentials) (PhoneStatus, error) {
	var out PhoneStatus
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, messagesAPIVersion, url.PathEscape(creds.PhoneNumberID))
	err := c.do(ctx, http.MethodGet, endpoint, creds.APIKey, nil, &out)
	return out, err
}

// ListTemplates returns the templates of creds.BusinessAccountID, optionally filtered by name.
func (c *WhatsAppClient) ListTemplates(ctx context.Context, creds Credentials, name string) ([]Template, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/message_templates", c.baseURL, templatesAPIVersion, url.PathEscape(creds.BusinessAccountID))
	if name != "" {
		endpoint += "?name=" + url.QueryEscape(name)
	}
	var out struct {
		Data []Template `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, creds.APIKey, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Code      int    `json:"code"`
		ErrorData struct {
			Details string `json:"details"`
		} `json:"error_data"`
	} `json:"error"`
}

func (c *WhatsAppClient) do(ctx context.Context, method, endpoint, token string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read whatsapp response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		return &APIError{
			Status:  resp.StatusCode,
			Code:    env.Error.Code,
			Message: env.Error.Message,
			Details: env.Error.ErrorData.Details,
		}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode whatsapp response: %w", err)
	}
	return nil
}

// FormatPhone converts a stored phone number into Cloud API form: no leading plus and no
// whitespace. Ten-digit numbers without a country code get the North American prefix 1.
func FormatPhone(phone string) string {
	p := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	p = strings.Join(strings.Fields(p), "")
	if len(p) == 10 && !strings.HasPrefix(p, "1") {
		p = "1" + p
	}
	return p
}
