package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/xchicks/internal/config"
)

// ErrDisabled is returned when the client was built without credentials.
var ErrDisabled = errors.New("whatsapp client disabled")

// Client exposes the WhatsApp Cloud API operations the service uses.
type Client interface {
	SendText(ctx context.Context, msg TextMessage) (string, error)
}

// APIClient talks to the Cloud API over resty with bounded retries on 5xx and 429.
type APIClient struct {
	http          *resty.Client
	phoneNumberID string
	enabled       bool
}

// NewClient builds a client from configuration. Without an access token every
// send fails fast with ErrDisabled.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	rc := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{
		http:          rc,
		phoneNumberID: cfg.PhoneNumberID,
		enabled:       cfg.Enabled(),
	}
}

// TextMessage is a plain text message to one recipient.
type TextMessage struct {
	To         string
	Body       string
	PreviewURL bool
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError carries the Cloud API error payload.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	TraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// SendText delivers msg and returns the message id assigned by Meta.
func (c *APIClient) SendText(ctx context.Context, msg TextMessage) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                strings.TrimPrefix(msg.To, "+"),
		"type":              "text",
		"text": map[string]any{
			"body":        msg.Body,
			"preview_url": msg.PreviewURL,
		},
	}

	result := new(sendResponse)
	envelope := new(errorEnvelope)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(envelope).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() {
		apiErr := envelope.Error
		apiErr.Status = resp.StatusCode()
		return "", &apiErr
	}

	if len(result.Messages) == 0 {
		return "", nil
	}
	return result.Messages[0].ID, nil
}
