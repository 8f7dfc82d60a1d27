package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// StatusError ответ Vapi с кодом вне 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vapi returned status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig параметры HTTP клиента Vapi.
type ClientConfig struct {
	BaseURL    string
	PrivateKey string
	Timeout    time.Duration
}

// Client обращается к REST API Vapi за статусом звонка.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

var _ interfaces.SessionClient = (*Client)(nil)

// NewClient создает клиента. Ключ передается как Bearer токен.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetAuthToken(cfg.PrivateKey).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:   httpClient,
		logger: logger.Named("VapiClient"),
	}
}

// GetCall выполняет ровно один GET /call/{id}.
// Пустое тело или JSON null дают (nil, nil).
func (c *Client) GetCall(ctx context.Context, callID string) (*models.SessionRecord, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("callId", callID).
		Get("/call/{callId}")
	if err != nil {
		return nil, fmt.Errorf("vapi request for call %s failed: %w", callID, err)
	}

	body := bytes.TrimSpace(resp.Body())
	if resp.IsError() || resp.StatusCode() >= 300 {
		c.logger.Warn("Vapi returned non-success status",
			zap.String("callID", callID),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: truncate(string(body), 512)}
	}

	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var record models.SessionRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to decode vapi call %s: %w", callID, err)
	}
	if record.ID == "" {
		record.ID = callID
	}
	return &record, nil
}

// truncate обрезает s до n байт, не разрезая руну.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
