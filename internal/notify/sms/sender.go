package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/velvetpaws/groomhub/internal/notify"
)

// TwilioSender posts messages to the Twilio REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	http       *http.Client
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		accountSID: strings.TrimSpace(accountSID),
		authToken:  strings.TrimSpace(authToken),
		from:       strings.TrimSpace(from),
		baseURL:    "https://api.twilio.com",
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *TwilioSender) ProviderID() string {
	return "twilio"
}

func (s *TwilioSender) Send(ctx context.Context, to string, body string) error {
	if s.accountSID == "" || s.authToken == "" || s.from == "" {
		return notify.PermanentError(fmt.Errorf("twilio sender not configured"))
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return notify.PermanentError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.http.Do(req)
	if err != nil {
		// Network errors and timeouts are environmental.
		return notify.TransientError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := fmt.Errorf("twilio returned %d: %s", resp.StatusCode, readTwilioError(resp.Body))
	// 429 and 5xx are retryable; other 4xx (invalid number, bad request) are
	// inherent to the message and never worth retrying.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return notify.TransientError(apiErr)
	}
	return notify.PermanentError(apiErr)
}

func readTwilioError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable body"
	}
	var payload struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		return fmt.Sprintf("%s (code %d)", payload.Message, payload.Code)
	}
	return string(raw)
}

// NoopSender is used in dev when no SMS provider is configured.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "sms-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}
