package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"
	defaultTimeout       = 15 * time.Second
)

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	HTTPClient *http.Client
	logger     *logrus.Logger
}

// NewTwilioSender returns a sender for the given account. An empty baseURL
// selects the public Twilio endpoint; a zero timeout selects 15s.
func NewTwilioSender(accountSID, authToken, from, baseURL string, timeout time.Duration, logger *logrus.Logger) *TwilioSender {
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TwilioSender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts the message. The message body is never logged since it carries
// the code.
func (s *TwilioSender) Send(ctx context.Context, to, message string) error {
	if s.AccountSID == "" || s.AuthToken == "" {
		return fmt.Errorf("twilio: credentials not configured")
	}

	to = NormalizePhone(to)
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.From)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.BaseURL, s.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.AccountSID, s.AuthToken)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio: request failed status=%d body=%s", resp.StatusCode, string(b))
	}

	s.logger.WithField("to", to).Debug("SMS accepted by Twilio")
	return nil
}
