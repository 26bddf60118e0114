package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"iptv-subscription-backend/internal/config"
	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.EmailSender = (*RestEmailSender)(nil)

// RestEmailSender sends transactional email through the provider's JSON API.
type RestEmailSender struct {
	apiKey    string
	baseURL   string
	fromName  string
	fromEmail string
	client    *http.Client
}

func NewRestEmailSender(cfg *config.EmailConfig) (*RestEmailSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("email api key empty")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("email from address empty")
	}
	return &RestEmailSender{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *RestEmailSender) Name() string { return "email" }

func (s *RestEmailSender) Send(ctx context.Context, msg adapter.EmailMessage) error {
	payload := map[string]any{
		"from": map[string]string{
			"name":  s.fromName,
			"email": s.fromEmail,
		},
		"to":      []map[string]string{{"email": msg.To}},
		"subject": msg.Subject,
		"text":    msg.Text,
	}
	if msg.HTML != "" {
		payload["html"] = msg.HTML
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/email", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email send http %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	return nil
}
