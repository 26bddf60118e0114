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

var _ adapter.WhatsAppSender = (*WhatsAppCloudSender)(nil)

// WhatsAppCloudSender sends text messages through the WhatsApp Business
// Cloud API.
type WhatsAppCloudSender struct {
	token         string
	phoneNumberID string
	baseURL       string
	client        *http.Client
}

func NewWhatsAppCloudSender(cfg *config.WhatsAppConfig) (*WhatsAppCloudSender, error) {
	if cfg.Token == "" || cfg.PhoneNumberID == "" {
		return nil, errors.New("whatsapp token or phone number id empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	return &WhatsAppCloudSender{
		token:         cfg.Token,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       strings.TrimRight(base, "/"),
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *WhatsAppCloudSender) Name() string { return "whatsapp" }

func (s *WhatsAppCloudSender) Send(ctx context.Context, phone, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(phone, "+"),
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	b, _ := json.Marshal(payload)
	endpoint := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp send http %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	return nil
}
