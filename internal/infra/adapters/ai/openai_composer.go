package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.ReminderComposer = (*OpenAIComposer)(nil)

// OpenAIComposer drafts reminder copy with the Chat Completions API. Any API
// failure falls back to the static template, so a model outage never blocks
// recovery sends.
type OpenAIComposer struct {
	client openai.Client
	model  string
	log    *zerolog.Logger
}

func NewOpenAIComposer(apiKey, model string, logger *zerolog.Logger) *OpenAIComposer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	l := logger.With().Str("component", "OpenAIComposer").Logger()
	return &OpenAIComposer{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithRequestTimeout(20*time.Second)),
		model:  model,
		log:    &l,
	}
}

func (c *OpenAIComposer) Compose(ctx context.Context, planName, amount, currency, paymentURL string) (adapter.ReminderCopy, error) {
	prompt := fmt.Sprintf(
		"Write a short, friendly payment reminder email body (max 80 words) for a customer who started buying the %q IPTV plan for %s %s but did not finish. Include this checkout link exactly once: %s. No subject line, no placeholders.",
		planName, amount, currency, paymentURL,
	)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write concise transactional emails for an IPTV subscription service."),
			openai.UserMessage(prompt),
		},
	})
	if err == nil && len(resp.Choices) > 0 {
		body := strings.TrimSpace(resp.Choices[0].Message.Content)
		if body != "" && strings.Contains(body, paymentURL) {
			return adapter.ReminderCopy{
				Subject: fmt.Sprintf("Your %s order is waiting", planName),
				Body:    body,
			}, nil
		}
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("completion failed; using template copy")
	}
	return TemplateCopy(planName, amount, currency, paymentURL), nil
}

// TemplateCopy is the static fallback used when no model is configured or a
// completion fails.
func TemplateCopy(planName, amount, currency, paymentURL string) adapter.ReminderCopy {
	return adapter.ReminderCopy{
		Subject: fmt.Sprintf("Your %s order is waiting", planName),
		Body: fmt.Sprintf(
			"Hi! You were moments away from activating the %s plan (%s %s). Your checkout is still open. Finish your purchase here: %s",
			planName, amount, currency, paymentURL,
		),
	}
}

// TemplateComposer serves deployments without an API key.
type TemplateComposer struct{}

var _ adapter.ReminderComposer = (*TemplateComposer)(nil)

func NewTemplateComposer() *TemplateComposer { return &TemplateComposer{} }

func (TemplateComposer) Compose(ctx context.Context, planName, amount, currency, paymentURL string) (adapter.ReminderCopy, error) {
	return TemplateCopy(planName, amount, currency, paymentURL), nil
}
