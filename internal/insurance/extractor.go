package insurance

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/pkg/anthropic"
	"github.com/clinic-atlas/directory-cli/pkg/openai"
)

const extractionPrompt = `You are extracting insurance and payment information from a pain management clinic's website.

Analyze the following webpage content and extract:

1. **Insurance Providers**: List all insurance providers/plans mentioned as accepted. Include the full name.
2. **Other Insurance**: Any insurance mentioned that doesn't match common major providers.
3. **Payment Methods**: Payment methods accepted (credit cards, cash, checks, payment plans, financing, HSA/FSA, sliding scale, etc.)
4. **Accepts New Patients**: Whether the clinic explicitly states they accept new patients (true/false/null if not mentioned).

Return ONLY valid JSON in this exact format (no markdown, no explanation):
{
  "insuranceProviders": ["Medicare", "Blue Cross Blue Shield", "Aetna"],
  "otherInsurance": ["Local Plan Name"],
  "paymentMethods": ["Credit Cards", "Cash", "Payment Plans"],
  "acceptsNewPatients": true,
  "confidence": "high"
}

Confidence levels:
- "high": Clear insurance/payment page with explicit listings
- "medium": Insurance/payment info found but possibly incomplete
- "low": Only vague mentions or inferred from context
- "none": No insurance or payment information found

If NO insurance or payment information is found at all, return:
{
  "insuranceProviders": [],
  "otherInsurance": [],
  "paymentMethods": [],
  "acceptsNewPatients": null,
  "confidence": "none"
}

WEBPAGE CONTENT:
`

const openaiSystemPrompt = "You extract structured data from webpage content. Return ONLY valid JSON, no markdown or explanation."

const maxExtractionTokens = 1024

// Provider sends the extraction prompt to one LLM backend and returns
// the raw completion text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnthropicProvider extracts via the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a Provider backed by Anthropic.
func NewAnthropicProvider(client anthropic.Client, model string) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: maxExtractionTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// OpenAIProvider extracts via the OpenAI chat-completions dialect,
// which also covers OpenRouter.
type OpenAIProvider struct {
	client openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates a Provider backed by a chat-completions
// client. name distinguishes "openai" from "openrouter" in logs and
// run history.
func NewOpenAIProvider(client openai.Client, model, name string) *OpenAIProvider {
	return &OpenAIProvider{client: client, model: model, name: name}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := maxExtractionTokens
	resp, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: &maxTokens,
		Messages: []openai.Message{
			{Role: "system", Content: openaiSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Extractor turns gathered page content into a structured Extraction.
type Extractor struct {
	provider Provider
}

// NewExtractor creates an Extractor over a provider.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract prompts the provider with the page content and parses the
// JSON reply.
func (e *Extractor) Extract(ctx context.Context, content string) (*model.Extraction, error) {
	text, err := e.provider.Complete(ctx, extractionPrompt+content)
	if err != nil {
		return nil, eris.Wrapf(err, "insurance: %s completion", e.provider.Name())
	}
	return ParseExtraction(text)
}

// ParseExtraction parses a completion into an Extraction. Models often
// wrap JSON in a markdown code fence despite instructions, so fences
// are tolerated and stripped.
func ParseExtraction(text string) (*model.Extraction, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		parts := strings.Split(text, "```")
		if len(parts) < 2 {
			return nil, eris.New("insurance: unterminated code fence")
		}
		text = parts[1]
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSpace(text)
	}

	var extraction model.Extraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, eris.Wrap(err, "insurance: parse extraction json")
	}
	return &extraction, nil
}
