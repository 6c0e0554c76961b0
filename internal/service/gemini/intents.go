package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
)

const DefaultModel = "gemini-2.5-flash"

// Generator is the part of genai.Models the extractor uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// IntentExtractor asks Gemini to split free text into holding statements.
type IntentExtractor struct {
	models Generator
	model  string
}

var _ repository.IntentExtractor = (*IntentExtractor)(nil)

// NewIntentExtractor connects to the Gemini API. An empty key is a
// configuration error.
func NewIntentExtractor(ctx context.Context, apiKey, model string) (*IntentExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key: %w", models.ErrMisconfigured)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return NewIntentExtractorWithGenerator(client.Models, model), nil
}

func NewIntentExtractorWithGenerator(g Generator, model string) *IntentExtractor {
	if model == "" {
		model = DefaultModel
	}
	return &IntentExtractor{models: g, model: model}
}

var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"holdings": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent": {
						Type:        genai.TypeString,
						Description: "The company or ticker exactly as the user referred to it.",
					},
					"shares": {
						Type:        genai.TypeNumber,
						Description: "Number of shares held, 0 when not stated.",
					},
				},
				Required: []string{"intent", "shares"},
			},
		},
	},
	Required: []string{"holdings"},
}

const instruction = `You extract stock holdings from a user's description of their portfolio.
Return one entry per company or ticker mentioned, in the order mentioned.
Do not guess ticker symbols; copy the user's wording for each company.`

type intentResponse struct {
	Holdings []models.Intent `json:"holdings"`
}

func (e *IntentExtractor) ExtractIntents(ctx context.Context, text string) ([]models.Intent, error) {
	resp, err := e.models.GenerateContent(ctx, e.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    intentSchema,
	})
	if err != nil {
		return nil, models.NewProviderError("gemini", models.ErrTransient, err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}
	var parsed intentResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode intents: %w", err)
	}

	out := parsed.Holdings[:0]
	for _, in := range parsed.Holdings {
		in.Intent = strings.TrimSpace(in.Intent)
		if in.Intent == "" {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}
