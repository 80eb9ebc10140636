// Package classifier identifies the name, email and phone columns of an
// attendee upload.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/JonMunkholm/attendee-import/internal/core"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const systemPrompt = `You label the columns of an attendee spreadsheet.
Given the header labels and sample rows, reply with a JSON object holding
nameColumn, emailColumn and phoneColumn. Each value must be one of the header
labels copied exactly, or an empty string when no column fits.`

// generator is the subset of *genai.Models used by GenAI.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAI classifies columns with a Gemini model.
type GenAI struct {
	models  generator
	model   string
	timeout time.Duration
}

// NewGenAI creates a Gemini-backed classifier.
func NewGenAI(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAI, error) {
	if apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGenAI(client.Models, model, timeout), nil
}

func newGenAI(models generator, model string, timeout time.Duration) *GenAI {
	if model == "" {
		model = DefaultModel
	}
	return &GenAI{models: models, model: model, timeout: timeout}
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"nameColumn":  {Type: genai.TypeString},
		"emailColumn": {Type: genai.TypeString},
		"phoneColumn": {Type: genai.TypeString},
	},
}

// Classify asks the model for the header labels of the name, email and phone
// columns. Transport and decoding failures are returned; there is no retry.
func (g *GenAI) Classify(ctx context.Context, headers []string, sample string) (core.ColumnSuggestion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var zero float32
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(buildPrompt(headers, sample), genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    responseSchema,
			Temperature:       &zero,
		},
	)
	if err != nil {
		return core.ColumnSuggestion{}, fmt.Errorf("GenAI classify failed: %w", err)
	}
	if resp == nil {
		return core.ColumnSuggestion{}, errors.New("GenAI classify failed: empty response")
	}

	return parseSuggestion(resp.Text())
}

func buildPrompt(headers []string, sample string) string {
	var b strings.Builder
	b.WriteString("Headers:\n")
	for _, h := range headers {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	b.WriteString("\nSample rows:\n")
	b.WriteString(sample)
	return b.String()
}

// parseSuggestion decodes the model's JSON answer, tolerating a fenced
// code block around it.
func parseSuggestion(text string) (core.ColumnSuggestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return core.ColumnSuggestion{}, errors.New("GenAI classify failed: no content")
	}

	var s core.ColumnSuggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return core.ColumnSuggestion{}, fmt.Errorf("decode classification: %w", err)
	}

	s.NameColumn = strings.TrimSpace(s.NameColumn)
	s.EmailColumn = strings.TrimSpace(s.EmailColumn)
	s.PhoneColumn = strings.TrimSpace(s.PhoneColumn)
	return s, nil
}

// Name returns the classifier name.
func (g *GenAI) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}
