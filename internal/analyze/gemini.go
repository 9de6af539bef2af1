package analyze

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// geminiAnalyzer is the Gemini-backed variant of the external analyze
// strategy. It shares the strict payload contract with the generic external
// provider.
type geminiAnalyzer struct {
	apiKey string
	model  string
}

func newGeminiAnalyzer(args interface{}) (Analyzer, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini analyzer: api_key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini analyzer: model is required")
	}
	return &geminiAnalyzer{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

func (a *geminiAnalyzer) Name() string {
	return "gemini"
}

func (a *geminiAnalyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		a.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: buildAnalysisPrompt(req)}}}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return parseAnalysisPayload(resp.Text(), req)
}

func init() {
	Register("gemini", newGeminiAnalyzer)
}
