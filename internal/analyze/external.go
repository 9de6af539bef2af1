package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultExternalBaseURL = "https://api.openai.com/v1"

// externalAnalyzer delegates the analyze stage to an OpenAI-compatible chat
// endpoint. The model must answer with the strict JSON payload below; a
// malformed or empty answer is a hard failure of the stage, never partially
// trusted.
type externalAnalyzer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type externalConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	TimeoutSec int    `json:"timeout_sec"`
}

type externalChatRequest struct {
	Model    string            `json:"model"`
	Messages []externalChatMsg `json:"messages"`
	Stream   bool              `json:"stream"`
}

type externalChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type externalChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func newExternalAnalyzer(args interface{}) (Analyzer, error) {
	cfg := &externalConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("external analyzer: api_key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("external analyzer: model is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultExternalBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &externalAnalyzer{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		model:   strings.TrimSpace(cfg.Model),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *externalAnalyzer) Name() string {
	return "external"
}

func (a *externalAnalyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	endpoint := strings.TrimRight(a.baseURL, "/") + "/chat/completions"
	body := externalChatRequest{
		Model:    a.model,
		Messages: []externalChatMsg{{Role: "user", Content: buildAnalysisPrompt(req)}},
		Stream:   false,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("external analyzer request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	var out externalChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("external analyzer response has no choices")
	}
	return parseAnalysisPayload(out.Choices[0].Message.Content, req)
}

func buildAnalysisPrompt(req AnalyzeRequest) string {
	length := "two to three sentences"
	if req.SummaryLength == "short" {
		length = "one sentence"
	}
	return fmt.Sprintf(`You are a content analyst.
Analyze the text below and answer with ONLY a JSON object, no markdown fences:
{"title": string, "summary_short": string (%s), "summary_long": string,
 "tags": [string], "hashtags": [string], "category": string,
 "confidence": number between 0 and 1, "low_content": boolean}
- Use the same language as the content.
- low_content is true when the text is too short to summarize meaningfully.

TEXT:
%s`, length, req.Content)
}

// parseAnalysisPayload validates the provider answer against the fixed field
// set. Anything that does not decode as the expected object fails the stage.
func parseAnalysisPayload(raw string, req AnalyzeRequest) (*Analysis, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload Analysis
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed analyzer payload: %w", err)
	}
	if payload.Title == "" && payload.SummaryShort == "" && payload.SummaryLong == "" {
		return nil, fmt.Errorf("analyzer payload is empty")
	}
	if payload.Confidence < 0 || payload.Confidence > 1 {
		return nil, fmt.Errorf("analyzer payload confidence %f out of range", payload.Confidence)
	}
	if !req.AutoCategory {
		payload.Category = ""
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	if payload.Hashtags == nil {
		payload.Hashtags = []string{}
	}
	return &payload, nil
}

func init() {
	Register("external", newExternalAnalyzer)
}
