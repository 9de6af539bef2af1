package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the structured output of the analyze stage. Both the heuristic
// and the external analyzers must fill the same field set.
type Analysis struct {
	Title        string   `json:"title"`
	SummaryShort string   `json:"summary_short"`
	SummaryLong  string   `json:"summary_long"`
	Tags         []string `json:"tags"`
	Hashtags     []string `json:"hashtags"`
	Category     string   `json:"category"`
	Confidence   float64  `json:"confidence"`
	LowContent   bool     `json:"low_content"`
}

// AnalyzeRequest carries the per-call options of the analyze stage.
type AnalyzeRequest struct {
	Content       string
	SummaryLength string
	AutoCategory  bool
}

// Analyzer turns extracted text into an Analysis. A returned error means the
// stage failed as a whole; the caller degrades the outcome rather than
// discarding the already-fetched content.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)
}

type AnalyzerFactory func(args interface{}) (Analyzer, error)

var registry = map[string]AnalyzerFactory{}

func Register(name string, factory AnalyzerFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

// NewAnalyzer builds the analyzer selected by configuration. An unrecognized
// provider name is a configuration error, not a fallback to heuristic.
func NewAnalyzer(name string, args interface{}) (Analyzer, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("analyzer.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported analyzer provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("analyzer provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode analyzer config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode analyzer config: %w", err)
	}
	return nil
}
