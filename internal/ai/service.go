package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"datalens/internal/models"
)

// Config holds the connection settings for the external model service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Service talks to an Ollama-compatible completion API. All three operations
// return errors on transport or parse failure; the API layer substitutes the
// safe fallbacks, so a model outage never crashes a session.
type Service struct {
	mu     sync.RWMutex
	config Config
	client *http.Client
}

func NewService(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1:8b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// UpdateConfig swaps the base URL and model at runtime. Empty fields keep
// their current value.
func (s *Service) UpdateConfig(baseURL, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if baseURL != "" {
		s.config.BaseURL = baseURL
	}
	if model != "" {
		s.config.Model = model
	}
}

// CurrentConfig returns the active connection settings.
func (s *Service) CurrentConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends one prompt and returns the raw completion text.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := s.CurrentConfig()

	reqBody := generateRequest{
		Model:  cfg.Model,
		Prompt: prompt,
		Stream: false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", err
	}
	return genResp.Response, nil
}

var jsonRegex = regexp.MustCompile(`\{[\s\S]*\}`)

// extractJSON pulls the first JSON object out of a completion, tolerating
// prose the model wraps around it.
func extractJSON(response string) (string, error) {
	jsonStr := jsonRegex.FindString(response)
	if jsonStr == "" {
		return "", fmt.Errorf("no JSON found in response")
	}
	return jsonStr, nil
}

// AnalyzeDataset asks the model for a schema read, insights, and chart
// recommendations over a sample of rows. The returned chart field names are
// the model's guesses and must be reconciled against the real columns.
func (s *Service) AnalyzeDataset(ctx context.Context, sample []models.Row, sourceName string) (*models.AnalysisResult, error) {
	sampleJSON, err := json.Marshal(sample)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`
You are an expert data analyst. Study this sample from the dataset "%s" and produce an analysis.

Sample rows (JSON):
%s

Return a JSON object with:
- "summary": one paragraph describing the dataset
- "insights": array of 3-5 short observations
- "columns": array of {"name", "type" (numeric|categorical|datetime|text), "missing", "unique", "examples"}
- "recommendedCharts": array of {"id", "type" (bar|line|scatter|pie|area), "title", "description", "xKey", "yKey", "categoryKey"}

Use exact column names from the sample for xKey/yKey/categoryKey.
Return ONLY the JSON.
`, sourceName, string(sampleJSON))

	response, err := s.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonStr, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InterpretQuery turns a free-text question into a structured intent the
// query engine can execute.
func (s *Service) InterpretQuery(ctx context.Context, question string, columns []string) (*models.QueryIntent, error) {
	prompt := fmt.Sprintf(`
You translate questions about a dataset into a structured query intent.

Available columns: %s
Question: %s

Return a JSON object with:
- "type": "query" when the question asks for data, "chat" for conversation, "clarification" when you need more detail
- "filters": array of {"column", "operator" (== | contains | > | < | >= | <=), "value"}
- "groupBy": column to group by (optional)
- "metric": column to aggregate (optional)
- "aggregation": SUM | AVG | COUNT | COUNT_DISTINCT (optional)
- "chartType": bar | line | scatter | pie | area (optional)
- "title": short title for the result (optional)
- "text": your conversational reply

Use exact column names. Return ONLY the JSON.
`, strings.Join(columns, ", "), question)

	response, err := s.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonStr, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var intent models.QueryIntent
	if err := json.Unmarshal([]byte(jsonStr), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// SummarizeResult asks the model to phrase the computed rows as an answer to
// the original question.
func (s *Service) SummarizeResult(ctx context.Context, question string, rows []models.Row) (string, error) {
	subset := rows
	if len(subset) > 10 {
		subset = subset[:10]
	}
	rowsJSON, err := json.Marshal(subset)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`
A user asked: %s

The computed result rows (JSON):
%s

Answer the question in 1-2 plain sentences based only on these rows. No JSON, no markdown.
`, question, string(rowsJSON))

	response, err := s.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}
