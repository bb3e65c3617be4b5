// Package arbiter provides a client for the LLM answer-judging service.
package arbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mbeaufort/pitchrally/internal/logger"
)

// DefaultTimeout bounds a single judgement call. Rallies run on a turn
// clock, so a slow arbiter must not stall the match.
const DefaultTimeout = 15 * time.Second

// Question describes what the arbiter is asked to judge.
type Question struct {
	// Answer is the player's raw answer text.
	Answer string
	// CategoryTitle is the human-readable category requirement.
	CategoryTitle string
	// EntityName is the resolved entity's canonical name, empty when no
	// entity matched and the arbiter must judge the raw answer alone.
	EntityName string
	// Season is the category's season context, if any.
	Season string
}

// VerifiedFact is a fact claim the arbiter produced to back its verdict.
type VerifiedFact struct {
	FactType string  `json:"fact_type"`
	Value    float64 `json:"value"`
	Scope    string  `json:"scope"`
	Season   string  `json:"season"`
}

// Verdict is the arbiter's judgement of an answer.
type Verdict struct {
	Valid      bool           `json:"valid"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Facts      []VerifiedFact `json:"facts"`
}

// Client defines the interface for arbiter operations
type Client interface {
	// Judge asks the arbiter whether an answer satisfies a category
	Judge(ctx context.Context, q Question) (*Verdict, error)
	// BaseURL returns the configured arbiter base URL
	BaseURL() string
}

// HTTPClient is a real client speaking the chat-completions wire format
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new arbiter HTTP client
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration, log logger.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// BaseURL returns the configured arbiter base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You are a football trivia judge. Decide whether the given answer satisfies the category requirement. Respond with a JSON object: {"valid": bool, "confidence": number between 0 and 1, "reason": string, "facts": [{"fact_type": string, "value": number, "scope": string, "season": string}]}. Include facts only when you can state the concrete statistic that makes the answer valid.`

// Judge asks the arbiter whether an answer satisfies a category
func (c *HTTPClient) Judge(ctx context.Context, q Question) (*Verdict, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Category: %s\n", q.CategoryTitle)
	if q.Season != "" {
		fmt.Fprintf(&prompt, "Season: %s\n", q.Season)
	}
	if q.EntityName != "" {
		fmt.Fprintf(&prompt, "Resolved entity: %s\n", q.EntityName)
	}
	fmt.Fprintf(&prompt, "Answer: %s", q.Answer)

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt.String()},
		},
		Temperature: 0.3,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	apiURL := c.baseURL + "/v1/chat/completions"
	c.log.Debug("Arbiter request", "url", apiURL, "category", q.CategoryTitle, "answer", q.Answer)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to arbiter: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Arbiter response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arbiter returned status %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("arbiter returned no choices")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}

	// Clamp confidence into [0, 1]; models occasionally return percentages
	if verdict.Confidence > 1 {
		verdict.Confidence = verdict.Confidence / 100
	}
	if verdict.Confidence < 0 {
		verdict.Confidence = 0
	}
	if verdict.Confidence > 1 {
		verdict.Confidence = 1
	}

	return &verdict, nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
