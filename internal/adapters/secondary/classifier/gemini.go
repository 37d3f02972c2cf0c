package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const systemPrompt = `You are an expert assistant that processes technical support tickets.

Your job is to:
1. Summarize the issue.
2. Estimate its priority.
3. Provide helpful notes and resource links for human moderators.
4. List relevant technical skills required.

IMPORTANT:
- Respond with *only* valid raw JSON.
- Do NOT include markdown, code fences, comments, or any extra formatting.
- The format must be a raw JSON object.

Repeat: Do not wrap your output in markdown or code fences.`

const userPromptFormat = `Analyze the following support ticket and provide a JSON object with:

- summary: A short 1-2 sentence summary of the issue.
- priority: One of "low", "medium", or "high".
- helpfulNotes: A detailed technical explanation that a moderator can use to solve this issue. Include useful external links or resources if possible.
- relatedSkills: An array of relevant skills required to solve the issue (e.g., ["React", "MongoDB"]).

---

Ticket information:

- Title: %s
- Description: %s`

// fencedJSON extracts a markdown-fenced json block; models ignore the
// no-fences instruction often enough that salvage is worth it.
var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// Config for the Gemini classifier adapter.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClassifier calls the Gemini generateContent REST endpoint to
// classify a ticket. Transport and protocol failures return errors (the
// orchestrator retries them); output that does not parse into a
// Classification returns (nil, nil).
type GeminiClassifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

var _ ports.Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier creates a new classifier adapter.
func NewGeminiClassifier(cfg Config, logger *slog.Logger) *GeminiClassifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClassifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "classifier"),
	}
}

// generateContent wire types, narrowed to the fields this adapter uses.
type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Classify sends the ticket to the model and parses its JSON verdict.
func (c *GeminiClassifier) Classify(ctx context.Context, ticket *domain.Ticket) (*domain.Classification, error) {
	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: fmt.Sprintf(userPromptFormat, ticket.Title, ticket.Description)}},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		c.logger.Warn("model returned no candidates", "ticket_id", ticket.ID)
		return nil, nil
	}

	raw := parsed.Candidates[0].Content.Parts[0].Text
	classification := parseClassification(raw)
	if classification == nil {
		c.logger.Warn("unparsable model output", "ticket_id", ticket.ID, "raw", truncate(raw, 500))
	}
	return classification, nil
}

// parseClassification salvages a fenced json block if present, otherwise
// tries the trimmed raw text. Returns nil when neither parses.
func parseClassification(raw string) *domain.Classification {
	jsonText := strings.TrimSpace(raw)
	if match := fencedJSON.FindStringSubmatch(raw); match != nil {
		jsonText = match[1]
	}

	var c domain.Classification
	if err := json.Unmarshal([]byte(jsonText), &c); err != nil {
		return nil
	}
	return &c
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
