// Package enrichment consumes the LLM-backed job-intelligence service. The
// service internals are opaque: prompts go out, JSON with a documented field
// shape comes back.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Intelligence is the documented output shape extracted from free-text job
// descriptions.
type Intelligence struct {
	Requirements []string `json:"requirements"`
	Skills       []string `json:"skills"`
	Experience   string   `json:"experience"`
	Education    string   `json:"education"`
	RemoteType   string   `json:"remote_type"`
	Category     string   `json:"category"`
	Keywords     []string `json:"keywords"`
	Tags         []string `json:"tags"`
	Confidence   float64  `json:"confidence"`
}

// Client abstracts the enrichment call for test injection.
type Client interface {
	Enrich(ctx context.Context, title, description string) (Intelligence, error)
}

// Config holds the chat-completions endpoint settings.
type Config struct {
	APIBase string
	APIKey  string
	Model   string
}

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

// NewHTTPClient applies defaults and builds the client.
func NewHTTPClient(cfg Config, httpClient *http.Client) *HTTPClient {
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{cfg: cfg, client: httpClient}
}

const systemPrompt = "You extract structured hiring intelligence from job postings. " +
	"Respond with a single JSON object containing requirements, skills, experience, " +
	"education, remote_type, category, keywords, tags and confidence."

func (c *HTTPClient) Enrich(ctx context.Context, title, description string) (Intelligence, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return Intelligence{}, fmt.Errorf("enrichment api key missing")
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Job title: %s\n\n%s", title, description)},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Intelligence{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.APIBase, "/")+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return Intelligence{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Intelligence{}, fmt.Errorf("enrichment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Intelligence{}, fmt.Errorf("enrichment http %d", resp.StatusCode)
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Intelligence{}, fmt.Errorf("decode enrichment response: %w", err)
	}
	if len(body.Choices) == 0 || body.Choices[0].Message.Content == "" {
		return Intelligence{}, fmt.Errorf("enrichment response empty")
	}

	var intel Intelligence
	if err := json.Unmarshal([]byte(body.Choices[0].Message.Content), &intel); err != nil {
		return Intelligence{}, fmt.Errorf("parse intelligence: %w", err)
	}
	return intel, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
