package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	APIKey    string
	Model     string
	Providers []string
	// Endpoint overrides the OpenRouter URL (tests).
	Endpoint string
	Timeout  time.Duration
}

// ErrNoText is returned when the model reports that the image has no text.
var ErrNoText = errors.New("no text detected in image")

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	Quantizations  []string `json:"quantizations,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number
}

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	noTextMarker  = "NO_TEXT_FOUND"
	ocrPrompt     = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
		"- No formatting\n" +
		"- No XML/HTML tags\n" +
		"- No markdown\n" +
		"- No explanations\n" +
		"- Preserve line breaks accurately from the visual layout.\n" +
		"If no text found, return '" + noTextMarker + "'"
)

// Client talks to an OpenRouter vision model.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = openRouterURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) validate() error {
	if c == nil {
		return fmt.Errorf("LLM client not initialized")
	}
	if c.cfg.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.cfg.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

func (c *Client) providerPreferences() *ProviderPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

// Ping sends a minimal text prompt to verify the key and model.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.validate(); err != nil {
		return err
	}
	req := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{{
			Role:    "user",
			Content: []Content{{Type: "text", Text: "ping"}},
		}},
		MaxTokens: 1,
		Provider:  c.providerPreferences(),
	}
	_, err := c.do(ctx, req)
	return err
}

// QueryVision sends a PNG to the vision model and returns the extracted text.
// A single attempt is made; callers own retry policy.
func (c *Client) QueryVision(ctx context.Context, pngData []byte) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	req := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{{
			Role: "user",
			Content: []Content{
				{Type: "text", Text: ocrPrompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    c.providerPreferences(),
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	text := cleanExtractedText(resp.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" || strings.TrimSpace(text) == noTextMarker {
		return "", ErrNoText
	}
	return text, nil
}

func (c *Client) do(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Title", "Screen Schedule")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	log.Printf("llm: status=%d bytes=%d elapsed=%v", resp.StatusCode, len(body), time.Since(start))

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &response, nil
}

func cleanExtractedText(text string) string {
	text = strings.TrimSuffix(text, "</image>")
	return text
}
