// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr talks to a vision-model OCR server that exposes an
// OpenAI-compatible chat-completions API, and rasterizes PDFs into page
// images for it.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/pkg/types"
)

const pagePrompt = "Read this page carefully. Extract all content into a single Markdown format.\n" +
	"1. Transcribe text exactly as it appears.\n" +
	"2. Convert all mathematical formulas into LaTeX format (enclose in $$).\n" +
	"3. Detect tables and convert them into Markdown tables.\n" +
	"Do not summarize or skip any content."

// Client is an OCR backend reachable over HTTP.
type Client struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	HTTP      *http.Client
	Log       *zap.Logger
}

// NewClient builds a Client from cfg. A nil httpClient uses a client
// without an overall timeout; callers bound each page with a context.
func NewClient(cfg types.OCRConfig, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
		HTTP:      httpClient,
		Log:       log,
	}
}

// Name identifies the backend in artifact provenance details.
func (c *Client) Name() string { return c.Model }

// Probe reports whether the server answers within timeout. It tries
// /health first and falls back to /v1/models for servers without a health
// route. Any error counts as unavailable.
func (c *Client) Probe(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, path := range []string{"/health", "/v1/models"} {
		if c.get(ctx, path) {
			return true
		}
		if ctx.Err() != nil {
			break
		}
	}
	c.Log.Info("OCR backend unavailable", zap.String("base_url", c.BaseURL))
	return false
}

func (c *Client) get(ctx context.Context, path string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return false
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OCRPage transcribes one JPEG page image to Markdown.
func (c *Client) OCRPage(ctx context.Context, image []byte) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)}},
				{Type: "text", Text: pagePrompt},
			},
		}},
		Temperature: 0,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: OCR request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: OCR server returned HTTP %d: %s", types.ErrTransport, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding OCR response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("OCR response has no choices")
	}
	text := strings.TrimSpace(cr.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("OCR returned empty text")
	}
	return text, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
