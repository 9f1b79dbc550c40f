package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
)

// OllamaService runs the small local model used for chat titles and the
// about-me summary. Kept separate from the Gemini gateway so the cheap
// housekeeping calls never touch the paid API.
type OllamaService interface {
	TitleFor(ctx context.Context, text string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

type ollamaService struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
	model   string
}

// NewOllamaService builds the small-model client. A missing base URL does
// not abort startup; the service is returned anyway and every call reports
// unavailable, same as the Gemini gateway when it has no API key.
func NewOllamaService(log *logger.Logger, baseURL, model string) (OllamaService, error) {
	serviceLog := log.With("service", "OllamaService")
	if model == "" {
		model = "llama3.2:3b"
	}
	svc := &ollamaService{
		log:     serviceLog,
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
	}
	if baseURL == "" {
		return svc, fmt.Errorf("missing Ollama base URL")
	}
	return svc, nil
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (os *ollamaService) generate(ctx context.Context, prompt string) (string, error) {
	if os.baseURL == "" {
		return "", apperr.Unavailable("Ollama service is not available")
	}
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  os.model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, os.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := os.client.Do(req)
	if err != nil {
		os.log.Warn("failed to call ollama", "error", err)
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		os.log.Warn("ollama responded with non-2xx", "statusCode", resp.StatusCode, "body", string(bodyBytes))
		return "", fmt.Errorf("ollama HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		os.log.Warn("failed to decode ollama response", "error", err)
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}

func (os *ollamaService) TitleFor(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Given this text, generate a concise 3-5 word title that summarizes it:

Text: %s

Title (only 3-5 words, no punctuation):`, text)
	raw, err := os.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return cleanTitle(raw), nil
}

func (os *ollamaService) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following text into 3-5 concise bullet points:

Text: %s

Bullet points:`, text)
	return os.generate(ctx, prompt)
}

// cleanTitle strips quote characters and caps the title at five words.
func cleanTitle(title string) string {
	title = strings.NewReplacer(`"`, "", "'", "").Replace(title)
	words := strings.Fields(title)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}
