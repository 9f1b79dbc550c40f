package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
)

const (
	askModelName        = "gemini-2.5-flash"
	attachmentModelName = "gemini-2.5-flash-lite"

	consultSystemInstruction = `## Role
You are a highly qualified Medical Consultant specializing in health guidance for the Indian population. Your goal is to provide evidence-based, concise, and culturally relevant medical information.

## Core Guidelines
1. **Context & Scope:** Use provided context (medical history/lab results) as the primary source of truth. If a query is non-medical, state: "I am specialized in medical queries only and cannot assist with this topic."
2. **Indian Context:** Use metric units (cm, kg, Celsius) and common Indian health terminology. Acknowledge local factors where relevant (e.g., climate-related illness, common dietary habits).
3. **Response Structure:** Use Markdown (bolding, bullet points, numbered lists) for scannability. Limit response to 200 words.

## Symptom Analysis & Triage
If a user presents symptoms, you must include a **Triage Analysis** section at the beginning:
- **Risk Level:** (Low / Moderate / High)
- **Urgency:** (Monitor / Schedule Appointment / Urgent Care)
- **Status:** (Routine / Emergency)

If the condition appears critical (e.g., chest pain, difficulty breathing, severe bleeding), immediately advise the user to call 102 or 108 (India Emergency Services) or visit the nearest Accident & Emergency (A&E) ward.

## General Queries
For non-symptomatic queries (e.g., "What is Vitamin D?"), provide a direct, informative explanation without the triage block.`

	attachmentSystemInstruction = `You are an expert at answering medical questions.
Procedure:
- Analyze the file. The file may be a medical image or a medical report.
- If the content of the file is irrelevant to medical topics, politely inform the user that you can only answer medical questions.
- If the content is relevant, provide a concise response to the requested prompt.
- If the user prompt is unclear or missing, summarize the main points from the file.
- Ensure the response is clear, accurate, and easy to understand.`
)

// HistoryTurn is one prior exchange the client replays with its query.
type HistoryTurn struct {
	Role  string   `json:"role"`
	Parts []string `json:"parts"`
}

type AssistantService interface {
	Ask(ctx context.Context, query string, history []HistoryTurn) (string, error)
	AskWithAttachment(ctx context.Context, filename string, data []byte, prompt string) (string, error)
	Close()
}

type assistantService struct {
	log    *logger.Logger
	client *genai.Client
}

// NewAssistantService builds the Gemini gateway. A missing API key or failed
// client init does not abort startup; the service is returned anyway and
// every call reports unavailable, matching how the process behaves when the
// external model cannot be reached.
func NewAssistantService(ctx context.Context, log *logger.Logger, apiKey string) (AssistantService, error) {
	serviceLog := log.With("service", "AssistantService")
	svc := &assistantService{log: serviceLog}
	if apiKey == "" {
		return svc, fmt.Errorf("missing GEMINI_API_KEY environment variable")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return svc, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	svc.client = client
	return svc, nil
}

func (as *assistantService) Close() {
	if as.client != nil {
		if err := as.client.Close(); err != nil {
			as.log.Warn("failed to close Gemini client cleanly", "error", err)
		}
	}
}

func (as *assistantService) Ask(ctx context.Context, query string, history []HistoryTurn) (string, error) {
	if as.client == nil {
		return "", apperr.Unavailable("Gemini service is not available")
	}
	model := as.client.GenerativeModel(askModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(consultSystemInstruction)},
	}

	session := model.StartChat()
	for _, turn := range history {
		content := &genai.Content{Role: turn.Role}
		for _, p := range turn.Parts {
			content.Parts = append(content.Parts, genai.Text(p))
		}
		session.History = append(session.History, content)
	}

	resp, err := session.SendMessage(ctx, genai.Text(strings.TrimSpace(query)))
	if err != nil {
		as.log.Warn("gemini ask failed", "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return responseText(resp)
}

func (as *assistantService) AskWithAttachment(ctx context.Context, filename string, data []byte, prompt string) (string, error) {
	if as.client == nil {
		return "", apperr.Unavailable("Gemini service is not available")
	}
	mimeType, err := ValidateAttachment(filename)
	if err != nil {
		return "", err
	}

	if IsImageAttachment(filename) {
		// Re-encode uploads as plain RGB JPEG so odd color models and EXIF
		// rotations do not reach the model.
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return "", apperr.Validation("Uploaded image could not be decoded")
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
			return "", fmt.Errorf("failed to re-encode image: %w", err)
		}
		data = buf.Bytes()
		mimeType = "image/jpeg"
	}

	model := as.client.GenerativeModel(attachmentModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(attachmentSystemInstruction)},
	}

	parts := []genai.Part{genai.Blob{MIMEType: mimeType, Data: data}}
	if strings.TrimSpace(prompt) != "" {
		parts = append(parts, genai.Text(prompt))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		as.log.Warn("gemini attachment call failed", "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return sb.String(), nil
}

var attachmentMIMETypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ValidateAttachment checks the filename suffix against the allowed set and
// returns the matching MIME type. It runs before any external call.
func ValidateAttachment(filename string) (string, error) {
	lower := strings.ToLower(filename)
	for ext, mime := range attachmentMIMETypes {
		if strings.HasSuffix(lower, ext) {
			return mime, nil
		}
	}
	return "", apperr.Validation("Unsupported file type. Allowed: .pdf, .png, .jpg, .jpeg")
}

// IsImageAttachment reports whether the filename names an image upload
// rather than a PDF.
func IsImageAttachment(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".png") ||
		strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg")
}
