package persistence

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiRepo obtains completions from the Gemini API.
type GeminiRepo struct {
	client      *genai.Client
	model       string
	temperature float32
	topK        float32
	topP        float32
}

func NewGeminiRepo(ctx context.Context, apiKey, model string, temperature, topK, topP float64) (*GeminiRepo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiRepo{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		topK:        float32(topK),
		topP:        float32(topP),
	}, nil
}

func (r *GeminiRepo) Complete(ctx context.Context, prompt string, systemInstruction string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(r.temperature),
		TopK:             genai.Ptr(r.topK),
		TopP:             genai.Ptr(r.topP),
		ResponseMIMEType: "application/json",
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	return resp.Text(), nil
}
