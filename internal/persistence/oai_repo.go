package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const oaiChatUrl = "https://api.openai.com/v1/chat/completions"

// OAIRepo obtains completions from the OpenAI chat completions API.
type OAIRepo struct {
	BaseHeaders []string
	BaseUrl     string
	Model       string
	Temperature float64
	TopP        float64
}

func NewOAIRepo(apiKey, model string, temperature, topP float64) OAIRepo {
	if model == "" {
		model = "gpt-4o-mini"
	}

	return OAIRepo{
		BaseHeaders: []string{
			"Content-Type:application/json",
			fmt.Sprintf("Authorization:Bearer %s", apiKey),
		},
		BaseUrl:     oaiChatUrl,
		Model:       model,
		Temperature: temperature,
		TopP:        topP,
	}
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiChatRequest struct {
	Model          string            `json:"model"`
	Messages       []oaiMessage      `json:"messages"`
	Temperature    float64           `json:"temperature"`
	TopP           float64           `json:"top_p,omitempty"`
	ResponseFormat oaiResponseFormat `json:"response_format"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type oaiChatResponse struct {
	Id      string      `json:"id"`
	Choices []oaiChoice `json:"choices"`
}

func (r OAIRepo) Complete(ctx context.Context, prompt string, systemInstruction string) (string, error) {
	body, err := json.Marshal(oaiChatRequest{
		Model: r.Model,
		Messages: []oaiMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		Temperature:    r.Temperature,
		TopP:           r.TopP,
		ResponseFormat: oaiResponseFormat{Type: "json_object"},
	})

	if err != nil {
		return "", err
	}

	url := r.BaseUrl
	if url == "" {
		url = oaiChatUrl
	}

	completion, err := request[oaiChatResponse](ctx, reqConfig{Method: "POST", Url: url, Headers: r.BaseHeaders, Body: body}, 200)

	if err != nil {
		return "", err
	} else if completion == nil || len(completion.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
