package persistence

import (
	"context"
	"encoding/json"
)

const phCaptureUrl = "https://eu.posthog.com/capture/"

type PHRepo struct {
	BaseHeaders []string
	BaseUrl     string
	ApiKey      string
}

func NewPHRepo(apiKey string) PHRepo {
	return PHRepo{BaseHeaders: []string{"Content-Type:application/json"}, BaseUrl: phCaptureUrl, ApiKey: apiKey}
}

type phEvent struct {
	ApiKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// Capture sends one usage event. Properties must not carry prompt text.
func (r PHRepo) Capture(ctx context.Context, eventType string, distinctId string, properties map[string]any) error {
	props := map[string]any{"distinct_id": distinctId}
	for k, v := range properties {
		props[k] = v
	}

	body, err := json.Marshal(phEvent{ApiKey: r.ApiKey, Event: eventType, Properties: props})

	if err != nil {
		return err
	}

	url := r.BaseUrl
	if url == "" {
		url = phCaptureUrl
	}

	_, err = request[struct{}](ctx, reqConfig{Method: "POST", Url: url, Headers: r.BaseHeaders, Body: body}, 200)

	if err != nil {
		return err
	}

	return nil
}
