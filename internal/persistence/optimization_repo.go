package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixbrock/promptstudio/internal/domain"
)

// OptimizationRepo archives canonical results in a PostgREST table.
type OptimizationRepo struct {
	BaseHeaders []string
	BaseUrl     string
}

func NewOptimizationRepo(baseUrl, apiKey string) OptimizationRepo {
	return OptimizationRepo{
		BaseHeaders: []string{
			"Content-Type:application/json",
			"Prefer:return=representation",
			fmt.Sprintf("apikey:%s", apiKey),
			fmt.Sprintf("Authorization:Bearer %s", apiKey),
		},
		BaseUrl: baseUrl,
	}
}

func (r OptimizationRepo) Insert(ctx context.Context, optimization domain.Optimization) error {
	body, err := json.Marshal(optimization)

	if err != nil {
		return err
	}

	_, err = request[[]domain.Optimization](ctx, reqConfig{Method: "POST", Url: r.BaseUrl, Body: body, Headers: r.BaseHeaders}, 201)

	if err != nil {
		return err
	}

	return nil
}

func (r OptimizationRepo) Read(ctx context.Context, id string) (*domain.Optimization, error) {
	records, err := request[[]domain.Optimization](ctx, reqConfig{
		Method:    "GET",
		Url:       r.BaseUrl,
		UrlParams: []string{fmt.Sprintf("id=eq.%s", id)},
		Headers:   r.BaseHeaders},
		200)

	if err != nil {
		return nil, err
	} else if records == nil || len(*records) == 0 {
		return nil, fmt.Errorf("optimization %s not found", id)
	}

	return &(*records)[0], nil
}
