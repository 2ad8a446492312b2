package persistence

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixbrock/promptstudio/internal/app"
)

type reqConfig struct {
	Method    string
	Url       string
	Headers   []string
	UrlParams []string
	Body      []byte
}

type StatusError struct {
	Code     int
	Expected int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status code error: got %d, want %d", e.Code, e.Expected)
}

func request[T any](ctx context.Context, config reqConfig, expectedResCode int) (*T, error) {
	url := config.Url
	if len(config.UrlParams) > 0 {
		url = fmt.Sprintf("%s?%s", url, strings.Join(config.UrlParams, "&"))
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, url, bytes.NewBuffer(config.Body))

	if err != nil {
		return nil, err
	}

	for i := 0; i < len(config.Headers); i++ {
		headerKV := strings.SplitN(config.Headers[i], ":", 2)
		if len(headerKV) != 2 {
			return nil, fmt.Errorf("malformed header %q", headerKV[0])
		}
		req.Header.Add(strings.TrimSpace(headerKV[0]), strings.TrimSpace(headerKV[1]))
	}

	resp, err := http.DefaultClient.Do(req)

	if err != nil {
		return nil, err
	}

	body, err := app.Read(resp.Body)

	if err != nil {
		return nil, err
	} else if resp.StatusCode != expectedResCode {
		return nil, &StatusError{Code: resp.StatusCode, Expected: expectedResCode, Body: string(body)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		var t T
		return &t, nil
	}

	var t *T
	t, err = app.ReadJSON[T](body)

	if err != nil {
		return nil, err
	}

	return t, nil
}
