package app

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
)

type component interface {
	Render(ctx context.Context, w io.Writer) error
}

type ComponentResponse struct {
	Error       error
	Message     string
	Code        int
	ContentType string
	Headers     map[string]string
	Component   component
}

type ComponentHandler func(http.ResponseWriter, *http.Request) *ComponentResponse

func (ch ComponentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := ch(w, r)

	if resp.Error != nil {
		zap.S().Errorw("Error occured", "error", resp.Error.Error(), "path", r.URL.Path, "code", resp.Code)
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}

	code := resp.Code
	// htmx only swaps 2xx responses, so error components go out as 200.
	if code >= 300 && r.Header.Get("HX-Request") == "true" {
		w.Header().Set("X-Status", http.StatusText(code))
		code = http.StatusOK
	}
	if code != 0 {
		w.WriteHeader(code)
	}

	if resp.Component == nil {
		return
	}

	err := resp.Component.Render(r.Context(), w)

	if err != nil {
		zap.S().Errorw("Error occured", "error", err.Error(), "path", r.URL.Path)
		http.Error(w, "templ: failed to render template", 500)
	}
}
