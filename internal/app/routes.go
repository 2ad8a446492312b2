package app

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixbrock/promptstudio/internal/components"
	"github.com/felixbrock/promptstudio/internal/diff"
	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/history"
	"github.com/felixbrock/promptstudio/internal/pipeline"
)

const (
	sessionCookie = "sid"
	maxBodyBytes  = 1 << 20
)

type optimizationReq struct {
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions"`
}

type diffReq struct {
	Original  string `json:"original"`
	Optimized string `json:"optimized"`
	Mode      string `json:"mode"`
}

type optimizationResp struct {
	Token   uint64                    `json:"token"`
	EntryId string                    `json:"entryId"`
	Result  domain.OptimizationResult `json:"result"`
	Diff    domain.DiffReport         `json:"diff"`
	Share   string                    `json:"shareLink"`
}

type errorResp struct {
	Title   string                   `json:"title"`
	Message string                   `json:"message"`
	Errors  []domain.ValidationError `json:"errors,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (a *App) render(r *http.Request, code int, html component, data any) *ComponentResponse {
	if wantsJSON(r) {
		return &ComponentResponse{Component: components.JSON(data), Code: code, Message: http.StatusText(code), ContentType: "application/json"}
	}
	return &ComponentResponse{Component: html, Code: code, Message: http.StatusText(code), ContentType: "text/html"}
}

func (a *App) fail(r *http.Request, ec errCtx, err error, msg string, errs ...domain.ValidationError) *ComponentResponse {
	if msg == "" {
		msg = ec.Msg
	}
	details := make([]string, 0, len(errs))
	for _, e := range errs {
		details = append(details, e.Error())
	}

	resp := a.render(r, ec.Code, components.Error(ec.Title, msg, details), errorResp{Title: ec.Title, Message: msg, Errors: errs})
	resp.Error = err
	resp.Message = msg
	return resp
}

// client identifies the browser through the sid cookie, issuing one when
// missing.
func (a *App) client(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})

	return id
}

// decode fills dst from a JSON body or from form values.
func decode(r *http.Request, dst any, form func(get func(string) string)) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		content, err := Read(r.Body)

		if err != nil {
			return err
		}

		return jsonInto(content, dst)
	}

	err := r.ParseForm()

	if err != nil {
		return err
	}

	form(r.PostForm.Get)
	return nil
}

func jsonInto(content []byte, dst any) error {
	switch d := dst.(type) {
	case *optimizationReq:
		v, err := ReadJSON[optimizationReq](content)
		if err != nil {
			return err
		} else if v != nil {
			*d = *v
		}
	case *diffReq:
		v, err := ReadJSON[diffReq](content)
		if err != nil {
			return err
		} else if v != nil {
			*d = *v
		}
	default:
		return fmt.Errorf("unsupported request type %T", dst)
	}
	return nil
}

func (a *App) index(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if r.URL.Path != "/" {
		return a.fail(r, get404(), nil, "")
	} else if r.Method != http.MethodGet {
		return a.fail(r, get405(), nil, "")
	}

	shared, err := ParseShareLink(r.URL.RequestURI())

	if err != nil {
		return a.fail(r, get400(), err, "")
	}

	form := components.FormState{}
	resp := &ComponentResponse{Code: 200, Message: "OK", ContentType: "text/html"}

	if shared.Found {
		form.Prompt = shared.Prompt
		form.Instructions = shared.Instructions
		form.ReplaceUrl = shared.Cleaned
		resp.Headers = map[string]string{"HX-Replace-Url": shared.Cleaned}
	}

	resp.Component = components.Index(form)
	return resp
}

func (a *App) optimize(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if r.Method != http.MethodPost {
		return a.fail(r, get405(), nil, "")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req optimizationReq
	err := decode(r, &req, func(get func(string) string) {
		req.Prompt = get("prompt")
		req.Instructions = get("instructions")
	})

	if err != nil {
		return a.fail(r, get400(), err, "")
	}

	prompt, err := pipeline.ValidatePrompt(req.Prompt, a.cfg.Limits)

	if err != nil {
		return a.fail(r, get400(), err, err.Error())
	}

	instructions, err := pipeline.ValidateInstructions(req.Instructions, a.cfg.Limits)

	if err != nil {
		return a.fail(r, get400(), err, err.Error())
	}

	client := a.client(w, r)

	if !a.limiter(client).Allow() {
		return a.fail(r, get429(), nil, "")
	}

	token := a.tracker.Issue(client)
	defer a.tracker.Done(client, token)

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.CompletionTimeout)
	defer cancel()

	result, err := Optimize(ctx, a.completer, a.pipeline, prompt, instructions)

	var cerr *CompletionError
	if errors.As(err, &cerr) {
		return a.fail(r, get502(), err, "")
	} else if perr, ok := pipeline.AsError(err); ok {
		return a.fail(r, get422(), err, perr.Summary(), perr.Errors...)
	} else if err != nil {
		return a.fail(r, get500(), err, "")
	}

	if !a.tracker.IsLatest(client, token) {
		a.log.Info("stale optimization discarded", "request_token", token)
		return a.fail(r, get409(), nil, "")
	}

	now := a.now()
	if result.OriginalPrompt == "" {
		result.OriginalPrompt = prompt
	}
	if result.Timestamp == "" {
		result.Timestamp = now.UTC().Format(time.RFC3339)
	}

	entry, err := history.NewEntry(prompt, instructions, result, now)

	if err != nil {
		return a.fail(r, get500(), err, "")
	}

	a.history(client).Append(r.Context(), entry)
	a.track(r.Context(), client, entry, result)

	share, err := BuildShareLink("/", prompt, instructions)

	if err != nil {
		a.log.Error("share link failed", "error", err.Error())
	}

	view := components.ResultView{
		EntryId:      entry.Id,
		UserInput:    prompt,
		Instructions: instructions,
		Result:       result,
		Diff:         a.diff.Compute(prompt, result.Variants.Generic()),
		ShareLink:    share,
	}

	resp := a.render(r, 200, components.Result(view), optimizationResp{
		Token: token, EntryId: entry.Id, Result: result, Diff: view.Diff, Share: share,
	})
	resp.Headers = map[string]string{"X-Request-Token": strconv.FormatUint(token, 10)}
	return resp
}

// track reports a finished optimization to analytics and the archive. Both
// are best effort.
func (a *App) track(ctx context.Context, client string, entry domain.HistoryEntry, result domain.OptimizationResult) {
	if a.analytics == nil && a.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if a.analytics != nil {
		err := a.analytics.Capture(ctx, "optimization_completed", client, map[string]any{
			"quality_score": result.Analysis.QualityScore,
			"variants":      len(result.Variants.Available()),
			"language":      result.Analysis.Language,
		})

		if err != nil {
			a.log.Error("analytics capture failed", "error", err.Error())
		}
	}

	if a.archive != nil {
		err := a.archive.Insert(ctx, domain.Optimization{
			Id:              entry.Id,
			OriginalPrompt:  entry.UserInput,
			OptimizedPrompt: result.Variants.Generic(),
			Instructions:    entry.CustomInstructions,
			QualityScore:    result.Analysis.QualityScore,
			Intent:          result.Analysis.Intent,
			Language:        result.Analysis.Language,
			State:           "completed",
		})

		if err != nil {
			a.log.Error("archive insert failed", "error", err.Error())
		}
	}
}

func (a *App) diffTexts(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if r.Method != http.MethodPost {
		return a.fail(r, get405(), nil, "")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req diffReq
	err := decode(r, &req, func(get func(string) string) {
		req.Original = get("original")
		req.Optimized = get("optimized")
		req.Mode = get("mode")
	})

	if err != nil {
		return a.fail(r, get400(), err, "")
	}

	limit := a.cfg.Limits.MaxPromptLength
	if limit > 0 && (len([]rune(req.Original)) > limit || len([]rune(req.Optimized)) > limit) {
		return a.fail(r, get400(), nil, fmt.Sprintf("texts must not exceed %d characters", limit))
	}

	engine := a.diff
	if req.Mode != "" {
		mode, err := diff.ParseMode(req.Mode)

		if err != nil {
			return a.fail(r, get400(), err, err.Error())
		}

		engine = diff.NewEngine(mode)
	}

	report := engine.Compute(req.Original, req.Optimized)
	return a.render(r, 200, components.Diff(report), report)
}

func (a *App) historyList(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	if r.Method != http.MethodGet {
		return a.fail(r, get405(), nil, "")
	}

	entries := a.history(a.client(w, r)).Load(r.Context())
	return a.render(r, 200, components.History(entries), entries)
}

func (a *App) historyEntry(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	id := r.PathValue("id")
	log := a.history(a.client(w, r))

	switch r.Method {
	case http.MethodGet:
		entry, ok := log.Get(r.Context(), id)
		if !ok {
			return a.fail(r, get404(), nil, "")
		}

		if !entry.IsStructured || entry.Result.Structured == nil {
			return a.render(r, 200, components.LegacyResult(entry), entry)
		}

		result, err := a.pipeline.Accept(*entry.Result.Structured)

		if perr, ok := pipeline.AsError(err); ok {
			return a.fail(r, get422(), err, perr.Summary(), perr.Errors...)
		} else if err != nil {
			return a.fail(r, get500(), err, "")
		}

		share, err := BuildShareLink("/", entry.UserInput, entry.CustomInstructions)

		if err != nil {
			a.log.Error("share link failed", "error", err.Error())
		}

		view := components.ResultView{
			EntryId:      entry.Id,
			UserInput:    entry.UserInput,
			Instructions: entry.CustomInstructions,
			Result:       result,
			Diff:         a.diff.Compute(entry.UserInput, result.Variants.Generic()),
			ShareLink:    share,
		}
		return a.render(r, 200, components.Result(view), optimizationResp{
			EntryId: entry.Id, Result: result, Diff: view.Diff, Share: share,
		})

	case http.MethodDelete:
		log.Remove(r.Context(), id)
		entries := log.Load(r.Context())
		return a.render(r, 200, components.History(entries), entries)

	default:
		return a.fail(r, get405(), errors.New("method not allowed"), "")
	}
}
