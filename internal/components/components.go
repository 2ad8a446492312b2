// Package components renders the HTML fragments served to the browser.
package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/felixbrock/promptstudio/internal/domain"
)

// html accumulates writes and keeps the first error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

func (h *html) list(class string, items []string) {
	if len(items) == 0 {
		return
	}
	h.rawf(`<ul class="%s">`, templ.EscapeString(class))
	for _, item := range items {
		h.raw("<li>")
		h.text(item)
		h.raw("</li>")
	}
	h.raw("</ul>")
}

func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(title)
		h.raw("</title>")
		h.raw(`<link rel="stylesheet" href="/static/styles.css"><script src="https://unpkg.com/htmx.org@1.9.12" defer></script></head><body>`)
		h.render(ctx, body)
		h.raw("</body></html>")
		return h.err
	})
}

type FormState struct {
	Prompt       string
	Instructions string
	// ReplaceUrl, when set, replaces the address bar after a share link was
	// consumed.
	ReplaceUrl string
	Error      string
}

// Index is the optimizer page with its input form.
func Index(form FormState) templ.Component {
	return page("Prompt Studio", Form(form))
}

func Form(form FormState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		if form.ReplaceUrl != "" {
			h.rawf(`<meta name="replace-url" content="%s">`, templ.EscapeString(form.ReplaceUrl))
			h.raw(`<script>(function(){var m=document.querySelector('meta[name="replace-url"]');if(m&&window.history){window.history.replaceState(null,"",m.content)}})()</script>`)
		}
		h.raw(`<main id="optimizer"><form hx-post="/optimize" hx-target="#result" hx-swap="innerHTML" hx-indicator="#loading">`)
		h.raw(`<label for="prompt">Prompt</label><textarea id="prompt" name="prompt" required minlength="3">`)
		h.text(form.Prompt)
		h.raw(`</textarea><label for="instructions">Custom instructions</label><textarea id="instructions" name="instructions">`)
		h.text(form.Instructions)
		h.raw(`</textarea><button type="submit">Optimize</button><span id="loading" class="htmx-indicator">Optimizing…</span></form>`)
		if form.Error != "" {
			h.render(ctx, Error("Bad request", form.Error, nil))
		}
		h.raw(`<section id="result"></section><section id="history" hx-get="/history" hx-trigger="load"></section></main>`)
		return h.err
	})
}

type ResultView struct {
	EntryId      string
	UserInput    string
	Instructions string
	Result       domain.OptimizationResult
	Diff         domain.DiffReport
	ShareLink    string
}

func Result(view ResultView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		r := view.Result

		h.rawf(`<article class="result" data-entry="%s">`, templ.EscapeString(view.EntryId))

		h.raw(`<section class="analysis"><h2>Analysis</h2>`)
		h.rawf(`<p class="score">Quality <strong>%s</strong>/100</p>`, formatScore(r.Analysis.QualityScore))
		if r.Analysis.ClarityScore != nil {
			h.rawf(`<p class="score">Clarity %s</p>`, formatScore(*r.Analysis.ClarityScore))
		}
		if r.Analysis.SpecificityScore != nil {
			h.rawf(`<p class="score">Specificity %s</p>`, formatScore(*r.Analysis.SpecificityScore))
		}
		h.raw(`<p class="intent">`)
		h.text(r.Analysis.Intent)
		h.raw(`</p>`)
		h.list("improvements", r.Analysis.Improvements)
		h.list("assumptions", r.Analysis.Assumptions)
		h.raw(`</section>`)

		if d := r.Diagnosis; d != nil {
			h.raw(`<section class="diagnosis"><h2>Diagnosis</h2>`)
			h.rawf(`<p class="score">Quality %s</p>`, formatScore(r.DiagnosisQuality()))
			h.list("missing-info", d.MissingInfo)
			h.list("questions", d.ClarifyingQuestions)
			h.list("privacy-warnings", d.PrivacyWarnings)
			h.list("assumptions", d.Assumptions)
			h.raw(`</section>`)
		}

		h.raw(`<section class="variants"><h2>Optimized prompts</h2>`)
		for _, key := range r.Variants.Available() {
			h.rawf(`<div class="variant" data-model="%s"><h3>%s</h3><pre>`, key, key)
			h.text(r.Variants[key])
			h.raw(`</pre></div>`)
		}
		h.raw(`</section>`)

		h.list("warnings", r.Warnings)

		h.render(ctx, Diff(view.Diff))

		if view.ShareLink != "" {
			h.rawf(`<p class="share"><a href="%s">Share this prompt</a></p>`, templ.EscapeString(view.ShareLink))
		}

		h.raw(`</article>`)
		return h.err
	})
}

func Diff(report domain.DiffReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.rawf(`<section class="diff"><h2>Changes</h2><p class="counts">+%d −%d =%d</p><table>`,
			report.Counts.Added, report.Counts.Removed, report.Counts.Unchanged)
		for _, line := range report.Lines {
			h.rawf(`<tr class="%s"><td class="line">%d</td><td><pre>`, line.Kind, line.LineNumber)
			h.text(line.Content)
			h.raw(`</pre></td></tr>`)
		}
		h.raw(`</table></section>`)
		return h.err
	})
}

func History(entries []domain.HistoryEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section id="history"><h2>History</h2>`)
		if len(entries) == 0 {
			h.raw(`<p class="empty">No optimizations yet.</p>`)
		}
		h.raw(`<ol>`)
		for _, e := range entries {
			id := templ.EscapeString(e.Id)
			h.rawf(`<li id="entry-%s"><time>`, id)
			h.text(e.Timestamp)
			h.raw(`</time><p class="input">`)
			h.text(e.UserInput)
			h.raw(`</p><p class="output">`)
			h.text(e.Result.DisplayText())
			h.raw(`</p>`)
			h.rawf(`<button hx-get="/history/%s" hx-target="#result">Open</button>`, id)
			h.rawf(`<button hx-delete="/history/%s" hx-target="#history" hx-swap="outerHTML">Delete</button></li>`, id)
		}
		h.raw(`</ol></section>`)
		return h.err
	})
}

// LegacyResult shows a history entry saved before results were structured.
func LegacyResult(entry domain.HistoryEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<article class="result legacy"><h2>Optimized prompt</h2><pre>`)
		h.text(entry.Result.DisplayText())
		h.raw(`</pre></article>`)
		return h.err
	})
}

func Error(title, msg string, details []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="error" role="alert"><h2>`)
		h.text(title)
		h.raw(`</h2><p>`)
		h.text(msg)
		h.raw(`</p>`)
		h.list("details", details)
		h.raw(`</div>`)
		return h.err
	})
}

// JSON renders v as a JSON document for API clients.
func JSON(v any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(true)
		return enc.Encode(v)
	})
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
