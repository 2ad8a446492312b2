package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/felixbrock/promptstudio/internal/logger"
)

const fenceMarker = "```"

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`__proto__`),
	regexp.MustCompile(`constructor\[`),
	regexp.MustCompile(`\.\./\.\.`),
	regexp.MustCompile(`eval\(`),
	regexp.MustCompile(`Function\(`),
	regexp.MustCompile(`(?i)<script`),
}

var (
	controlBytes = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	languageTag  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+-]*`)
)

// Extractor turns a raw completion into a candidate JSON document.
type Extractor struct {
	MaxLength int
	log       *logger.Logger
}

func NewExtractor(maxLength int, log *logger.Logger) Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return Extractor{MaxLength: maxLength, log: log.With("component", "extractor")}
}

func (e Extractor) Extract(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	if text == "" {
		return "", rootError(KindRejection, ErrEmptyCompletion, "completion is empty")
	}

	text = controlBytes.ReplaceAllString(text, "")
	text = stripFence(text)

	if text == "" {
		return "", rootError(KindRejection, ErrEmptyCompletion, "completion holds an empty fenced block")
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(text) {
			e.log.Warn("dangerous pattern in completion", "pattern", pattern.String())
			return "", rootError(KindRejection, ErrDangerousContent, "completion contains a potentially dangerous pattern")
		}
	}

	if truncated, ok := truncate(text, e.MaxLength); ok {
		e.log.Warn("completion truncated", "limit", e.MaxLength, "length", utf8.RuneCountInString(text))
		text = truncated
	}

	return text, nil
}

// stripFence removes an opening ``` line (with or without a language tag)
// and a closing ``` line.
func stripFence(text string) string {
	if !strings.HasPrefix(text, fenceMarker) {
		return text
	}

	var body string
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		body = text[nl+1:]
	} else {
		body = strings.TrimPrefix(text, fenceMarker)
		if tag := languageTag.FindString(body); tag != "" {
			rest := strings.TrimSpace(body[len(tag):])
			if strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
				body = rest
			}
		}
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, fenceMarker)

	return strings.TrimSpace(body)
}

// truncate cuts s to limit characters. A limit <= 0 disables the ceiling.
func truncate(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}

	runes := []rune(s)
	return string(runes[:limit]), true
}
