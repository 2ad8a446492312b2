package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MinPromptLength = 3

type Limits struct {
	MaxPromptLength       int
	MaxFieldLength        int
	MaxInstructionsLength int
}

func DefaultLimits() Limits {
	return Limits{
		MaxPromptLength:       50000,
		MaxFieldLength:        10000,
		MaxInstructionsLength: 2000,
	}
}

var promptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
}

// ValidatePrompt checks user input before it is sent to the completion
// service and returns it trimmed.
func ValidatePrompt(prompt string, limits Limits) (string, error) {
	trimmed := strings.TrimSpace(prompt)

	if trimmed == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidInput)
	}

	n := utf8.RuneCountInString(trimmed)
	if n < MinPromptLength {
		return "", fmt.Errorf("%w: prompt is too short (minimum %d characters)", ErrInvalidInput, MinPromptLength)
	} else if limits.MaxPromptLength > 0 && n > limits.MaxPromptLength {
		return "", fmt.Errorf("%w: prompt is too long (maximum %d characters)", ErrInvalidInput, limits.MaxPromptLength)
	}

	if hasPromptPattern(trimmed) {
		return "", fmt.Errorf("%w: prompt contains invalid content", ErrInvalidInput)
	}

	return trimmed, nil
}

// ValidateInstructions checks optional custom instructions. Empty is valid.
func ValidateInstructions(instructions string, limits Limits) (string, error) {
	trimmed := strings.TrimSpace(instructions)

	if limits.MaxInstructionsLength > 0 && utf8.RuneCountInString(trimmed) > limits.MaxInstructionsLength {
		return "", fmt.Errorf("%w: custom instructions must not exceed %d characters", ErrInvalidInput, limits.MaxInstructionsLength)
	}

	if hasPromptPattern(trimmed) {
		return "", fmt.Errorf("%w: custom instructions contain invalid content", ErrInvalidInput)
	}

	return trimmed, nil
}

func hasPromptPattern(text string) bool {
	for _, pattern := range promptPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
