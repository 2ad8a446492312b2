package app

import (
	"net/url"
)

const (
	sharePromptParam       = "prompt"
	shareInstructionsParam = "instructions"
)

// BuildShareLink returns base with the prompt and instructions as query
// parameters. Empty instructions are left out.
func BuildShareLink(base, prompt, instructions string) (string, error) {
	u, err := url.Parse(base)

	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(sharePromptParam, prompt)
	if instructions != "" {
		q.Set(shareInstructionsParam, instructions)
	} else {
		q.Del(shareInstructionsParam)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

type SharedInput struct {
	Prompt       string
	Instructions string
	// Cleaned is the link without the share parameters.
	Cleaned string
	Found   bool
}

// ParseShareLink reads the share parameters from raw, percent-decoded.
func ParseShareLink(raw string) (SharedInput, error) {
	u, err := url.Parse(raw)

	if err != nil {
		return SharedInput{}, err
	}

	q := u.Query()
	in := SharedInput{
		Prompt:       q.Get(sharePromptParam),
		Instructions: q.Get(shareInstructionsParam),
		Found:        q.Has(sharePromptParam) || q.Has(shareInstructionsParam),
	}

	q.Del(sharePromptParam)
	q.Del(shareInstructionsParam)
	u.RawQuery = q.Encode()
	in.Cleaned = u.String()

	return in, nil
}
