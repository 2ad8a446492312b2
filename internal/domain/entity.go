package domain

import (
	"bytes"
	"encoding/json"
)

// HistoryResult holds either a canonical result or the plain prompt text
// stored by earlier versions of the history log.
type HistoryResult struct {
	Structured *OptimizationResult
	Legacy     string
}

func StructuredResult(result OptimizationResult) HistoryResult {
	return HistoryResult{Structured: &result}
}

func LegacyResult(text string) HistoryResult {
	return HistoryResult{Legacy: text}
}

func (r HistoryResult) IsZero() bool {
	return r.Structured == nil && r.Legacy == ""
}

// DisplayText is the prompt shown for a history entry.
func (r HistoryResult) DisplayText() string {
	if r.Structured != nil {
		return r.Structured.Variants.Generic()
	}

	return r.Legacy
}

func (r HistoryResult) MarshalJSON() ([]byte, error) {
	if r.Structured != nil {
		return json.Marshal(r.Structured)
	}

	return json.Marshal(r.Legacy)
}

func (r *HistoryResult) UnmarshalJSON(content []byte) error {
	trimmed := bytes.TrimSpace(content)

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = HistoryResult{}
		return nil
	}

	if trimmed[0] == '"' {
		var text string
		err := json.Unmarshal(trimmed, &text)

		if err != nil {
			return err
		}

		*r = HistoryResult{Legacy: text}
		return nil
	}

	var result OptimizationResult
	err := json.Unmarshal(trimmed, &result)

	if err != nil {
		return err
	}

	*r = HistoryResult{Structured: &result}
	return nil
}

type HistoryEntry struct {
	Id                 string        `json:"id"`
	UserInput          string        `json:"userInput"`
	CustomInstructions string        `json:"customInstructions"`
	Result             HistoryResult `json:"result"`
	IsStructured       bool          `json:"isStructured"`
	Timestamp          string        `json:"timestamp"`
}

// Optimization is the row shape of the remote optimization archive.
type Optimization struct {
	Id              string  `json:"id"`
	OriginalPrompt  string  `json:"original_prompt"`
	OptimizedPrompt string  `json:"optimized_prompt"`
	Instructions    string  `json:"instructions"`
	QualityScore    float64 `json:"quality_score"`
	Intent          string  `json:"intent"`
	Language        string  `json:"language"`
	State           string  `json:"state"`
	ParentId        string  `json:"parent_id,omitempty"`
}
