package app

import (
	"fmt"
	"strings"
)

const systemInstruction = `You optimize prompts that users intend to send to an AI model. Never answer the prompt itself.

Diagnose what is missing, ask 2 to 5 clarifying questions, flag personal data, and write one optimized variant per target model.

Reply with a single JSON object and nothing else:
{
  "diagnosis": {
    "missingInfo": ["..."],
    "clarifyingQuestions": ["..."],
    "privacyWarnings": ["..."],
    "qualityScore": 0-100,
    "assumptions": ["..."]
  },
  "analysis": {
    "qualityScore": 0-100,
    "clarityScore": 0-100,
    "specificityScore": 0-100,
    "intent": "what the user wants",
    "language": "language of the prompt",
    "assumptions": ["..."],
    "improvements": ["..."]
  },
  "variants": {
    "generic": "works with any model (required)",
    "chatgpt": "...",
    "claude": "...",
    "gemini": "...",
    "kimi": "..."
  }
}

analysis.qualityScore must stay within 20 points of the average of clarityScore and specificityScore.`

// userPrompt is the text sent to the completion service for one request.
func userPrompt(prompt, instructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Optimize the following prompt:\n\n%s", prompt)

	if instructions != "" {
		fmt.Fprintf(&b, "\n\nCustom optimization instructions: %q", instructions)
	}

	return b.String()
}
