package insight

import (
	"fmt"
	"sort"
	"strings"
)

// Prompt is one fully assembled model request. Construction is pure: the same
// transcript and guidance always produce byte-identical prompts, so retry
// attempts repeat the exact same request.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt embeds the transcript verbatim as the user message and renders
// the fixed analysis instruction from the guidance as the system message.
func BuildPrompt(transcript string, g Guidance) Prompt {
	return Prompt{
		System: systemInstruction(g),
		User:   transcript,
	}
}

func systemInstruction(g Guidance) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s. Extract structured insights with EXTREME PRECISION.\n\n", g.Persona)

	b.WriteString("=== CRITICAL INSTRUCTIONS ===\n")
	b.WriteString("1. Output ONLY a valid JSON object with exactly these keys: customer_intent, sentiment, action_required, summary\n")
	b.WriteString("2. NO additional text, commentary, or markdown formatting\n")
	b.WriteString("3. Analyze from the CUSTOMER's perspective for intent and sentiment\n\n")

	b.WriteString("=== FIELD DEFINITIONS ===\n\n")

	b.WriteString("customer_intent (string):\n")
	b.WriteString("- Be SPECIFIC and ACTION-ORIENTED\n")
	b.WriteString("- Examples: \"Promise to Pay (PTP) - Wednesday\", \"Dispute Fraudulent Transaction\", \"Request Loan Restructuring due to Hardship\"\n\n")

	b.WriteString("sentiment (must be EXACTLY one of: Negative, Neutral, Positive):\n")
	for _, name := range sortedKeys(g.Sentiments) {
		fmt.Fprintf(&b, "- %s: %s\n", name, g.Sentiments[name])
	}
	b.WriteString("\n")

	b.WriteString("action_required (boolean):\n")
	if len(g.ActionCues) > 0 {
		fmt.Fprintf(&b, "- true if: %s\n", strings.Join(g.ActionCues, "; "))
	}
	if len(g.NoActionCues) > 0 {
		fmt.Fprintf(&b, "- false if: %s\n", strings.Join(g.NoActionCues, "; "))
	}
	b.WriteString("\n")

	b.WriteString("summary (string):\n")
	b.WriteString("- Structure: [Debt Status] + [Customer Response] + [Outcome]\n")
	b.WriteString("- Length: 1-3 concise sentences\n\n")

	b.WriteString("Return ONLY the JSON object.")

	return b.String()
}

// Map iteration order is random; sort so the prompt stays deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
