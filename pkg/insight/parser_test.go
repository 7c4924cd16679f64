package insight

import "testing"

func TestParseCandidateCleanJSON(t *testing.T) {
	raw := `{"customer_intent":"Request Loan Restructuring","sentiment":"Negative","action_required":true,"summary":"Customer cited hardship and asked for restructuring; agent will send the application form."}`

	candidate, err := ParseCandidate(raw)
	if err != nil {
		t.Fatalf("failed to parse clean JSON: %v", err)
	}
	if candidate["sentiment"] != "Negative" {
		t.Fatalf("unexpected sentiment: %v", candidate["sentiment"])
	}
}

func TestParseCandidateStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"sentiment\": \"Positive\", \"action_required\": false}\n```"

	candidate, err := ParseCandidate(raw)
	if err != nil {
		t.Fatalf("failed to parse fenced JSON: %v", err)
	}
	if candidate["sentiment"] != "Positive" {
		t.Fatalf("unexpected sentiment: %v", candidate["sentiment"])
	}
}

func TestParseCandidateIgnoresSurroundingCommentary(t *testing.T) {
	raw := `Here is the analysis you asked for:

{"customer_intent": "Promise to Pay (PTP) - Wednesday", "sentiment": "Neutral", "action_required": true, "summary": "PTP booked."}

Let me know if you need anything else.`

	candidate, err := ParseCandidate(raw)
	if err != nil {
		t.Fatalf("failed to parse wrapped JSON: %v", err)
	}
	if candidate["customer_intent"] != "Promise to Pay (PTP) - Wednesday" {
		t.Fatalf("unexpected intent: %v", candidate["customer_intent"])
	}
}

func TestParseCandidateRejectsNonJSON(t *testing.T) {
	if _, err := ParseCandidate("the customer sounded upset about the overdue EMI"); err == nil {
		t.Fatal("expected parse failure for prose response")
	}
}

func TestParseCandidateRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseCandidate(`{"sentiment": "Neutral", "action_required": }`); err == nil {
		t.Fatal("expected parse failure for malformed JSON")
	}
}
