package insight

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	CheckShape     = "shape"
	CheckSentiment = "sentiment"
	CheckAction    = "action_required"
	CheckIntent    = "customer_intent"
	CheckSummary   = "summary"
)

const (
	minIntentLen  = 5
	maxIntentLen  = 200
	minSummaryLen = 20
	maxSummaryLen = 500
)

var requiredKeys = []string{"customer_intent", "sentiment", "action_required", "summary"}

// ValidationError reports which schema check a candidate failed. Extraction
// treats it as retryable until the attempt budget runs out.
type ValidationError struct {
	Check  string
	reason error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Check, e.reason)
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validate checks a decoded candidate against the insight schema and returns
// the canonical ValidatedInsight. Checks run in a fixed order: shape,
// sentiment, action_required coercion, then the free-text fields.
func Validate(candidate map[string]interface{}) (ValidatedInsight, error) {
	if candidate == nil {
		return ValidatedInsight{}, ValidationError{Check: CheckShape, reason: errors.New("candidate is not an object")}
	}
	for _, key := range requiredKeys {
		if _, ok := candidate[key]; !ok {
			return ValidatedInsight{}, ValidationError{Check: CheckShape, reason: fmt.Errorf("missing required field '%s'", key)}
		}
	}

	sentiment, err := normalizeSentiment(candidate["sentiment"])
	if err != nil {
		return ValidatedInsight{}, ValidationError{Check: CheckSentiment, reason: err}
	}

	actionRequired, err := coerceBool(candidate["action_required"])
	if err != nil {
		return ValidatedInsight{}, ValidationError{Check: CheckAction, reason: err}
	}

	intent, err := requireText(candidate["customer_intent"], minIntentLen, maxIntentLen)
	if err != nil {
		return ValidatedInsight{}, ValidationError{Check: CheckIntent, reason: err}
	}

	summary, err := requireText(candidate["summary"], minSummaryLen, maxSummaryLen)
	if err != nil {
		return ValidatedInsight{}, ValidationError{Check: CheckSummary, reason: err}
	}

	return ValidatedInsight{
		CustomerIntent: intent,
		Sentiment:      sentiment,
		ActionRequired: actionRequired,
		Summary:        summary,
	}, nil
}

func normalizeSentiment(value interface{}) (Sentiment, error) {
	raw, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "negative":
		return SentimentNegative, nil
	case "neutral":
		return SentimentNeutral, nil
	case "positive":
		return SentimentPositive, nil
	}
	return "", fmt.Errorf("'%s' is not one of Negative, Neutral, Positive", raw)
}

// coerceBool accepts the boolean-like shapes models actually emit. Anything
// ambiguous fails rather than guessing.
func coerceBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes":
			return true, nil
		case "false", "no":
			return false, nil
		}
		return false, fmt.Errorf("ambiguous boolean '%s'", v)
	case float64:
		if v == 0 {
			return false, nil
		}
		if v == 1 {
			return true, nil
		}
		return false, fmt.Errorf("ambiguous boolean %v", v)
	}
	return false, fmt.Errorf("expected boolean, got %T", value)
}

func requireText(value interface{}, minLen, maxLen int) (string, error) {
	raw, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("empty after trimming whitespace")
	}
	// Bounds count characters, not bytes; Hinglish transcripts mix scripts.
	length := utf8.RuneCountInString(trimmed)
	if length < minLen {
		return "", fmt.Errorf("shorter than %d characters", minLen)
	}
	if length > maxLen {
		return "", fmt.Errorf("longer than %d characters", maxLen)
	}
	return trimmed, nil
}
