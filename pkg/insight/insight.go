package insight

// Sentiment classifies the customer's disposition on a call. The set is
// closed: the model must answer with exactly one of these values.
type Sentiment string

const (
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentPositive Sentiment = "Positive"
)

// ValidatedInsight is a candidate that has passed every schema check.
// All four fields are populated and Sentiment holds a canonical value.
type ValidatedInsight struct {
	CustomerIntent string    `json:"customer_intent"`
	Sentiment      Sentiment `json:"sentiment"`
	ActionRequired bool      `json:"action_required"`
	Summary        string    `json:"summary"`
}
