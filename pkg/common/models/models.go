package models

import "time"

// AnalyzeRequest is the inbound payload for call analysis.
type AnalyzeRequest struct {
	Transcript string                 `json:"transcript"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// CallResponse is the caller-visible result of one pipeline run.
type CallResponse struct {
	ID               int64                  `json:"id"`
	UniqueID         string                 `json:"unique_id"`
	CustomerIntent   string                 `json:"customer_intent"`
	Sentiment        string                 `json:"sentiment"`
	ActionRequired   bool                   `json:"action_required"`
	Summary          string                 `json:"summary"`
	RawTranscript    string                 `json:"raw_transcript"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ProcessedAt      time.Time              `json:"processed_at"`
	ProcessingTimeMs float64                `json:"processing_time_ms"`
}

// Event is the envelope published to the event bus after a record commits.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthResponse reports the readiness of the service's collaborators.
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	LLMClient string    `json:"llm_client"`
	Cache     string    `json:"cache"`
	Timestamp time.Time `json:"timestamp"`
}
