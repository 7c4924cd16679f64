package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atharva9604/conversational-insights-generator/pkg/common/logger"
)

const DefaultMaxAttempts = 3

// FailureKind names the condition the last attempt died on. Call, parse and
// validation failures are all retryable within one extraction; the kind only
// reaches callers when the attempt budget is exhausted.
type FailureKind string

const (
	FailureCall       FailureKind = "call_failed"
	FailureParse      FailureKind = "parse_failed"
	FailureValidation FailureKind = "validation_failed"
)

// ExtractionError is the terminal failure after every attempt was spent. It
// wraps the last underlying cause.
type ExtractionError struct {
	Kind     FailureKind
	Attempts int
	reason   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempts (%s): %v", e.Attempts, e.Kind, e.reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.reason
}

func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

// attemptState tracks one extraction's retry loop. It never outlives the
// Extract call that created it.
type attemptState struct {
	attempt  int
	lastKind FailureKind
	lastErr  error
	started  time.Time
}

func (s *attemptState) record(kind FailureKind, err error) {
	s.lastKind = kind
	s.lastErr = err
}

// Extractor drives prompt construction, the external generation call, tolerant
// parsing and schema validation for one transcript, retrying transient
// failures up to maxAttempts times.
type Extractor struct {
	client      GenerationClient
	guidance    Guidance
	maxAttempts int
}

func NewExtractor(client GenerationClient, guidance Guidance, maxAttempts int) *Extractor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Extractor{
		client:      client,
		guidance:    guidance,
		maxAttempts: maxAttempts,
	}
}

// Extract runs the bounded retry loop. The prompt is identical across
// attempts; the first attempt that yields a validated insight wins and no
// further calls are issued. At most maxAttempts outbound calls are made.
func (e *Extractor) Extract(ctx context.Context, transcript string) (ValidatedInsight, error) {
	prompt := BuildPrompt(transcript, e.guidance)
	state := &attemptState{started: time.Now()}

	for state.attempt = 1; state.attempt <= e.maxAttempts; state.attempt++ {
		if err := ctx.Err(); err != nil {
			return ValidatedInsight{}, fmt.Errorf("extraction aborted: %w", err)
		}

		insight, kind, err := e.attempt(ctx, prompt)
		if err == nil {
			return insight, nil
		}
		state.record(kind, err)

		// Caller cancellation is not a model failure; stop immediately
		// instead of burning the remaining attempts.
		if ctx.Err() != nil {
			return ValidatedInsight{}, fmt.Errorf("extraction aborted: %w", ctx.Err())
		}

		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"attempt":      state.attempt,
			"max_attempts": e.maxAttempts,
			"failure_kind": string(kind),
			"elapsed_ms":   time.Since(state.started).Milliseconds(),
		}).Warn("insight extraction attempt failed")
	}

	return ValidatedInsight{}, &ExtractionError{
		Kind:     state.lastKind,
		Attempts: e.maxAttempts,
		reason:   state.lastErr,
	}
}

func (e *Extractor) attempt(ctx context.Context, prompt Prompt) (ValidatedInsight, FailureKind, error) {
	raw, err := e.client.Generate(ctx, prompt)
	if err != nil {
		return ValidatedInsight{}, FailureCall, err
	}

	candidate, err := ParseCandidate(raw)
	if err != nil {
		return ValidatedInsight{}, FailureParse, err
	}

	insight, err := Validate(candidate)
	if err != nil {
		return ValidatedInsight{}, FailureValidation, err
	}

	return insight, "", nil
}
