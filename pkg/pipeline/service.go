package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atharva9604/conversational-insights-generator/pkg/common/logger"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/models"
	"github.com/atharva9604/conversational-insights-generator/pkg/insight"
	"github.com/atharva9604/conversational-insights-generator/pkg/record"
	"github.com/google/uuid"
)

const eventSource = "insights-service"

var (
	errEmptyTranscript   = errors.New("transcript cannot be empty")
	errTranscriptLength  = errors.New("transcript length out of bounds")
	errMissingDialogue   = errors.New("transcript must contain both Agent and Customer dialogue")
	errInvalidIdentifier = errors.New("invalid record identifier")
)

// InputError marks requests rejected before any external call is issued.
type InputError struct {
	reason error
}

func (e InputError) Error() string {
	return e.reason.Error()
}

func (e InputError) Unwrap() error {
	return e.reason
}

func IsInputError(err error) bool {
	var ie InputError
	return errors.As(err, &ie)
}

// Extractor produces a validated insight from a transcript or a terminal
// extraction failure.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (insight.ValidatedInsight, error)
}

// Store persists validated insights and reads them back.
type Store interface {
	Insert(ctx context.Context, transcript string, in insight.ValidatedInsight, metadata map[string]interface{}) (*record.CallRecord, error)
	GetByUniqueID(ctx context.Context, id uuid.UUID) (*record.CallRecord, error)
}

// EventPublisher emits a post-commit notification. Publishing is best-effort
// and never changes the caller-visible outcome.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service sequences extraction and persistence for one request and measures
// end-to-end latency. Retries live inside the Extractor; a persistence
// failure is terminal.
type Service struct {
	extractor Extractor
	store     Store
	cache     *ResponseCache
	events    EventPublisher
	minLen    int
	maxLen    int
}

func NewService(extractor Extractor, store Store, cache *ResponseCache, events EventPublisher, minLen, maxLen int) *Service {
	if minLen <= 0 {
		minLen = 20
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Service{
		extractor: extractor,
		store:     store,
		cache:     cache,
		events:    events,
		minLen:    minLen,
		maxLen:    maxLen,
	}
}

// Analyze runs the full pipeline: input check, extraction (with its internal
// retry loop), transactional persistence, then response assembly. Side
// effects become visible to the caller only once the record has committed.
func (s *Service) Analyze(ctx context.Context, transcript string, metadata map[string]interface{}) (*models.CallResponse, error) {
	started := time.Now()

	transcript = strings.TrimSpace(transcript)
	if err := s.validateTranscript(transcript); err != nil {
		return nil, err
	}

	in, err := s.extractor.Extract(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("extracting insights: %w", err)
	}

	rec, err := s.store.Insert(ctx, transcript, in, metadata)
	if err != nil {
		return nil, fmt.Errorf("persisting insights: %w", err)
	}

	resp := responseFromRecord(rec, roundMs(time.Since(started)))

	s.afterCommit(ctx, resp)

	return resp, nil
}

// Record serves a previously persisted result, preferring the cache.
func (s *Service) Record(ctx context.Context, uniqueID string) (*models.CallResponse, error) {
	id, err := uuid.Parse(uniqueID)
	if err != nil {
		return nil, InputError{reason: errInvalidIdentifier}
	}

	if s.cache != nil {
		if resp, err := s.cache.Get(ctx, id.String()); err == nil {
			return resp, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			logger.Log.WithError(err).Warn("record cache read failed")
		}
	}

	rec, err := s.store.GetByUniqueID(ctx, id)
	if err != nil {
		return nil, err
	}
	return responseFromRecord(rec, 0), nil
}

func (s *Service) validateTranscript(transcript string) error {
	if transcript == "" {
		return InputError{reason: errEmptyTranscript}
	}
	if length := utf8.RuneCountInString(transcript); length < s.minLen || length > s.maxLen {
		return InputError{reason: fmt.Errorf("%w: expected %d-%d characters, got %d", errTranscriptLength, s.minLen, s.maxLen, length)}
	}
	if !strings.Contains(transcript, "Agent:") || !strings.Contains(transcript, "Customer:") {
		return InputError{reason: errMissingDialogue}
	}
	return nil
}

func (s *Service) afterCommit(ctx context.Context, resp *models.CallResponse) {
	if s.cache != nil {
		if err := s.cache.Set(ctx, resp); err != nil {
			logger.Log.WithError(err).WithField("unique_id", resp.UniqueID).Warn("record cache write failed")
		}
	}

	if s.events != nil {
		err := s.events.PublishEvent(ctx, "insight.created", eventSource, map[string]interface{}{
			"record_id":       resp.ID,
			"unique_id":       resp.UniqueID,
			"sentiment":       resp.Sentiment,
			"action_required": resp.ActionRequired,
		})
		if err != nil {
			logger.Log.WithError(err).WithField("unique_id", resp.UniqueID).Warn("insight event publish failed")
		}
	}
}

func responseFromRecord(rec *record.CallRecord, processingMs float64) *models.CallResponse {
	return &models.CallResponse{
		ID:               rec.ID,
		UniqueID:         rec.UniqueID.String(),
		CustomerIntent:   rec.Intent,
		Sentiment:        rec.Sentiment,
		ActionRequired:   rec.ActionRequired,
		Summary:          rec.Summary,
		RawTranscript:    rec.Transcript,
		Metadata:         map[string]interface{}(rec.Metadata),
		ProcessedAt:      rec.CreatedAt,
		ProcessingTimeMs: processingMs,
	}
}

func roundMs(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000.0
	return math.Round(ms*100) / 100
}
