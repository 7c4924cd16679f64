package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/atharva9604/conversational-insights-generator/pkg/insight"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("call record not found")

// Metadata is opaque to the pipeline; the only check is that it can be stored.
const maxMetadataBytes = 64 * 1024

// FailureClass buckets persistence failures for operators. None of them are
// retried here: a failed insert is terminal for the request, so a retry can
// never duplicate a record.
type FailureClass string

const (
	FailureConstraint FailureClass = "constraint_violation"
	FailureConnection FailureClass = "connection_lost"
	FailureUnknown    FailureClass = "unknown"
)

type PersistenceError struct {
	Class  FailureClass
	reason error
}

// NewPersistenceError wraps a classified storage failure. Collaborators that
// simulate storage failures construct them through this.
func NewPersistenceError(class FailureClass, cause error) *PersistenceError {
	return &PersistenceError{Class: class, reason: cause}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed (%s): %v", e.Class, e.reason)
}

func (e *PersistenceError) Unwrap() error {
	return e.reason
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&CallRecord{})
}

// Insert writes the record in a single transaction. Either the whole row
// becomes durably visible with its generated identity, or nothing does.
func (r *Repository) Insert(ctx context.Context, transcript string, in insight.ValidatedInsight, metadata map[string]interface{}) (*CallRecord, error) {
	if err := validateMetadata(metadata); err != nil {
		return nil, &PersistenceError{Class: FailureConstraint, reason: err}
	}

	now := time.Now().UTC()
	rec := &CallRecord{
		UniqueID:       uuid.New(),
		Transcript:     transcript,
		Intent:         in.CustomerIntent,
		Sentiment:      string(in.Sentiment),
		ActionRequired: in.ActionRequired,
		Summary:        in.Summary,
		Metadata:       datatypes.JSONMap(metadata),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, &PersistenceError{Class: classify(err), reason: err}
	}

	return rec, nil
}

func (r *Repository) GetByUniqueID(ctx context.Context, id uuid.UUID) (*CallRecord, error) {
	var rec CallRecord
	result := r.db.WithContext(ctx).First(&rec, "unique_id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, &PersistenceError{Class: classify(result.Error), reason: result.Error}
	}
	return &rec, nil
}

func validateMetadata(metadata map[string]interface{}) error {
	if metadata == nil {
		return nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("metadata is not storable: %w", err)
	}
	if len(encoded) > maxMetadataBytes {
		return fmt.Errorf("metadata exceeds %d bytes", maxMetadataBytes)
	}
	return nil
}

func classify(err error) FailureClass {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return FailureConstraint
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "violates"):
		return FailureConstraint
	case strings.Contains(msg, "connection"), strings.Contains(msg, "broken pipe"), strings.Contains(msg, "timeout"):
		return FailureConnection
	}
	return FailureUnknown
}
