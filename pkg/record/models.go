package record

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CallRecord is the persisted outcome of one successful pipeline run: the
// validated insight alongside the verbatim transcript and caller metadata.
// Rows are inserted once and never updated by the pipeline; UpdatedAt exists
// for future mutation paths.
type CallRecord struct {
	ID             int64             `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	UniqueID       uuid.UUID         `json:"unique_id" gorm:"type:uuid;uniqueIndex;column:unique_id"`
	Transcript     string            `json:"transcript" gorm:"not null;column:transcript"`
	Intent         string            `json:"customer_intent" gorm:"not null;column:intent"`
	Sentiment      string            `json:"sentiment" gorm:"not null;index;column:sentiment"`
	ActionRequired bool              `json:"action_required" gorm:"index;column:action_required"`
	Summary        string            `json:"summary" gorm:"not null;column:summary"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb;column:metadata"`
	CreatedAt      time.Time         `json:"created_at" gorm:"index;column:created_at"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (CallRecord) TableName() string {
	return "call_records"
}
