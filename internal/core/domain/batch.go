package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportBatch represents one pipeline run over an input export file.
// FileHash gives idempotency: re-running on identical input reuses the batch.
type ImportBatch struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InputFilename    string     `gorm:"type:varchar(500);not null" json:"input_filename"`
	FileHash         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"file_hash"`
	Status           string     `gorm:"type:varchar(50);not null;default:'created'" json:"status"`
	TotalRows        int        `gorm:"default:0" json:"total_rows"`
	SkippedRows      int        `gorm:"default:0" json:"skipped_rows"`
	ListingsImported int        `gorm:"default:0" json:"listings_imported"`
	ListingsSkipped  int        `gorm:"default:0" json:"listings_skipped"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (ImportBatch) TableName() string {
	return "import_batches"
}

// BeforeCreate GORM hook - called before creating a record
func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Batch statuses follow the pipeline stages
const (
	BatchStatusCreated     = "created"
	BatchStatusNormalizing = "normalizing"
	BatchStatusImporting   = "importing"
	BatchStatusCompleted   = "completed"
	BatchStatusFailed      = "failed"
)

// ValidBatchStatuses returns the list of valid batch statuses
func ValidBatchStatuses() []string {
	return []string{
		BatchStatusCreated,
		BatchStatusNormalizing,
		BatchStatusImporting,
		BatchStatusCompleted,
		BatchStatusFailed,
	}
}

// IsValidBatchStatus checks if a status is valid
func IsValidBatchStatus(status string) bool {
	for _, s := range ValidBatchStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
