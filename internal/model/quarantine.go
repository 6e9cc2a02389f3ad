package model

import (
	"time"

	"gorm.io/gorm"
)

// Quarantine review statuses. Transitions past pending_review happen in the
// human review workflow, not in this service.
const (
	QuarantineStatusPendingReview   = "pending_review"
	QuarantineStatusApprovedTicket  = "approved_ticket"
	QuarantineStatusApprovedComment = "approved_comment"
	QuarantineStatusRejectedSpam    = "rejected_spam"
	QuarantineStatusRejectedVendor  = "rejected_vendor"
	QuarantineStatusDeleted         = "deleted"
)

// QuarantineRecord holds a snapshot of a message the pipeline could not
// confidently resolve, awaiting human review.
type QuarantineRecord struct {
	ID                uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	OriginalMessageID string         `json:"original_message_id" gorm:"type:varchar(512);not null;uniqueIndex"`
	InternetMessageID *string        `json:"internet_message_id" gorm:"type:varchar(512);uniqueIndex"`
	SenderEmail       string         `json:"sender_email" gorm:"type:varchar(255)"`
	SenderName        string         `json:"sender_name" gorm:"type:varchar(255)"`
	Subject           string         `json:"subject" gorm:"type:varchar(512)"`
	BodyPreview       string         `json:"body_preview" gorm:"type:text"`
	ReceivedAt        time.Time      `json:"received_at"`
	AIClassification  bool           `json:"ai_classification"`
	AIReason          string         `json:"ai_reason" gorm:"type:text"`
	Status            string         `json:"status" gorm:"type:varchar(50);not null;index"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for QuarantineRecord
func (QuarantineRecord) TableName() string {
	return "quarantine_records"
}
