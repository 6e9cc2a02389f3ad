package model

import (
	"time"

	"gorm.io/gorm"
)

// Ticket statuses. A customer reply on a pending_customer or closed
// ticket flips it back to open; no other transition happens in this service.
const (
	TicketStatusNew             = "new"
	TicketStatusOpen            = "open"
	TicketStatusInProgress      = "in_progress"
	TicketStatusPendingCustomer = "pending_customer"
	TicketStatusClosed          = "closed"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Ticket represents a support ticket created from an inbound email.
// ExternalMessageID carries the RFC 5322 Message-ID of the originating
// email and is the primary deduplication key.
type Ticket struct {
	ID                  uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Title               string         `json:"title" gorm:"type:varchar(512);not null"`
	Description         string         `json:"description" gorm:"type:text"`
	Status              string         `json:"status" gorm:"type:varchar(50);not null;index"`
	Priority            string         `json:"priority" gorm:"type:varchar(50);not null"`
	Type                string         `json:"type" gorm:"type:varchar(100)"`
	ReporterID          uint           `json:"reporter_id" gorm:"not null;index"`
	AssigneeID          *uint          `json:"assignee_id" gorm:"index"`
	SuggestedAssigneeID *uint          `json:"suggested_assignee_id"`
	OrderNumber         string         `json:"order_number" gorm:"type:varchar(100)"`
	TrackingNumber      string         `json:"tracking_number" gorm:"type:varchar(100)"`
	SenderEmail         string         `json:"sender_email" gorm:"type:varchar(255);not null;index"`
	SenderName          string         `json:"sender_name" gorm:"type:varchar(255)"`
	ExternalMessageID   *string        `json:"external_message_id" gorm:"type:varchar(512);uniqueIndex"`
	ConversationID      *string        `json:"conversation_id" gorm:"type:varchar(512);index"`
	Sentiment           string         `json:"sentiment" gorm:"type:varchar(50)"`
	Summary             string         `json:"summary" gorm:"type:text"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}
