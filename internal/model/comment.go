package model

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a message on a ticket: a customer reply, an agent's
// outgoing reply, or a system-authored internal note (CommenterID nil).
// ExternalMessageID is unique when present and guards reply deduplication.
type Comment struct {
	ID                uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	TicketID          uint           `json:"ticket_id" gorm:"not null;index"`
	CommentText       string         `json:"comment_text" gorm:"type:text;not null"`
	CommenterID       *uint          `json:"commenter_id" gorm:"index"`
	IsFromCustomer    bool           `json:"is_from_customer" gorm:"default:false"`
	IsInternalNote    bool           `json:"is_internal_note" gorm:"default:false"`
	IsOutgoingReply   bool           `json:"is_outgoing_reply" gorm:"default:false"`
	ExternalMessageID *string        `json:"external_message_id" gorm:"type:varchar(512);uniqueIndex"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Ticket *Ticket `json:"ticket,omitempty" gorm:"foreignKey:TicketID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
