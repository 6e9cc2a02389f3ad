package model

import (
	"time"

	"gorm.io/gorm"
)

// User is the minimal user record the pipeline needs: ticket reporters are
// found or created by email, assignee suggestions resolve against it.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Email     string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Name      string         `json:"name" gorm:"type:varchar(255)"`
	Role      string         `json:"role" gorm:"type:varchar(50);default:'customer'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
