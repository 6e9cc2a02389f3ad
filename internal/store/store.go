package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"support-mail-ingest-go/internal/model"
	"support-mail-ingest-go/internal/pipeline"
)

// GormStore implements the pipeline's Store contract over GORM/MySQL.
type GormStore struct {
	db *gorm.DB
}

// New creates a store over the given database handle.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindTicketByExternalID(ctx context.Context, externalID string) (*model.Ticket, error) {
	var ticket model.Ticket
	result := s.db.WithContext(ctx).Where("external_message_id = ?", externalID).First(&ticket)
	if result.Error == nil {
		return &ticket, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("find ticket by external id: %w", result.Error)
}

func (s *GormStore) FindTicketByConversationID(ctx context.Context, conversationID string) (*model.Ticket, error) {
	var ticket model.Ticket
	result := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&ticket)
	if result.Error == nil {
		return &ticket, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("find ticket by conversation id: %w", result.Error)
}

func (s *GormStore) FindCommentByExternalID(ctx context.Context, externalID string) (*model.Comment, error) {
	var comment model.Comment
	result := s.db.WithContext(ctx).Where("external_message_id = ?", externalID).First(&comment)
	if result.Error == nil {
		return &comment, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("find comment by external id: %w", result.Error)
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	result := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("find user by email: %w", result.Error)
}

// FindOrCreateUser resolves a user id for an email, creating the user on
// first contact. Idempotent per email, case-insensitively.
func (s *GormStore) FindOrCreateUser(ctx context.Context, email, name string) (uint, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0, fmt.Errorf("cannot resolve user for empty email")
	}

	existing, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	user := model.User{Email: email, Name: name}
	result := s.db.WithContext(ctx).Create(&user)
	if result.Error == nil {
		return user.ID, nil
	}
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		// Concurrent creation of the same user; read back the winner.
		existing, err := s.FindUserByEmail(ctx, email)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return existing.ID, nil
		}
	}
	return 0, fmt.Errorf("create user %s: %w", email, result.Error)
}

func (s *GormStore) InsertTicket(ctx context.Context, t *model.Ticket) error {
	result := s.db.WithContext(ctx).Create(t)
	if result.Error == nil {
		return nil
	}
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert ticket: %w", pipeline.ErrDuplicate)
	}
	return fmt.Errorf("insert ticket: %w", result.Error)
}

func (s *GormStore) InsertComment(ctx context.Context, c *model.Comment) error {
	result := s.db.WithContext(ctx).Create(c)
	if result.Error == nil {
		return nil
	}
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert comment: %w", pipeline.ErrDuplicate)
	}
	return fmt.Errorf("insert comment: %w", result.Error)
}

func (s *GormStore) UpdateTicketStatus(ctx context.Context, ticketID uint, status string) error {
	result := s.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", ticketID).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("update ticket %d status: %w", ticketID, result.Error)
	}
	return nil
}

func (s *GormStore) InsertQuarantine(ctx context.Context, q *model.QuarantineRecord) error {
	result := s.db.WithContext(ctx).Create(q)
	if result.Error == nil {
		return nil
	}
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert quarantine: %w", pipeline.ErrDuplicate)
	}
	return fmt.Errorf("insert quarantine: %w", result.Error)
}

func (s *GormStore) InsertBatchRun(ctx context.Context, b *model.BatchRun) error {
	result := s.db.WithContext(ctx).Create(b)
	if result.Error != nil {
		return fmt.Errorf("insert batch run: %w", result.Error)
	}
	return nil
}

// ListQuarantine returns recent quarantine records for the review API,
// newest first.
func (s *GormStore) ListQuarantine(ctx context.Context, status string, limit, offset int) ([]model.QuarantineRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var records []model.QuarantineRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list quarantine records: %w", err)
	}
	return records, nil
}

// RecentBatchRuns returns the latest batch audit rows, newest first.
func (s *GormStore) RecentBatchRuns(ctx context.Context, limit int) ([]model.BatchRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []model.BatchRun
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list batch runs: %w", err)
	}
	return runs, nil
}
