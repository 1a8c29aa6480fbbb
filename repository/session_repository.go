package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/classpix/classpixbackend/models"
	"gorm.io/gorm"
)

// SessionRepository handles database operations for Session entities
type SessionRepository struct {
	DB *gorm.DB
}

// Ensure SessionRepository implements SessionRepositoryInterface
var _ SessionRepositoryInterface = (*SessionRepository)(nil)

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// Create creates a new session record in the database
func (r *SessionRepository) Create(session *models.Session) error {
	now := time.Now().Unix()
	if session.CreatedAt == 0 {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	err := r.DB.Create(session).Error
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.Name, err)
	}
	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(id uint) (*models.Session, error) {
	var session models.Session
	err := r.DB.First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session by ID %d: %w", id, err)
	}
	return &session, nil
}

// ListAll retrieves all sessions, newest first
func (r *SessionRepository) ListAll() ([]models.Session, error) {
	var sessions []models.Session
	err := r.DB.Order("created_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Update updates an existing session's details
func (r *SessionRepository) Update(session *models.Session) error {
	session.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Session{ID: session.ID}).Updates(models.Session{
		Name:      session.Name,
		EventDate: session.EventDate,
		UpdatedAt: session.UpdatedAt,
	})

	if result.Error != nil {
		return fmt.Errorf("failed to update session ID %d: %w", session.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a session by its ID
func (r *SessionRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Session{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
