package repository

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/classpix/classpixbackend/models"
	"gorm.io/gorm"
)

// PhotoRepository handles database operations for Photo entities
type PhotoRepository struct {
	DB *gorm.DB
}

// Ensure PhotoRepository implements PhotoRepositoryInterface
var _ PhotoRepositoryInterface = (*PhotoRepository)(nil)

// NewPhotoRepository creates a new instance of PhotoRepository
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{DB: db}
}

// Create creates a new photo record in the database
func (r *PhotoRepository) Create(photo *models.Photo) error {
	now := time.Now().Unix()
	if photo.CreatedAt == 0 {
		photo.CreatedAt = now
	}
	photo.UpdatedAt = now
	photo.Path = filepath.ToSlash(photo.Path)

	err := r.DB.Create(photo).Error
	if err != nil {
		return fmt.Errorf("failed to create photo %s: %w", photo.Path, err)
	}
	return nil
}

// GetByID retrieves a photo by its ID, preloading detected Faces
func (r *PhotoRepository) GetByID(id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.DB.Preload("Faces").First(&photo, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get photo by ID %d: %w", id, err)
	}
	return &photo, nil
}

// GetBySessionAndHash retrieves a photo by content hash within a session,
// used to de-duplicate re-imports of identical files
func (r *PhotoRepository) GetBySessionAndHash(sessionID uint, contentHash string) (*models.Photo, error) {
	var photo models.Photo
	err := r.DB.Where("session_id = ? AND content_hash = ?", sessionID, contentHash).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get photo by hash in session %d: %w", sessionID, err)
	}
	return &photo, nil
}

// ListBySession retrieves all photos for a session, ordered by path
func (r *PhotoRepository) ListBySession(sessionID uint) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.DB.Where("session_id = ?", sessionID).Order("path ASC").Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list photos for session %d: %w", sessionID, err)
	}
	return photos, nil
}

// Delete removes a photo by its ID along with its faces and photo links
func (r *PhotoRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", id).Delete(&models.Face{}).Error; err != nil {
			return fmt.Errorf("failed to delete faces for photo ID %d: %w", id, err)
		}
		if err := tx.Where("photo_id = ?", id).Delete(&models.StudentPhoto{}).Error; err != nil {
			return fmt.Errorf("failed to delete photo links for photo ID %d: %w", id, err)
		}
		result := tx.Delete(&models.Photo{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete photo ID %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
