package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/classpix/classpixbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FaceRepository handles database operations for Face entities and the
// derived StudentPhoto links
type FaceRepository struct {
	DB *gorm.DB
}

// Ensure FaceRepository implements FaceRepositoryInterface
var _ FaceRepositoryInterface = (*FaceRepository)(nil)

// NewFaceRepository creates a new instance of FaceRepository
func NewFaceRepository(db *gorm.DB) *FaceRepository {
	return &FaceRepository{DB: db}
}

// Create creates a new face record in the database
func (r *FaceRepository) Create(face *models.Face) error {
	now := time.Now().Unix()
	if face.CreatedAt == 0 {
		face.CreatedAt = now
	}
	face.UpdatedAt = now

	err := r.DB.Create(face).Error
	if err != nil {
		return fmt.Errorf("failed to create face for photo %d: %w", face.PhotoID, err)
	}
	return nil
}

// GetByID retrieves a face by its ID, preloading the assigned Student
func (r *FaceRepository) GetByID(id uint) (*models.Face, error) {
	var face models.Face
	err := r.DB.Preload("Student").First(&face, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get face by ID %d: %w", id, err)
	}
	return &face, nil
}

// ListByPhotoID retrieves all faces for a given photo, preloading Students
func (r *FaceRepository) ListByPhotoID(photoID uint) ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Preload("Student").Where("photo_id = ?", photoID).Order("id ASC").Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list faces for photo %d: %w", photoID, err)
	}
	return faces, nil
}

// ListNeedsReview retrieves tentatively matched faces awaiting human
// confirmation across a session
func (r *FaceRepository) ListNeedsReview(sessionID uint) ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Joins("JOIN photos ON faces.photo_id = photos.id").
		Where("photos.session_id = ? AND faces.needs_review = ? AND faces.student_id IS NOT NULL", sessionID, true).
		Preload("Student").
		Order("faces.id ASC").
		Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list needs-review faces for session %d: %w", sessionID, err)
	}
	return faces, nil
}

// ListUnmatchedWithDescriptor retrieves session faces with a usable
// descriptor and no current assignment. Input to the backward pass; faces
// already assigned to anyone (even tentatively) are deliberately excluded.
func (r *FaceRepository) ListUnmatchedWithDescriptor(sessionID uint) ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Joins("JOIN photos ON faces.photo_id = photos.id").
		Where("photos.session_id = ? AND faces.student_id IS NULL AND faces.embedding_data IS NOT NULL", sessionID).
		Order("faces.id ASC").
		Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched faces for session %d: %w", sessionID, err)
	}
	return faces, nil
}

// ListRematchable retrieves session faces with a usable descriptor that are
// not manually verified. Input to the forward/rematch-all pass.
func (r *FaceRepository) ListRematchable(sessionID uint) ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Joins("JOIN photos ON faces.photo_id = photos.id").
		Where("photos.session_id = ? AND faces.embedding_data IS NOT NULL AND faces.manual_verified = ?", sessionID, false).
		Order("faces.id ASC").
		Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rematchable faces for session %d: %w", sessionID, err)
	}
	return faces, nil
}

// UpdateMatch persists a matching decision for a face. A nil studentID sets
// the face back to unmatched; unmatched faces never carry a review flag.
func (r *FaceRepository) UpdateMatch(faceID uint, studentID *uint, confidence float64, needsReview bool) error {
	updates := map[string]interface{}{
		"match_confidence": confidence,
		"needs_review":     needsReview,
		"updated_at":       time.Now().Unix(),
	}
	if studentID != nil {
		updates["student_id"] = *studentID
	} else {
		updates["student_id"] = gorm.Expr("NULL")
		updates["needs_review"] = false
	}

	result := r.DB.Model(&models.Face{}).Where("id = ?", faceID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update match for face ID %d: %w", faceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConfirmMatch records a human-confirmed assignment. The face becomes
// manually verified and immutable to automated rematch passes.
func (r *FaceRepository) ConfirmMatch(faceID uint, studentID uint) error {
	updates := map[string]interface{}{
		"student_id":      studentID,
		"needs_review":    false,
		"manual_verified": true,
		"updated_at":      time.Now().Unix(),
	}
	result := r.DB.Model(&models.Face{}).Where("id = ?", faceID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to confirm match for face ID %d: %w", faceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Unassign sets a face back to unmatched, clearing flags and confidence
func (r *FaceRepository) Unassign(faceID uint) error {
	updates := map[string]interface{}{
		"student_id":       gorm.Expr("NULL"),
		"match_confidence": 0.0,
		"needs_review":     false,
		"manual_verified":  false,
		"updated_at":       time.Now().Unix(),
	}
	result := r.DB.Model(&models.Face{}).Where("id = ?", faceID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to unassign face ID %d: %w", faceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearAssignmentsByStudent severs every face assignment to a student
func (r *FaceRepository) ClearAssignmentsByStudent(studentID uint) error {
	err := r.DB.Model(&models.Face{}).Where("student_id = ?", studentID).Updates(map[string]interface{}{
		"student_id":       gorm.Expr("NULL"),
		"match_confidence": 0.0,
		"needs_review":     false,
		"manual_verified":  false,
		"updated_at":       time.Now().Unix(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to clear assignments for student ID %d: %w", studentID, err)
	}
	return nil
}

// UpsertStudentPhotoLink ensures the derived (student, photo) association
// exists exactly once, no matter how many faces in the photo matched
func (r *FaceRepository) UpsertStudentPhotoLink(studentID, photoID uint) error {
	link := models.StudentPhoto{
		StudentID: studentID,
		PhotoID:   photoID,
		CreatedAt: time.Now().Unix(),
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "photo_id"}},
		DoNothing: true,
	}).Create(&link).Error
	if err != nil {
		return fmt.Errorf("failed to upsert photo link (student %d, photo %d): %w", studentID, photoID, err)
	}
	return nil
}

// DeleteStudentPhotoLinks removes all photo links for a student
func (r *FaceRepository) DeleteStudentPhotoLinks(studentID uint) error {
	err := r.DB.Where("student_id = ?", studentID).Delete(&models.StudentPhoto{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete photo links for student ID %d: %w", studentID, err)
	}
	return nil
}
