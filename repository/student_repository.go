package repository

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/models"
	"gorm.io/gorm"
)

// StudentRepository handles database operations for Student and related
// ReferencePhoto entities
type StudentRepository struct {
	DB *gorm.DB
}

// Ensure StudentRepository implements StudentRepositoryInterface
var _ StudentRepositoryInterface = (*StudentRepository)(nil)

// NewStudentRepository creates a new instance of StudentRepository
func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

// Create creates a new student record in the database
func (r *StudentRepository) Create(student *models.Student) error {
	now := time.Now().Unix()
	if student.CreatedAt == 0 {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	err := r.DB.Create(student).Error
	if err != nil {
		return fmt.Errorf("failed to create student %s: %w", student.Code, err)
	}
	return nil
}

// GetByID retrieves a student by their ID, preloading ReferencePhotos
func (r *StudentRepository) GetByID(id uint) (*models.Student, error) {
	var student models.Student
	err := r.DB.Preload("ReferencePhotos").First(&student, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student by ID %d: %w", id, err)
	}
	return &student, nil
}

// GetBySessionAndCode retrieves a student by their (session, code) pair
func (r *StudentRepository) GetBySessionAndCode(sessionID uint, code string) (*models.Student, error) {
	var student models.Student
	err := r.DB.Where("session_id = ? AND code = ?", sessionID, code).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student %s in session %d: %w", code, sessionID, err)
	}
	return &student, nil
}

// ListBySession retrieves all students in a session, ordered by name
func (r *StudentRepository) ListBySession(sessionID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.DB.Where("session_id = ?", sessionID).Order("name ASC").Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list students for session %d: %w", sessionID, err)
	}
	return students, nil
}

// UpdateInfo applies a typed partial update to a student's mutable fields
func (r *StudentRepository) UpdateInfo(studentID uint, update StudentUpdate) error {
	updates := make(map[string]interface{})
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Code != nil {
		updates["code"] = *update.Code
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().Unix()

	result := r.DB.Model(&models.Student{}).Where("id = ?", studentID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update student ID %d: %w", studentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveDescriptor stores a student's representative descriptor. The write is a
// single UPDATE so roster readers never observe a partially-written vector.
func (r *StudentRepository) SaveDescriptor(studentID uint, desc embedding.Descriptor) error {
	updates := map[string]interface{}{
		"descriptor_data":  desc.Encode(),
		"descriptor_model": desc.Model,
		"updated_at":       time.Now().Unix(),
	}
	result := r.DB.Model(&models.Student{}).Where("id = ?", studentID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to save descriptor for student ID %d: %w", studentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a student by their ID. All face assignments to the student
// are severed (set back to unmatched) and the derived photo links removed
// inside one transaction; the faces themselves survive.
func (r *StudentRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now().Unix()
		err := tx.Model(&models.Face{}).Where("student_id = ?", id).Updates(map[string]interface{}{
			"student_id":       gorm.Expr("NULL"),
			"match_confidence": 0.0,
			"needs_review":     false,
			"manual_verified":  false,
			"updated_at":       now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to sever faces for student ID %d: %w", id, err)
		}

		if err := tx.Where("student_id = ?", id).Delete(&models.StudentPhoto{}).Error; err != nil {
			return fmt.Errorf("failed to delete photo links for student ID %d: %w", id, err)
		}

		result := tx.Delete(&models.Student{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete student ID %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AddReferencePhoto records a reference photo for a student
func (r *StudentRepository) AddReferencePhoto(ref *models.ReferencePhoto) error {
	if ref.CreatedAt == 0 {
		ref.CreatedAt = time.Now().Unix()
	}
	err := r.DB.Create(ref).Error
	if err != nil {
		return fmt.Errorf("failed to add reference photo '%s' for student ID %d: %w", ref.Path, ref.StudentID, err)
	}
	return nil
}

// ListReferencePhotos retrieves all reference photos for a given student ID
func (r *StudentRepository) ListReferencePhotos(studentID uint) ([]models.ReferencePhoto, error) {
	var refs []models.ReferencePhoto
	err := r.DB.Where("student_id = ?", studentID).Order("id ASC").Find(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reference photos for student ID %d: %w", studentID, err)
	}
	return refs, nil
}

// GetRoster loads the (student id, descriptor) snapshot for a session in one
// query. Students without a stored descriptor are omitted; students whose
// stored bytes fail to decode are skipped with a warning rather than sinking
// the whole pass.
func (r *StudentRepository) GetRoster(sessionID uint) ([]embedding.RosterEntry, error) {
	var students []models.Student
	err := r.DB.Where("session_id = ? AND descriptor_data IS NOT NULL", sessionID).
		Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roster for session %d: %w", sessionID, err)
	}

	roster := make([]embedding.RosterEntry, 0, len(students))
	for i := range students {
		desc, ok, err := students[i].Descriptor()
		if err != nil {
			log.Printf("roster: skipping student %d: corrupt descriptor: %v", students[i].ID, err)
			continue
		}
		if !ok {
			continue
		}
		roster = append(roster, embedding.RosterEntry{StudentID: students[i].ID, Descriptor: desc})
	}
	return roster, nil
}
