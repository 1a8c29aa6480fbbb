package repository

import (
	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/models"
)

// SessionRepositoryInterface defines the methods for session data operations
type SessionRepositoryInterface interface {
	Create(session *models.Session) error
	GetByID(id uint) (*models.Session, error)
	ListAll() ([]models.Session, error)
	Update(session *models.Session) error
	Delete(id uint) error
}

// StudentUpdate enumerates the mutable student fields for a partial update.
// Nil fields are left untouched.
type StudentUpdate struct {
	Name *string
	Code *string
}

// StudentRepositoryInterface defines the methods for student data operations
type StudentRepositoryInterface interface {
	Create(student *models.Student) error
	GetByID(id uint) (*models.Student, error)
	GetBySessionAndCode(sessionID uint, code string) (*models.Student, error)
	ListBySession(sessionID uint) ([]models.Student, error)
	UpdateInfo(studentID uint, update StudentUpdate) error
	SaveDescriptor(studentID uint, desc embedding.Descriptor) error
	Delete(id uint) error

	AddReferencePhoto(ref *models.ReferencePhoto) error
	ListReferencePhotos(studentID uint) ([]models.ReferencePhoto, error)

	// GetRoster returns the (student id, representative descriptor) snapshot
	// for one matching pass. Students without a descriptor are omitted.
	GetRoster(sessionID uint) ([]embedding.RosterEntry, error)
}

// PhotoRepositoryInterface defines the methods for photo data operations
type PhotoRepositoryInterface interface {
	Create(photo *models.Photo) error
	GetByID(id uint) (*models.Photo, error)
	GetBySessionAndHash(sessionID uint, contentHash string) (*models.Photo, error)
	ListBySession(sessionID uint) ([]models.Photo, error)
	Delete(id uint) error
}

// FaceRepositoryInterface defines the methods for face data operations
type FaceRepositoryInterface interface {
	Create(face *models.Face) error
	GetByID(id uint) (*models.Face, error)
	ListByPhotoID(photoID uint) ([]models.Face, error)
	ListNeedsReview(sessionID uint) ([]models.Face, error)

	// ListUnmatchedWithDescriptor returns session faces that have a usable
	// descriptor and no current assignment (backward pass input).
	ListUnmatchedWithDescriptor(sessionID uint) ([]models.Face, error)

	// ListRematchable returns session faces that have a usable descriptor
	// and are not manually verified (forward pass input).
	ListRematchable(sessionID uint) ([]models.Face, error)

	UpdateMatch(faceID uint, studentID *uint, confidence float64, needsReview bool) error
	ConfirmMatch(faceID uint, studentID uint) error
	Unassign(faceID uint) error
	ClearAssignmentsByStudent(studentID uint) error

	UpsertStudentPhotoLink(studentID, photoID uint) error
	DeleteStudentPhotoLinks(studentID uint) error
}
