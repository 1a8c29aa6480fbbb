package models

import (
	"github.com/classpix/classpixbackend/embedding"
)

// Face represents a detected face in an imported photograph, optionally
// assigned to a student, using GORM. It corresponds to the 'faces' table.
//
// An unassigned face (StudentID nil) always carries NeedsReview=false.
// A manually verified face is exempt from automatic re-matching.
type Face struct {
	ID      uint `gorm:"primaryKey;autoIncrement" json:"id"`
	PhotoID uint `gorm:"not null;index" json:"photo_id"`
	X1      int  `gorm:"not null" json:"x1"`
	Y1      int  `gorm:"not null" json:"y1"`
	X2      int  `gorm:"not null" json:"x2"`
	Y2      int  `gorm:"not null" json:"y2"`

	DetectionConfidence float32 `json:"detection_confidence"`

	// Face descriptor, nil when extraction failed for this region.
	EmbeddingData  []byte `gorm:"column:embedding_data" json:"-"`
	EmbeddingModel string `gorm:"column:embedding_model" json:"embedding_model,omitempty"`

	StudentID       *uint   `gorm:"index" json:"student_id,omitempty"` // Nullable foreign key to students table
	MatchConfidence float64 `json:"match_confidence"`
	NeedsReview     bool    `gorm:"not null;default:false" json:"needs_review"`
	ManualVerified  bool    `gorm:"not null;default:false" json:"manual_verified"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	Photo   *Photo   `gorm:"foreignKey:PhotoID" json:"photo,omitempty"`     // Belongs to Photo
	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"` // Belongs to Student
}

// TableName explicitly sets the table name for GORM.
func (Face) TableName() string {
	return "faces"
}

// Descriptor decodes the stored face descriptor. Returns (zero, false) when
// extraction failed at import time.
func (f *Face) Descriptor() (embedding.Descriptor, bool, error) {
	if len(f.EmbeddingData) == 0 || f.EmbeddingModel == "" {
		return embedding.Descriptor{}, false, nil
	}
	desc, err := embedding.Decode(f.EmbeddingData, f.EmbeddingModel)
	if err != nil {
		return embedding.Descriptor{}, false, err
	}
	return desc, true, nil
}

// SetDescriptor encodes and stores the face descriptor.
func (f *Face) SetDescriptor(desc embedding.Descriptor) {
	f.EmbeddingData = desc.Encode()
	f.EmbeddingModel = desc.Model
}

// StudentPhoto is the derived, de-duplicated link between a student and a
// photograph containing at least one face assigned to them. Unique per
// (student_id, photo_id) no matter how many faces in the photo matched.
// It corresponds to the 'student_photos' table.
type StudentPhoto struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID uint  `gorm:"not null;uniqueIndex:idx_student_photo" json:"student_id"`
	PhotoID   uint  `gorm:"not null;uniqueIndex:idx_student_photo" json:"photo_id"`
	CreatedAt int64 `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (StudentPhoto) TableName() string {
	return "student_photos"
}
