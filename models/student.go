package models

import (
	"github.com/classpix/classpixbackend/embedding"
)

// Student represents an enrolled person within a session using GORM.
// It corresponds to the 'students' table. The (session_id, code) pair is
// unique: enrolling the same code twice in a session is a no-op.
type Student struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint   `gorm:"not null;uniqueIndex:idx_session_code" json:"session_id"`
	Code      string `gorm:"not null;uniqueIndex:idx_session_code" json:"code"` // external code, e.g. roll number
	Name      string `gorm:"not null" json:"name"`

	// Representative face descriptor, nil until the first reference photo
	// yields one. Stored as a little-endian float32 BLOB.
	DescriptorData  []byte `gorm:"column:descriptor_data" json:"-"`
	DescriptorModel string `gorm:"column:descriptor_model" json:"descriptor_model,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	ReferencePhotos []ReferencePhoto `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"reference_photos,omitempty"`
	Faces           []Face           `gorm:"foreignKey:StudentID;constraint:OnDelete:SET NULL" json:"faces,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Student) TableName() string {
	return "students"
}

// Descriptor decodes the stored representative descriptor. Returns
// (zero, false) when the student has no descriptor yet and an error when the
// stored bytes disagree with the model tag's dimensionality.
func (s *Student) Descriptor() (embedding.Descriptor, bool, error) {
	if len(s.DescriptorData) == 0 || s.DescriptorModel == "" {
		return embedding.Descriptor{}, false, nil
	}
	desc, err := embedding.Decode(s.DescriptorData, s.DescriptorModel)
	if err != nil {
		return embedding.Descriptor{}, false, err
	}
	return desc, true, nil
}

// SetDescriptor encodes and stores a representative descriptor.
func (s *Student) SetDescriptor(desc embedding.Descriptor) {
	s.DescriptorData = desc.Encode()
	s.DescriptorModel = desc.Model
}

// ReferencePhoto records one reference photograph supplied at enrollment or
// added later. Kept so the representative descriptor can be fully recomputed.
// It corresponds to the 'reference_photos' table.
type ReferencePhoto struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID uint   `gorm:"not null;index" json:"student_id"`
	Path      string `gorm:"not null" json:"path"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (ReferencePhoto) TableName() string {
	return "reference_photos"
}
