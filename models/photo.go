package models

// Photo represents one imported event photograph using GORM.
// It corresponds to the 'photos' table. ContentHash is a sha256 of the file
// bytes and de-duplicates re-imports of identical files within a session.
type Photo struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UID         string `gorm:"not null;uniqueIndex" json:"uid"` // stable external identifier
	SessionID   uint   `gorm:"not null;uniqueIndex:idx_session_hash" json:"session_id"`
	Path        string `gorm:"not null;index" json:"path"`
	ContentHash string `gorm:"not null;uniqueIndex:idx_session_hash" json:"content_hash"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	TakenAt     *int64 `json:"taken_at,omitempty"` // from EXIF, Unix timestamp
	CreatedAt   int64  `gorm:"not null" json:"created_at"`
	UpdatedAt   int64  `gorm:"not null" json:"updated_at"`

	// Relationships
	Faces []Face `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE" json:"faces,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Photo) TableName() string {
	return "photos"
}
