package models

// Session represents one event/collection scope in the database using GORM.
// Student codes are unique within a session, never across sessions.
// It corresponds to the 'sessions' table.
type Session struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	EventDate *int64 `json:"event_date,omitempty"`    // Unix timestamp, optional
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	// omitempty will hide these if they are not preloaded or are empty
	Students []Student `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"students,omitempty"`
	Photos   []Photo   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}
