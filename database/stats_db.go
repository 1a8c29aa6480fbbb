package database

import (
	"database/sql"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SessionStats summarizes the assignment state of every face detected in a
// session's photographs
type SessionStats struct {
	SessionID      uint  `json:"session_id"`
	Photos         int64 `json:"photos"`
	Faces          int64 `json:"faces"`
	MatchedFaces   int64 `json:"matched_faces"`
	ReviewFaces    int64 `json:"review_faces"`
	VerifiedFaces  int64 `json:"verified_faces"`
	UnmatchedFaces int64 `json:"unmatched_faces"`
}

// StudentPhotoCount is how many photographs a student appears in
type StudentPhotoCount struct {
	StudentID  uint   `json:"student_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	PhotoCount int64  `json:"photo_count"`
}

// GetSessionStats aggregates photo and face counts for one session
func GetSessionStats(db *sql.DB, sessionID uint) (SessionStats, error) {
	stats := SessionStats{SessionID: sessionID}

	photoQuery := psql.Select("COUNT(*)").
		From("photos").
		Where(sq.Eq{"session_id": sessionID})
	sqlStr, args, err := photoQuery.ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build SQL for photo count: %w", err)
	}
	if err := db.QueryRow(sqlStr, args...).Scan(&stats.Photos); err != nil {
		return stats, fmt.Errorf("failed to count photos for session %d: %w", sessionID, err)
	}

	faceQuery := psql.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN f.student_id IS NOT NULL AND NOT f.needs_review THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN f.student_id IS NOT NULL AND f.needs_review THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN f.manual_verified THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN f.student_id IS NULL THEN 1 ELSE 0 END), 0)",
	).
		From("faces f").
		Join("photos p ON p.id = f.photo_id").
		Where(sq.Eq{"p.session_id": sessionID})
	sqlStr, args, err = faceQuery.ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build SQL for face counts: %w", err)
	}
	err = db.QueryRow(sqlStr, args...).Scan(
		&stats.Faces,
		&stats.MatchedFaces,
		&stats.ReviewFaces,
		&stats.VerifiedFaces,
		&stats.UnmatchedFaces,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to count faces for session %d: %w", sessionID, err)
	}

	return stats, nil
}

// ListStudentPhotoCounts returns, per student in the session, how many
// photographs the student was found in. Students with no appearances are
// included with a zero count.
func ListStudentPhotoCounts(db *sql.DB, sessionID uint) ([]StudentPhotoCount, error) {
	queryBuilder := psql.Select(
		"s.id",
		"s.name",
		"s.code",
		"COUNT(sp.photo_id)",
	).
		From("students s").
		LeftJoin("student_photos sp ON sp.student_id = s.id").
		Where(sq.Eq{"s.session_id": sessionID}).
		GroupBy("s.id", "s.name", "s.code").
		OrderBy("s.code ASC")
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListStudentPhotoCounts: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListStudentPhotoCounts query for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	counts := []StudentPhotoCount{}
	for rows.Next() {
		var c StudentPhotoCount
		if err := rows.Scan(&c.StudentID, &c.Name, &c.Code, &c.PhotoCount); err != nil {
			log.Printf("Error scanning student photo count row: %v", err)
			continue
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return counts, fmt.Errorf("error iterating student photo count rows: %w", err)
	}
	return counts, nil
}
