package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/media"
	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhotoAnalyzer decodes a photograph, hashes its bytes, and runs face
// detection plus embedding extraction over it
type PhotoAnalyzer interface {
	Analyze(path string) (*media.Analysis, error)
}

// ImportOutcome reports what one photograph contributed to a bulk import
type ImportOutcome struct {
	Imported      bool // false when skipped (duplicate or unreadable)
	FacesDetected int
	FacesMatched  int
}

// ImportService runs the per-photograph import pipeline: decode, de-dup by
// content hash, detect faces, match each face against a roster snapshot, and
// persist everything. Each photograph commits independently so an aborted
// batch keeps its completed photographs.
type ImportService struct {
	studentRepo repository.StudentRepositoryInterface
	photoRepo   repository.PhotoRepositoryInterface
	faceRepo    repository.FaceRepositoryInterface
	analyzer    PhotoAnalyzer
	matching    *MatchingService
}

// NewImportService creates a new import service
func NewImportService(
	studentRepo repository.StudentRepositoryInterface,
	photoRepo repository.PhotoRepositoryInterface,
	faceRepo repository.FaceRepositoryInterface,
	analyzer PhotoAnalyzer,
	matching *MatchingService,
) *ImportService {
	return &ImportService{
		studentRepo: studentRepo,
		photoRepo:   photoRepo,
		faceRepo:    faceRepo,
		analyzer:    analyzer,
		matching:    matching,
	}
}

// ImportPhoto processes a single photograph to completion. The roster is
// snapshotted once per photograph, so a concurrent enrollment is either
// visible for the whole photo or not at all, never a torn descriptor.
// Unreadable files and duplicate content both come back as skipped outcomes,
// not errors, so a bulk batch carries on.
func (s *ImportService) ImportPhoto(sessionID uint, path string) (ImportOutcome, error) {
	analysis, err := s.analyzer.Analyze(path)
	if err != nil {
		log.Printf("import: skipping unreadable photo %s: %v", path, err)
		return ImportOutcome{}, nil
	}

	if _, err := s.photoRepo.GetBySessionAndHash(sessionID, analysis.ContentHash); err == nil {
		log.Printf("import: photo %s already imported (hash match), skipping", path)
		return ImportOutcome{}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ImportOutcome{}, fmt.Errorf("import %s: %w", path, err)
	}

	roster, err := s.studentRepo.GetRoster(sessionID)
	if err != nil {
		return ImportOutcome{}, fmt.Errorf("import %s: %w", path, err)
	}

	photo := &models.Photo{
		UID:         uuid.NewString(),
		SessionID:   sessionID,
		Path:        path,
		ContentHash: analysis.ContentHash,
		Width:       analysis.Width,
		Height:      analysis.Height,
		TakenAt:     analysis.TakenAt,
	}
	if err := s.photoRepo.Create(photo); err != nil {
		return ImportOutcome{}, fmt.Errorf("import %s: %w", path, err)
	}

	outcome := ImportOutcome{Imported: true, FacesDetected: len(analysis.Faces)}
	for _, af := range analysis.Faces {
		face := &models.Face{
			PhotoID:             photo.ID,
			X1:                  af.X1,
			Y1:                  af.Y1,
			X2:                  af.X2,
			Y2:                  af.Y2,
			DetectionConfidence: af.Confidence,
		}

		if af.Descriptor != nil {
			face.SetDescriptor(*af.Descriptor)
			result := embedding.Match(*af.Descriptor, roster, s.matching.ThresholdsFor(af.Descriptor.Model))
			if result.StudentID != nil {
				face.StudentID = result.StudentID
				face.MatchConfidence = result.Confidence
				face.NeedsReview = result.NeedsReview
				outcome.FacesMatched++
			} else {
				face.MatchConfidence = result.Confidence
			}
		}

		if err := s.faceRepo.Create(face); err != nil {
			return outcome, fmt.Errorf("import %s: %w", path, err)
		}
		if face.StudentID != nil {
			if err := s.faceRepo.UpsertStudentPhotoLink(*face.StudentID, photo.ID); err != nil {
				return outcome, fmt.Errorf("import %s: %w", path, err)
			}
		}
	}

	return outcome, nil
}
