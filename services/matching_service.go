package services

import (
	"fmt"
	"log"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
)

// MatchingService applies the matching decision engine over persisted faces:
// the backward pass after a new enrollment, the forward/rematch-all pass
// after roster drift, and manual confirmation.
type MatchingService struct {
	studentRepo repository.StudentRepositoryInterface
	faceRepo    repository.FaceRepositoryInterface
	thresholds  map[string]embedding.Thresholds
}

// NewMatchingService creates a new matching service. thresholds maps model
// tags to their calibrated accept/review pairs.
func NewMatchingService(
	studentRepo repository.StudentRepositoryInterface,
	faceRepo repository.FaceRepositoryInterface,
	thresholds map[string]embedding.Thresholds,
) *MatchingService {
	return &MatchingService{
		studentRepo: studentRepo,
		faceRepo:    faceRepo,
		thresholds:  thresholds,
	}
}

// ThresholdsFor returns the threshold pair calibrated for a model tag.
// Unknown tags fall back to a conservative pair that only auto-accepts
// near-identical vectors.
func (s *MatchingService) ThresholdsFor(model string) embedding.Thresholds {
	if th, ok := s.thresholds[model]; ok {
		return th
	}
	log.Printf("matcher: no thresholds configured for model %q, using conservative defaults", model)
	return embedding.Thresholds{Accept: 0.95, Review: 0.90}
}

// MatchNewStudent is the backward pass: after enrolling a student, scan the
// session's currently-unmatched faces against a singleton roster holding only
// the new student. Faces with an existing assignment, even a low-confidence
// one to someone else, are left alone. Returns the number of faces newly
// assigned to the student.
func (s *MatchingService) MatchNewStudent(student *models.Student) (int, error) {
	desc, ok, err := student.Descriptor()
	if err != nil {
		return 0, fmt.Errorf("backward pass: student %d: %w", student.ID, err)
	}
	if !ok {
		return 0, nil // nothing to match against yet
	}

	faces, err := s.faceRepo.ListUnmatchedWithDescriptor(student.SessionID)
	if err != nil {
		return 0, fmt.Errorf("backward pass: %w", err)
	}

	roster := []embedding.RosterEntry{{StudentID: student.ID, Descriptor: desc}}
	matched := 0
	for i := range faces {
		faceDesc, ok, err := faces[i].Descriptor()
		if err != nil {
			log.Printf("matcher: skipping face %d: corrupt descriptor: %v", faces[i].ID, err)
			continue
		}
		if !ok {
			continue
		}

		result := embedding.Match(faceDesc, roster, s.ThresholdsFor(faceDesc.Model))
		if result.StudentID == nil {
			continue
		}

		if err := s.faceRepo.UpdateMatch(faces[i].ID, result.StudentID, result.Confidence, result.NeedsReview); err != nil {
			return matched, fmt.Errorf("backward pass: face %d: %w", faces[i].ID, err)
		}
		if err := s.faceRepo.UpsertStudentPhotoLink(*result.StudentID, faces[i].PhotoID); err != nil {
			return matched, fmt.Errorf("backward pass: face %d: %w", faces[i].ID, err)
		}
		matched++
	}

	log.Printf("matcher: backward pass for student %d matched %d of %d unmatched faces",
		student.ID, matched, len(faces))
	return matched, nil
}

// RematchSession is the forward pass: re-run every non-manually-verified face
// with a usable descriptor against the full current roster and overwrite
// assignments that changed. Returns the number of faces updated.
func (s *MatchingService) RematchSession(sessionID uint) (int, error) {
	roster, err := s.studentRepo.GetRoster(sessionID)
	if err != nil {
		return 0, fmt.Errorf("forward pass: %w", err)
	}

	faces, err := s.faceRepo.ListRematchable(sessionID)
	if err != nil {
		return 0, fmt.Errorf("forward pass: %w", err)
	}

	updated := 0
	for i := range faces {
		face := &faces[i]
		faceDesc, ok, err := face.Descriptor()
		if err != nil {
			log.Printf("matcher: skipping face %d: corrupt descriptor: %v", face.ID, err)
			continue
		}
		if !ok {
			continue
		}

		result := embedding.Match(faceDesc, roster, s.ThresholdsFor(faceDesc.Model))
		if !matchChanged(face, result) {
			continue
		}

		if err := s.faceRepo.UpdateMatch(face.ID, result.StudentID, result.Confidence, result.NeedsReview); err != nil {
			return updated, fmt.Errorf("forward pass: face %d: %w", face.ID, err)
		}
		if result.StudentID != nil {
			if err := s.faceRepo.UpsertStudentPhotoLink(*result.StudentID, face.PhotoID); err != nil {
				return updated, fmt.Errorf("forward pass: face %d: %w", face.ID, err)
			}
		}
		updated++
	}

	log.Printf("matcher: forward pass over session %d updated %d of %d faces (roster size %d)",
		sessionID, updated, len(faces), len(roster))
	return updated, nil
}

// matchChanged reports whether the recomputed decision differs from what the
// face currently carries
func matchChanged(face *models.Face, result embedding.MatchResult) bool {
	if (face.StudentID == nil) != (result.StudentID == nil) {
		return true
	}
	if face.StudentID != nil && *face.StudentID != *result.StudentID {
		return true
	}
	return face.NeedsReview != result.NeedsReview
}

// ConfirmFace records a human-confirmed assignment, making the face immutable
// to later automated passes, and maintains the photo association.
func (s *MatchingService) ConfirmFace(faceID, studentID uint) error {
	face, err := s.faceRepo.GetByID(faceID)
	if err != nil {
		return fmt.Errorf("confirm face %d: %w", faceID, err)
	}
	if err := s.faceRepo.ConfirmMatch(faceID, studentID); err != nil {
		return fmt.Errorf("confirm face %d: %w", faceID, err)
	}
	if err := s.faceRepo.UpsertStudentPhotoLink(studentID, face.PhotoID); err != nil {
		return fmt.Errorf("confirm face %d: %w", faceID, err)
	}
	return nil
}

// UnassignFace sets a face back to unmatched
func (s *MatchingService) UnassignFace(faceID uint) error {
	if err := s.faceRepo.Unassign(faceID); err != nil {
		return fmt.Errorf("unassign face %d: %w", faceID, err)
	}
	return nil
}
