package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"gorm.io/gorm"
)

// ReferenceExtractor turns a reference photo on disk into a face descriptor.
// A (nil, nil) return means no face was found in the photo, a per-photo
// condition the caller recovers from, not an error.
type ReferenceExtractor interface {
	Model() string
	ExtractFromFile(path string) (*embedding.Descriptor, error)
}

// EnrollmentService manages a student's embedding lifecycle: initial
// averaging over reference photos, incremental blending when a reference
// photo is added later, and full recomputation.
type EnrollmentService struct {
	studentRepo repository.StudentRepositoryInterface
	extractor   ReferenceExtractor
	matching    *MatchingService
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(
	studentRepo repository.StudentRepositoryInterface,
	extractor ReferenceExtractor,
	matching *MatchingService,
) *EnrollmentService {
	return &EnrollmentService{
		studentRepo: studentRepo,
		extractor:   extractor,
		matching:    matching,
	}
}

// EnrollResult reports the outcome of one enrollment
type EnrollResult struct {
	Student         *models.Student `json:"student"`
	Created         bool            `json:"created"`
	ReferencesUsed  int             `json:"references_used"`
	BackwardMatches int             `json:"backward_matches"`
}

// EnrollStudent enrolls a student by (session, code) with one or more
// reference photos. Enrolling an already-existing code is a no-op that
// returns the existing student with Created=false. The representative
// descriptor is the arithmetic mean over every reference photo that yielded
// one; reference photos with no detectable face are skipped, and enrollment
// fails with ErrNoUsableReference only if all of them fail. After creation
// the backward pass scans existing unmatched faces for the new student.
func (s *EnrollmentService) EnrollStudent(sessionID uint, code, name string, refPhotoPaths []string) (*EnrollResult, error) {
	existing, err := s.studentRepo.GetBySessionAndCode(sessionID, code)
	if err == nil {
		log.Printf("enroll: student %s already exists in session %d, skipping", code, sessionID)
		return &EnrollResult{Student: existing, Created: false}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("enroll %s: %w", code, err)
	}

	var descs []embedding.Descriptor
	var usedPaths []string
	for _, path := range refPhotoPaths {
		desc, err := s.extractor.ExtractFromFile(path)
		if err != nil {
			log.Printf("enroll: reference photo %s unreadable, skipping: %v", path, err)
			continue
		}
		if desc == nil {
			log.Printf("enroll: no face found in reference photo %s, skipping", path)
			continue
		}
		descs = append(descs, *desc)
		usedPaths = append(usedPaths, path)
	}

	rep, err := embedding.Average(descs)
	if err != nil {
		return nil, fmt.Errorf("enroll %s: %w", code, err)
	}

	student := &models.Student{SessionID: sessionID, Code: code, Name: name}
	student.SetDescriptor(rep)
	if err := s.studentRepo.Create(student); err != nil {
		return nil, fmt.Errorf("enroll %s: %w", code, err)
	}
	for _, path := range usedPaths {
		ref := &models.ReferencePhoto{StudentID: student.ID, Path: path}
		if err := s.studentRepo.AddReferencePhoto(ref); err != nil {
			return nil, fmt.Errorf("enroll %s: %w", code, err)
		}
	}

	backward, err := s.matching.MatchNewStudent(student)
	if err != nil {
		return nil, fmt.Errorf("enroll %s: %w", code, err)
	}

	return &EnrollResult{
		Student:         student,
		Created:         true,
		ReferencesUsed:  len(descs),
		BackwardMatches: backward,
	}, nil
}

// AddReferencePhoto folds one new reference photo into a student's
// representative descriptor as a blend-of-two: (old+new)/2, L2-normalized.
// This deliberately weighs recent photos over the historical mean; use
// RecomputeDescriptor to rebuild the true average.
func (s *EnrollmentService) AddReferencePhoto(studentID uint, path string) error {
	student, err := s.studentRepo.GetByID(studentID)
	if err != nil {
		return fmt.Errorf("add reference for student %d: %w", studentID, err)
	}

	desc, err := s.extractor.ExtractFromFile(path)
	if err != nil {
		return fmt.Errorf("add reference for student %d: %w", studentID, err)
	}
	if desc == nil {
		return fmt.Errorf("add reference for student %d: %w", studentID, embedding.ErrNoUsableReference)
	}

	rep := *desc
	if old, ok, err := student.Descriptor(); err != nil {
		return fmt.Errorf("add reference for student %d: %w", studentID, err)
	} else if ok {
		rep, err = embedding.Blend(old, *desc)
		if err != nil {
			return fmt.Errorf("add reference for student %d: %w", studentID, err)
		}
	}

	if err := s.studentRepo.SaveDescriptor(studentID, rep); err != nil {
		return fmt.Errorf("add reference for student %d: %w", studentID, err)
	}
	ref := &models.ReferencePhoto{StudentID: studentID, Path: path}
	if err := s.studentRepo.AddReferencePhoto(ref); err != nil {
		return fmt.Errorf("add reference for student %d: %w", studentID, err)
	}
	return nil
}

// RecomputeDescriptor rebuilds a student's representative descriptor from
// scratch over every stored reference photo, repairing blend drift. Reference
// photos that no longer yield a face are skipped; the recompute fails with
// ErrNoUsableReference only when none remain usable.
func (s *EnrollmentService) RecomputeDescriptor(studentID uint) error {
	refs, err := s.studentRepo.ListReferencePhotos(studentID)
	if err != nil {
		return fmt.Errorf("recompute for student %d: %w", studentID, err)
	}

	var descs []embedding.Descriptor
	for _, ref := range refs {
		desc, err := s.extractor.ExtractFromFile(ref.Path)
		if err != nil {
			log.Printf("recompute: reference photo %s unreadable, skipping: %v", ref.Path, err)
			continue
		}
		if desc == nil {
			log.Printf("recompute: no face found in reference photo %s, skipping", ref.Path)
			continue
		}
		descs = append(descs, *desc)
	}

	rep, err := embedding.Average(descs)
	if err != nil {
		return fmt.Errorf("recompute for student %d: %w", studentID, err)
	}
	if err := s.studentRepo.SaveDescriptor(studentID, rep); err != nil {
		return fmt.Errorf("recompute for student %d: %w", studentID, err)
	}
	log.Printf("recompute: rebuilt descriptor for student %d from %d of %d reference photos",
		studentID, len(descs), len(refs))
	return nil
}

// DeleteStudent removes a student; their face assignments are severed back to
// unmatched and the derived photo links dropped (the faces remain).
func (s *EnrollmentService) DeleteStudent(studentID uint) error {
	if err := s.studentRepo.Delete(studentID); err != nil {
		return fmt.Errorf("delete student %d: %w", studentID, err)
	}
	return nil
}
