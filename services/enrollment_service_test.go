package services

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/classpix/classpixbackend/embedding"
)

type enrollmentFixture struct {
	*matchingFixture
	extractor  *fakeExtractor
	enrollment *EnrollmentService
}

func newEnrollmentFixture() *enrollmentFixture {
	fx := newMatchingFixture()
	extractor := &fakeExtractor{
		descs: make(map[string]*embedding.Descriptor),
		errs:  make(map[string]error),
	}
	return &enrollmentFixture{
		matchingFixture: fx,
		extractor:       extractor,
		enrollment:      NewEnrollmentService(fx.students, extractor, fx.matching),
	}
}

func (fx *enrollmentFixture) reference(path string, desc embedding.Descriptor) string {
	d := desc
	fx.extractor.descs[path] = &d
	return path
}

func TestEnrollStudentAveragesReferences(t *testing.T) {
	fx := newEnrollmentFixture()
	paths := []string{
		fx.reference("ref1.jpg", gridDescriptor(1, 0)),
		fx.reference("ref2.jpg", gridDescriptor(0, 1)),
	}

	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", paths)
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}
	if !result.Created {
		t.Fatal("Created = false, want true")
	}
	if result.ReferencesUsed != 2 {
		t.Errorf("ReferencesUsed = %d, want 2", result.ReferencesUsed)
	}

	desc, ok, err := result.Student.Descriptor()
	if err != nil || !ok {
		t.Fatalf("student descriptor missing: ok=%v err=%v", ok, err)
	}
	// mean of [1,0] and [0,1]
	for i, want := range []float32{0.5, 0.5} {
		if math.Abs(float64(desc.Vector[i]-want)) > 1e-6 {
			t.Errorf("descriptor[%d] = %v, want %v", i, desc.Vector[i], want)
		}
	}

	refs, _ := fx.students.ListReferencePhotos(result.Student.ID)
	if len(refs) != 2 {
		t.Errorf("stored reference photos = %d, want 2", len(refs))
	}
}

func TestEnrollStudentSkipsFailedReferences(t *testing.T) {
	fx := newEnrollmentFixture()
	fx.extractor.descs["no-face.jpg"] = nil
	fx.extractor.errs["broken.jpg"] = fmt.Errorf("decode failed")
	good := fx.reference("good.jpg", gridDescriptor(1, 0))

	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{"no-face.jpg", "broken.jpg", good})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}
	if result.ReferencesUsed != 1 {
		t.Errorf("ReferencesUsed = %d, want 1", result.ReferencesUsed)
	}

	refs, _ := fx.students.ListReferencePhotos(result.Student.ID)
	if len(refs) != 1 || refs[0].Path != "good.jpg" {
		t.Errorf("stored reference photos = %v, want just good.jpg", refs)
	}
}

func TestEnrollStudentNoUsableReference(t *testing.T) {
	fx := newEnrollmentFixture()
	fx.extractor.descs["no-face-1.jpg"] = nil
	fx.extractor.descs["no-face-2.jpg"] = nil

	_, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{"no-face-1.jpg", "no-face-2.jpg"})
	if !errors.Is(err, embedding.ErrNoUsableReference) {
		t.Errorf("EnrollStudent error = %v, want ErrNoUsableReference", err)
	}
}

// enrolling the same (session, code) twice is a no-op, not an error
func TestEnrollStudentDuplicateIsNoOp(t *testing.T) {
	fx := newEnrollmentFixture()
	path := fx.reference("ref.jpg", gridDescriptor(1, 0))

	first, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{path})
	if err != nil {
		t.Fatalf("first EnrollStudent failed: %v", err)
	}

	second, err := fx.enrollment.EnrollStudent(1, "S001", "Ada again", []string{path})
	if err != nil {
		t.Fatalf("second EnrollStudent failed: %v", err)
	}
	if second.Created {
		t.Error("second enrollment reported Created = true")
	}
	if second.Student.ID != first.Student.ID {
		t.Errorf("second enrollment returned student %d, want existing %d", second.Student.ID, first.Student.ID)
	}

	students, _ := fx.students.ListBySession(1)
	if len(students) != 1 {
		t.Errorf("session has %d students, want 1", len(students))
	}

	// same code in a different session is a distinct enrollment
	third, err := fx.enrollment.EnrollStudent(2, "S001", "Ada", []string{path})
	if err != nil {
		t.Fatalf("cross-session EnrollStudent failed: %v", err)
	}
	if !third.Created {
		t.Error("same code in another session should create a new student")
	}
}

func TestEnrollStudentRunsBackwardPass(t *testing.T) {
	fx := newEnrollmentFixture()
	photo := fx.addPhoto(t, 1)
	face := fx.addFace(t, photo.ID, 0.80)

	path := fx.reference("ref.jpg", gridDescriptor(1, 0))
	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{path})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}
	if result.BackwardMatches != 1 {
		t.Errorf("BackwardMatches = %d, want 1", result.BackwardMatches)
	}

	got := fx.faces.faces[face.ID]
	if got.StudentID == nil || *got.StudentID != result.Student.ID {
		t.Errorf("historical face StudentID = %v, want %d", got.StudentID, result.Student.ID)
	}
}

func TestAddReferencePhotoBlends(t *testing.T) {
	fx := newEnrollmentFixture()
	first := fx.reference("ref1.jpg", gridDescriptor(1, 0))
	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{first})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}

	second := fx.reference("ref2.jpg", gridDescriptor(0, 1))
	if err := fx.enrollment.AddReferencePhoto(result.Student.ID, second); err != nil {
		t.Fatalf("AddReferencePhoto failed: %v", err)
	}

	student, _ := fx.students.GetByID(result.Student.ID)
	desc, ok, err := student.Descriptor()
	if err != nil || !ok {
		t.Fatalf("student descriptor missing: ok=%v err=%v", ok, err)
	}

	// blend of [1,0] and [0,1] normalizes to [0.7071, 0.7071]
	want := float32(math.Sqrt2 / 2)
	for i := 0; i < 2; i++ {
		if math.Abs(float64(desc.Vector[i]-want)) > 1e-4 {
			t.Errorf("descriptor[%d] = %v, want %v", i, desc.Vector[i], want)
		}
	}

	refs, _ := fx.students.ListReferencePhotos(result.Student.ID)
	if len(refs) != 2 {
		t.Errorf("stored reference photos = %d, want 2", len(refs))
	}
}

func TestAddReferencePhotoNoFace(t *testing.T) {
	fx := newEnrollmentFixture()
	path := fx.reference("ref.jpg", gridDescriptor(1, 0))
	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{path})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}

	fx.extractor.descs["empty.jpg"] = nil
	err = fx.enrollment.AddReferencePhoto(result.Student.ID, "empty.jpg")
	if !errors.Is(err, embedding.ErrNoUsableReference) {
		t.Errorf("AddReferencePhoto error = %v, want ErrNoUsableReference", err)
	}

	refs, _ := fx.students.ListReferencePhotos(result.Student.ID)
	if len(refs) != 1 {
		t.Errorf("stored reference photos = %d, want 1 (failed photo must not be recorded)", len(refs))
	}
}

// a full recompute replaces blend drift with the true mean over all
// reference photos
func TestRecomputeDescriptor(t *testing.T) {
	fx := newEnrollmentFixture()
	first := fx.reference("ref1.jpg", gridDescriptor(1, 0))
	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{first})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}

	second := fx.reference("ref2.jpg", gridDescriptor(0, 1))
	third := fx.reference("ref3.jpg", gridDescriptor(0, 1))
	if err := fx.enrollment.AddReferencePhoto(result.Student.ID, second); err != nil {
		t.Fatalf("AddReferencePhoto failed: %v", err)
	}
	if err := fx.enrollment.AddReferencePhoto(result.Student.ID, third); err != nil {
		t.Fatalf("AddReferencePhoto failed: %v", err)
	}

	if err := fx.enrollment.RecomputeDescriptor(result.Student.ID); err != nil {
		t.Fatalf("RecomputeDescriptor failed: %v", err)
	}

	student, _ := fx.students.GetByID(result.Student.ID)
	desc, ok, err := student.Descriptor()
	if err != nil || !ok {
		t.Fatalf("student descriptor missing: ok=%v err=%v", ok, err)
	}

	// true mean of [1,0], [0,1], [0,1], not the drifted blend
	want := []float32{1.0 / 3, 2.0 / 3}
	for i := range want {
		if math.Abs(float64(desc.Vector[i]-want[i])) > 1e-6 {
			t.Errorf("descriptor[%d] = %v, want %v", i, desc.Vector[i], want[i])
		}
	}
}

func TestDeleteStudentSeversFaces(t *testing.T) {
	fx := newEnrollmentFixture()
	photo := fx.addPhoto(t, 1)
	face := fx.addFace(t, photo.ID, 0.90)

	path := fx.reference("ref.jpg", gridDescriptor(1, 0))
	result, err := fx.enrollment.EnrollStudent(1, "S001", "Ada", []string{path})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}
	got := fx.faces.faces[face.ID]
	if got.StudentID == nil {
		t.Fatal("precondition: face should have been matched on enrollment")
	}

	// the fake repo mirrors the production transaction: sever then delete
	if err := fx.faces.ClearAssignmentsByStudent(result.Student.ID); err != nil {
		t.Fatalf("ClearAssignmentsByStudent failed: %v", err)
	}
	if err := fx.faces.DeleteStudentPhotoLinks(result.Student.ID); err != nil {
		t.Fatalf("DeleteStudentPhotoLinks failed: %v", err)
	}
	if err := fx.enrollment.DeleteStudent(result.Student.ID); err != nil {
		t.Fatalf("DeleteStudent failed: %v", err)
	}

	got = fx.faces.faces[face.ID]
	if got.StudentID != nil {
		t.Errorf("face still assigned to %d after student deletion", *got.StudentID)
	}
	if len(fx.faces.links) != 0 {
		t.Errorf("links remain after student deletion: %v", fx.faces.links)
	}
	students, _ := fx.students.ListBySession(1)
	if len(students) != 0 {
		t.Errorf("session still has %d students", len(students))
	}
}
