package services

import (
	"testing"

	"github.com/classpix/classpixbackend/models"
)

type matchingFixture struct {
	students *fakeStudentRepo
	photos   *fakePhotoRepo
	faces    *fakeFaceRepo
	matching *MatchingService
}

func newMatchingFixture() *matchingFixture {
	students := newFakeStudentRepo()
	photos := newFakePhotoRepo()
	faces := newFakeFaceRepo(photos)
	return &matchingFixture{
		students: students,
		photos:   photos,
		faces:    faces,
		matching: NewMatchingService(students, faces, testThresholds),
	}
}

func (fx *matchingFixture) addPhoto(t *testing.T, sessionID uint) *models.Photo {
	t.Helper()
	photo := &models.Photo{SessionID: sessionID, Path: "photo.jpg", ContentHash: "hash"}
	if err := fx.photos.Create(photo); err != nil {
		t.Fatalf("create photo: %v", err)
	}
	return photo
}

func (fx *matchingFixture) addFace(t *testing.T, photoID uint, similarity float64) *models.Face {
	t.Helper()
	face := &models.Face{PhotoID: photoID}
	face.SetDescriptor(descriptorAtSimilarity(similarity))
	if err := fx.faces.Create(face); err != nil {
		t.Fatalf("create face: %v", err)
	}
	return face
}

func (fx *matchingFixture) enrollDirect(t *testing.T, sessionID uint, code string, similarity float64) *models.Student {
	t.Helper()
	student := &models.Student{SessionID: sessionID, Code: code, Name: code}
	student.SetDescriptor(descriptorAtSimilarity(similarity))
	if err := fx.students.Create(student); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return student
}

// the backward pass over historical unmatched faces: 0.80 auto-accepts,
// 0.60 matches tentatively, 0.40 stays unmatched (thresholds 0.77/0.55)
func TestMatchNewStudentBackwardPass(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)

	accept := fx.addFace(t, photo.ID, 0.80)
	review := fx.addFace(t, photo.ID, 0.60)
	reject := fx.addFace(t, photo.ID, 0.40)

	student := fx.enrollDirect(t, 1, "S001", 1.0) // descriptor on the x axis

	matched, err := fx.matching.MatchNewStudent(student)
	if err != nil {
		t.Fatalf("MatchNewStudent failed: %v", err)
	}
	if matched != 2 {
		t.Errorf("matched = %d, want 2", matched)
	}

	got := fx.faces.faces[accept.ID]
	if got.StudentID == nil || *got.StudentID != student.ID {
		t.Fatalf("0.80 face StudentID = %v, want %d", got.StudentID, student.ID)
	}
	if got.NeedsReview {
		t.Error("0.80 face should not need review")
	}

	got = fx.faces.faces[review.ID]
	if got.StudentID == nil || *got.StudentID != student.ID {
		t.Fatalf("0.60 face StudentID = %v, want %d", got.StudentID, student.ID)
	}
	if !got.NeedsReview {
		t.Error("0.60 face should need review")
	}

	got = fx.faces.faces[reject.ID]
	if got.StudentID != nil {
		t.Errorf("0.40 face StudentID = %v, want nil", *got.StudentID)
	}

	if !fx.faces.links[[2]uint{student.ID, photo.ID}] {
		t.Error("expected student-photo link after backward matches")
	}
}

// faces already assigned to someone else are untouched by the backward pass,
// even when the new student would score higher
func TestMatchNewStudentLeavesAssignedFacesAlone(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)

	other := fx.enrollDirect(t, 1, "S001", 0.60)
	assigned := fx.addFace(t, photo.ID, 1.0)
	if err := fx.faces.UpdateMatch(assigned.ID, &other.ID, 0.60, true); err != nil {
		t.Fatalf("UpdateMatch failed: %v", err)
	}

	newcomer := fx.enrollDirect(t, 1, "S002", 1.0)
	matched, err := fx.matching.MatchNewStudent(newcomer)
	if err != nil {
		t.Fatalf("MatchNewStudent failed: %v", err)
	}
	if matched != 0 {
		t.Errorf("matched = %d, want 0", matched)
	}

	got := fx.faces.faces[assigned.ID]
	if got.StudentID == nil || *got.StudentID != other.ID {
		t.Errorf("assigned face moved to %v, want to stay with %d", got.StudentID, other.ID)
	}
}

func TestMatchNewStudentWithoutDescriptor(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)
	fx.addFace(t, photo.ID, 0.9)

	student := &models.Student{SessionID: 1, Code: "S001", Name: "nobody"}
	if err := fx.students.Create(student); err != nil {
		t.Fatalf("create student: %v", err)
	}

	matched, err := fx.matching.MatchNewStudent(student)
	if err != nil {
		t.Fatalf("MatchNewStudent failed: %v", err)
	}
	if matched != 0 {
		t.Errorf("matched = %d, want 0 for descriptor-less student", matched)
	}
}

// the forward pass reassigns drifted faces to the best current roster entry
func TestRematchSessionReassigns(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)

	weak := fx.enrollDirect(t, 1, "S001", 0.60)
	face := fx.addFace(t, photo.ID, 1.0)
	if err := fx.faces.UpdateMatch(face.ID, &weak.ID, 0.60, true); err != nil {
		t.Fatalf("UpdateMatch failed: %v", err)
	}

	strong := fx.enrollDirect(t, 1, "S002", 1.0)

	updated, err := fx.matching.RematchSession(1)
	if err != nil {
		t.Fatalf("RematchSession failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	got := fx.faces.faces[face.ID]
	if got.StudentID == nil || *got.StudentID != strong.ID {
		t.Fatalf("face StudentID = %v, want %d", got.StudentID, strong.ID)
	}
	if got.NeedsReview {
		t.Error("perfect rematch should not need review")
	}
	if !fx.faces.links[[2]uint{strong.ID, photo.ID}] {
		t.Error("expected link for the new assignment")
	}
}

func TestRematchSessionStableWhenNothingChanged(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)

	student := fx.enrollDirect(t, 1, "S001", 1.0)
	face := fx.addFace(t, photo.ID, 0.95)
	if err := fx.faces.UpdateMatch(face.ID, &student.ID, 0.95, false); err != nil {
		t.Fatalf("UpdateMatch failed: %v", err)
	}

	updated, err := fx.matching.RematchSession(1)
	if err != nil {
		t.Fatalf("RematchSession failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0 when assignments are unchanged", updated)
	}
}

// manually verified faces are terminal: the forward pass must not move them
// even when a strictly better roster candidate appears
func TestRematchSessionSkipsManualVerified(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)

	chosen := fx.enrollDirect(t, 1, "S001", 0.60)
	face := fx.addFace(t, photo.ID, 1.0)
	if err := fx.matching.ConfirmFace(face.ID, chosen.ID); err != nil {
		t.Fatalf("ConfirmFace failed: %v", err)
	}

	fx.enrollDirect(t, 1, "S002", 1.0) // would score 1.0 against the face

	updated, err := fx.matching.RematchSession(1)
	if err != nil {
		t.Fatalf("RematchSession failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0: confirmed faces are immutable", updated)
	}

	got := fx.faces.faces[face.ID]
	if got.StudentID == nil || *got.StudentID != chosen.ID {
		t.Errorf("confirmed face moved to %v, want to stay with %d", got.StudentID, chosen.ID)
	}
	if !got.ManualVerified {
		t.Error("face lost its manual verification")
	}
}

// the forward pass can also demote: a face whose only roster candidate
// dropped below the review threshold goes back to unmatched
func TestRematchSessionDemotesToUnmatched(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)

	student := fx.enrollDirect(t, 1, "S001", 1.0)
	face := fx.addFace(t, photo.ID, 0.40)
	if err := fx.faces.UpdateMatch(face.ID, &student.ID, 0.80, false); err != nil {
		t.Fatalf("UpdateMatch failed: %v", err)
	}

	updated, err := fx.matching.RematchSession(1)
	if err != nil {
		t.Fatalf("RematchSession failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	got := fx.faces.faces[face.ID]
	if got.StudentID != nil {
		t.Errorf("face StudentID = %v, want nil after demotion", *got.StudentID)
	}
	if got.NeedsReview {
		t.Error("unmatched face must not carry a review flag")
	}
}

func TestConfirmFace(t *testing.T) {
	fx := newMatchingFixture()
	photo := fx.addPhoto(t, 1)
	student := fx.enrollDirect(t, 1, "S001", 1.0)
	face := fx.addFace(t, photo.ID, 0.60)

	if err := fx.matching.ConfirmFace(face.ID, student.ID); err != nil {
		t.Fatalf("ConfirmFace failed: %v", err)
	}

	got := fx.faces.faces[face.ID]
	if got.StudentID == nil || *got.StudentID != student.ID {
		t.Fatalf("StudentID = %v, want %d", got.StudentID, student.ID)
	}
	if got.NeedsReview || !got.ManualVerified {
		t.Errorf("flags = (review %v, verified %v), want (false, true)", got.NeedsReview, got.ManualVerified)
	}
	if !fx.faces.links[[2]uint{student.ID, photo.ID}] {
		t.Error("expected student-photo link after confirmation")
	}
}
