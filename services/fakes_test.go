package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"gorm.io/gorm"
)

// in-memory repository fakes for service tests

type fakeStudentRepo struct {
	students map[uint]*models.Student
	refs     map[uint][]models.ReferencePhoto
	nextID   uint
}

var _ repository.StudentRepositoryInterface = (*fakeStudentRepo)(nil)

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{
		students: make(map[uint]*models.Student),
		refs:     make(map[uint][]models.ReferencePhoto),
	}
}

func (r *fakeStudentRepo) Create(student *models.Student) error {
	for _, s := range r.students {
		if s.SessionID == student.SessionID && s.Code == student.Code {
			return fmt.Errorf("UNIQUE constraint failed: students.session_id, students.code")
		}
	}
	r.nextID++
	student.ID = r.nextID
	copied := *student
	r.students[student.ID] = &copied
	return nil
}

func (r *fakeStudentRepo) GetByID(id uint) (*models.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStudentRepo) GetBySessionAndCode(sessionID uint, code string) (*models.Student, error) {
	for _, s := range r.students {
		if s.SessionID == sessionID && s.Code == code {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) ListBySession(sessionID uint) ([]models.Student, error) {
	var out []models.Student
	for _, s := range r.students {
		if s.SessionID == sessionID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeStudentRepo) UpdateInfo(studentID uint, update repository.StudentUpdate) error {
	s, ok := r.students[studentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if update.Name != nil {
		s.Name = *update.Name
	}
	if update.Code != nil {
		s.Code = *update.Code
	}
	return nil
}

func (r *fakeStudentRepo) SaveDescriptor(studentID uint, desc embedding.Descriptor) error {
	s, ok := r.students[studentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.SetDescriptor(desc)
	return nil
}

func (r *fakeStudentRepo) Delete(id uint) error {
	if _, ok := r.students[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.students, id)
	delete(r.refs, id)
	return nil
}

func (r *fakeStudentRepo) AddReferencePhoto(ref *models.ReferencePhoto) error {
	r.refs[ref.StudentID] = append(r.refs[ref.StudentID], *ref)
	return nil
}

func (r *fakeStudentRepo) ListReferencePhotos(studentID uint) ([]models.ReferencePhoto, error) {
	return r.refs[studentID], nil
}

func (r *fakeStudentRepo) GetRoster(sessionID uint) ([]embedding.RosterEntry, error) {
	var ids []uint
	for id, s := range r.students {
		if s.SessionID == sessionID && len(s.DescriptorData) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var roster []embedding.RosterEntry
	for _, id := range ids {
		desc, ok, err := r.students[id].Descriptor()
		if err != nil || !ok {
			continue
		}
		roster = append(roster, embedding.RosterEntry{StudentID: id, Descriptor: desc})
	}
	return roster, nil
}

type fakePhotoRepo struct {
	photos map[uint]*models.Photo
	nextID uint
}

var _ repository.PhotoRepositoryInterface = (*fakePhotoRepo)(nil)

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{photos: make(map[uint]*models.Photo)}
}

func (r *fakePhotoRepo) Create(photo *models.Photo) error {
	r.nextID++
	photo.ID = r.nextID
	copied := *photo
	r.photos[photo.ID] = &copied
	return nil
}

func (r *fakePhotoRepo) GetByID(id uint) (*models.Photo, error) {
	p, ok := r.photos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePhotoRepo) GetBySessionAndHash(sessionID uint, contentHash string) (*models.Photo, error) {
	for _, p := range r.photos {
		if p.SessionID == sessionID && p.ContentHash == contentHash {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePhotoRepo) ListBySession(sessionID uint) ([]models.Photo, error) {
	var out []models.Photo
	for _, p := range r.photos {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePhotoRepo) Delete(id uint) error {
	if _, ok := r.photos[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.photos, id)
	return nil
}

type fakeFaceRepo struct {
	faces  map[uint]*models.Face
	links  map[[2]uint]bool // (studentID, photoID)
	photos *fakePhotoRepo
	nextID uint
}

var _ repository.FaceRepositoryInterface = (*fakeFaceRepo)(nil)

func newFakeFaceRepo(photos *fakePhotoRepo) *fakeFaceRepo {
	return &fakeFaceRepo{
		faces:  make(map[uint]*models.Face),
		links:  make(map[[2]uint]bool),
		photos: photos,
	}
}

func (r *fakeFaceRepo) sessionOf(face *models.Face) uint {
	if p, ok := r.photos.photos[face.PhotoID]; ok {
		return p.SessionID
	}
	return 0
}

func (r *fakeFaceRepo) Create(face *models.Face) error {
	r.nextID++
	face.ID = r.nextID
	copied := *face
	r.faces[face.ID] = &copied
	return nil
}

func (r *fakeFaceRepo) GetByID(id uint) (*models.Face, error) {
	f, ok := r.faces[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *fakeFaceRepo) list(filter func(*models.Face) bool) []models.Face {
	var out []models.Face
	for _, f := range r.faces {
		if filter(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeFaceRepo) ListByPhotoID(photoID uint) ([]models.Face, error) {
	return r.list(func(f *models.Face) bool { return f.PhotoID == photoID }), nil
}

func (r *fakeFaceRepo) ListNeedsReview(sessionID uint) ([]models.Face, error) {
	return r.list(func(f *models.Face) bool {
		return r.sessionOf(f) == sessionID && f.NeedsReview && f.StudentID != nil
	}), nil
}

func (r *fakeFaceRepo) ListUnmatchedWithDescriptor(sessionID uint) ([]models.Face, error) {
	return r.list(func(f *models.Face) bool {
		return r.sessionOf(f) == sessionID && f.StudentID == nil && len(f.EmbeddingData) > 0
	}), nil
}

func (r *fakeFaceRepo) ListRematchable(sessionID uint) ([]models.Face, error) {
	return r.list(func(f *models.Face) bool {
		return r.sessionOf(f) == sessionID && len(f.EmbeddingData) > 0 && !f.ManualVerified
	}), nil
}

func (r *fakeFaceRepo) UpdateMatch(faceID uint, studentID *uint, confidence float64, needsReview bool) error {
	f, ok := r.faces[faceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.StudentID = studentID
	f.MatchConfidence = confidence
	f.NeedsReview = needsReview
	if studentID == nil {
		f.NeedsReview = false
	}
	return nil
}

func (r *fakeFaceRepo) ConfirmMatch(faceID uint, studentID uint) error {
	f, ok := r.faces[faceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := studentID
	f.StudentID = &id
	f.NeedsReview = false
	f.ManualVerified = true
	return nil
}

func (r *fakeFaceRepo) Unassign(faceID uint) error {
	f, ok := r.faces[faceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.StudentID = nil
	f.MatchConfidence = 0
	f.NeedsReview = false
	f.ManualVerified = false
	return nil
}

func (r *fakeFaceRepo) ClearAssignmentsByStudent(studentID uint) error {
	for _, f := range r.faces {
		if f.StudentID != nil && *f.StudentID == studentID {
			f.StudentID = nil
			f.MatchConfidence = 0
			f.NeedsReview = false
			f.ManualVerified = false
		}
	}
	return nil
}

func (r *fakeFaceRepo) UpsertStudentPhotoLink(studentID, photoID uint) error {
	r.links[[2]uint{studentID, photoID}] = true
	return nil
}

func (r *fakeFaceRepo) DeleteStudentPhotoLinks(studentID uint) error {
	for k := range r.links {
		if k[0] == studentID {
			delete(r.links, k)
		}
	}
	return nil
}

// fakeExtractor maps reference photo paths to canned descriptors. A nil
// descriptor simulates a photo with no detectable face.
type fakeExtractor struct {
	descs map[string]*embedding.Descriptor
	errs  map[string]error
}

var _ ReferenceExtractor = (*fakeExtractor)(nil)

func (e *fakeExtractor) Model() string { return embedding.ModelGrid }

func (e *fakeExtractor) ExtractFromFile(path string) (*embedding.Descriptor, error) {
	if err, ok := e.errs[path]; ok {
		return nil, err
	}
	return e.descs[path], nil
}

// gridVector pads a seed out to the grid model dimensionality
func gridVector(seed ...float32) []float32 {
	dim, _ := embedding.ModelDim(embedding.ModelGrid)
	v := make([]float32, dim)
	copy(v, seed)
	return v
}

func gridDescriptor(seed ...float32) embedding.Descriptor {
	return embedding.Descriptor{Model: embedding.ModelGrid, Vector: gridVector(seed...)}
}

// descriptorAtSimilarity builds a unit vector whose cosine similarity to the
// unit x-axis vector is exactly cos
func descriptorAtSimilarity(cos float64) embedding.Descriptor {
	sin := math.Sqrt(1 - cos*cos)
	return gridDescriptor(float32(cos), float32(sin))
}

var testThresholds = map[string]embedding.Thresholds{
	embedding.ModelGrid: {Accept: 0.77, Review: 0.55},
}
