package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"github.com/classpix/classpixbackend/services"
	"gorm.io/gorm"
)

type StudentHandler struct {
	Repo       repository.StudentRepositoryInterface
	Enrollment *services.EnrollmentService
}

// EnrollStudent enrolls a student by code with one or more reference photos.
// Re-enrolling an existing code returns the existing student with 200 instead
// of 201.
func (sh *StudentHandler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	var req struct {
		Code            string   `json:"code"`
		Name            string   `json:"name"`
		ReferencePhotos []string `json:"reference_photos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields: code, name"})
		return
	}
	if len(req.ReferencePhotos) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: reference_photos"})
		return
	}

	result, err := sh.Enrollment.EnrollStudent(sessionID, req.Code, req.Name, req.ReferencePhotos)
	if err != nil {
		if errors.Is(err, embedding.ErrNoUsableReference) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "No usable face found in any reference photo"})
			return
		}
		log.Printf("Error enrolling student '%s' in session %d: %v", req.Code, sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to enroll student"})
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (sh *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	students, err := sh.Repo.ListBySession(sessionID)
	if err != nil {
		log.Printf("Error listing students for session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve students"})
		return
	}
	if students == nil {
		students = []models.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (sh *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID, ok := uintParam(r, "student_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID format"})
		return
	}

	student, err := sh.Repo.GetByID(studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		} else {
			log.Printf("Error getting student %d: %v", studentID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve student"})
		}
		return
	}

	refs, err := sh.Repo.ListReferencePhotos(studentID)
	if err != nil {
		log.Printf("Error fetching reference photos for student %d: %v", studentID, err)
	} else {
		student.ReferencePhotos = refs
	}

	writeJSON(w, http.StatusOK, student)
}

func (sh *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID, ok := uintParam(r, "student_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID format"})
		return
	}

	var req struct {
		Name *string `json:"name"`
		Code *string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Name == nil && req.Code == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Nothing to update: provide name and/or code"})
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Field name must not be empty"})
		return
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Field code must not be empty"})
		return
	}

	err := sh.Repo.UpdateInfo(studentID, repository.StudentUpdate{Name: req.Name, Code: req.Code})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		} else {
			log.Printf("Error updating student %d: %v", studentID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update student"})
		}
		return
	}

	student, err := sh.Repo.GetByID(studentID)
	if err != nil {
		log.Printf("Error fetching updated student %d: %v", studentID, err)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Student updated successfully"})
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (sh *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID, ok := uintParam(r, "student_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID format"})
		return
	}

	if err := sh.Enrollment.DeleteStudent(studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		} else {
			log.Printf("Error deleting student %d: %v", studentID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete student"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddReferencePhoto folds one more reference photo into the student's
// representative descriptor
func (sh *StudentHandler) AddReferencePhoto(w http.ResponseWriter, r *http.Request) {
	studentID, ok := uintParam(r, "student_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID format"})
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: path"})
		return
	}

	if err := sh.Enrollment.AddReferencePhoto(studentID, req.Path); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		case errors.Is(err, embedding.ErrNoUsableReference):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "No usable face found in reference photo"})
		default:
			log.Printf("Error adding reference photo for student %d: %v", studentID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to add reference photo"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Reference photo added"})
}

// RecomputeDescriptor rebuilds the representative descriptor from every
// stored reference photo
func (sh *StudentHandler) RecomputeDescriptor(w http.ResponseWriter, r *http.Request) {
	studentID, ok := uintParam(r, "student_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID format"})
		return
	}

	if err := sh.Enrollment.RecomputeDescriptor(studentID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		case errors.Is(err, embedding.ErrNoUsableReference):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "No reference photo yields a usable face"})
		default:
			log.Printf("Error recomputing descriptor for student %d: %v", studentID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to recompute descriptor"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Descriptor recomputed"})
}
