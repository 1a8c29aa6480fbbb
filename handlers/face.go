package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"github.com/classpix/classpixbackend/services"
	"gorm.io/gorm"
)

type FaceHandler struct {
	Repo     repository.FaceRepositoryInterface
	Matching *services.MatchingService
}

// ListNeedsReview returns the session's faces whose tentative assignment
// awaits human confirmation
func (fh *FaceHandler) ListNeedsReview(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	faces, err := fh.Repo.ListNeedsReview(sessionID)
	if err != nil {
		log.Printf("Error listing review faces for session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve faces"})
		return
	}
	if faces == nil {
		faces = []models.Face{}
	}
	writeJSON(w, http.StatusOK, faces)
}

// ConfirmFace manually verifies a face's assignment to a student. Verified
// faces are exempt from automatic re-matching.
func (fh *FaceHandler) ConfirmFace(w http.ResponseWriter, r *http.Request) {
	faceID, ok := uintParam(r, "face_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid face ID format"})
		return
	}

	var req struct {
		StudentID uint `json:"student_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.StudentID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: student_id"})
		return
	}

	if err := fh.Matching.ConfirmFace(faceID, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Face not found"})
		} else {
			log.Printf("Error confirming face %d for student %d: %v", faceID, req.StudentID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to confirm face"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Face confirmed"})
}

// UnassignFace clears a face's student assignment back to unmatched
func (fh *FaceHandler) UnassignFace(w http.ResponseWriter, r *http.Request) {
	faceID, ok := uintParam(r, "face_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid face ID format"})
		return
	}

	if err := fh.Matching.UnassignFace(faceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Face not found"})
		} else {
			log.Printf("Error unassigning face %d: %v", faceID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to unassign face"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Face unassigned"})
}

// RematchSession re-runs matching over every non-verified face in the session
// against the current roster (forward pass)
func (fh *FaceHandler) RematchSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	updated, err := fh.Matching.RematchSession(sessionID)
	if err != nil {
		log.Printf("Error rematching session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to rematch session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"updated_faces": updated})
}
