package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"gorm.io/gorm"
)

type PhotoHandler struct {
	Photos repository.PhotoRepositoryInterface
	Faces  repository.FaceRepositoryInterface
}

func (ph *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	photos, err := ph.Photos.ListBySession(sessionID)
	if err != nil {
		log.Printf("Error listing photos for session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve photos"})
		return
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

// GetPhoto returns one photograph with its detected faces
func (ph *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photoID, ok := uintParam(r, "photo_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid photo ID format"})
		return
	}

	photo, err := ph.Photos.GetByID(photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Photo not found"})
		} else {
			log.Printf("Error getting photo %d: %v", photoID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve photo"})
		}
		return
	}

	faces, err := ph.Faces.ListByPhotoID(photoID)
	if err != nil {
		log.Printf("Error fetching faces for photo %d: %v", photoID, err)
	} else {
		photo.Faces = faces
	}

	writeJSON(w, http.StatusOK, photo)
}

func (ph *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	photoID, ok := uintParam(r, "photo_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid photo ID format"})
		return
	}

	if err := ph.Photos.Delete(photoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Photo not found"})
		} else {
			log.Printf("Error deleting photo %d: %v", photoID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete photo"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
