package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/classpix/classpixbackend/models"
	"github.com/classpix/classpixbackend/repository"
	"gorm.io/gorm"
)

type SessionHandler struct {
	Repo repository.SessionRepositoryInterface
}

func (sh *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		EventDate *int64 `json:"event_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: name"})
		return
	}

	session := &models.Session{Name: req.Name, EventDate: req.EventDate}
	if err := sh.Repo.Create(session); err != nil {
		log.Printf("Error creating session '%s': %v", req.Name, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create session"})
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (sh *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := sh.Repo.ListAll()
	if err != nil {
		log.Printf("Error listing sessions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve sessions"})
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (sh *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	session, err := sh.Repo.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		} else {
			log.Printf("Error getting session %d: %v", sessionID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve session"})
		}
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (sh *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	var req struct {
		Name      string `json:"name"`
		EventDate *int64 `json:"event_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: name"})
		return
	}

	session, err := sh.Repo.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		} else {
			log.Printf("Error getting session %d: %v", sessionID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve session"})
		}
		return
	}

	session.Name = req.Name
	session.EventDate = req.EventDate
	if err := sh.Repo.Update(session); err != nil {
		log.Printf("Error updating session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update session"})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (sh *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	if err := sh.Repo.Delete(sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		} else {
			log.Printf("Error deleting session %d: %v", sessionID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete session"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
