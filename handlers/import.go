package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/classpix/classpixbackend/repository"
	"github.com/classpix/classpixbackend/workers"
	"gorm.io/gorm"
)

type ImportHandler struct {
	Sessions  repository.SessionRepositoryInterface
	Processor *workers.ImportProcessor

	// RootDirectory constrains which paths can be imported
	RootDirectory string
}

// ImportDirectory queues every raster image under a directory for background
// import into the session. Responds 202 with the number of queued jobs.
func (ih *ImportHandler) ImportDirectory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	var req struct {
		Directory string `json:"directory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Directory) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: directory"})
		return
	}

	dir, ok := ih.resolve(req.Directory)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Directory is outside the configured root"})
		return
	}

	if _, err := ih.Sessions.GetByID(sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		} else {
			log.Printf("Error getting session %d: %v", sessionID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve session"})
		}
		return
	}

	queued, err := ih.Processor.QueueDirectory(sessionID, dir)
	if err != nil {
		log.Printf("Error queueing directory %s for session %d: %v", dir, sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read directory"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}

// ImportPhoto queues a single photograph for background import
func (ih *ImportHandler) ImportPhoto(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
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

	path, ok := ih.resolve(req.Path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Path is outside the configured root"})
		return
	}

	if _, err := ih.Sessions.GetByID(sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		} else {
			log.Printf("Error getting session %d: %v", sessionID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve session"})
		}
		return
	}

	if !ih.Processor.QueueJob(workers.ImportJob{SessionID: sessionID, Path: path}) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Photo already pending or queue full"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Photo queued for import"})
}

// ImportStatus reports the processor's aggregate counters
func (ih *ImportHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ih.Processor.Stats())
}

// resolve joins a request path with the configured root and rejects
// traversals that escape it
func (ih *ImportHandler) resolve(reqPath string) (string, bool) {
	path := reqPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(ih.RootDirectory, path)
	}
	path = filepath.Clean(path)
	if path != ih.RootDirectory && !strings.HasPrefix(path, ih.RootDirectory+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
