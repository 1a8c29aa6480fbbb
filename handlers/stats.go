package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/classpix/classpixbackend/database"
)

type StatsHandler struct {
	DB *sql.DB
}

// GetSessionStats summarizes a session's photo and face assignment counts
func (st *StatsHandler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	stats, err := database.GetSessionStats(st.DB, sessionID)
	if err != nil {
		log.Printf("Error getting stats for session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve session stats"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ListStudentPhotoCounts reports how many photographs each enrolled student
// appears in
func (st *StatsHandler) ListStudentPhotoCounts(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uintParam(r, "session_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID format"})
		return
	}

	counts, err := database.ListStudentPhotoCounts(st.DB, sessionID)
	if err != nil {
		log.Printf("Error listing student photo counts for session %d: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve student photo counts"})
		return
	}

	writeJSON(w, http.StatusOK, counts)
}
