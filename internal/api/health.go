package api

import (
	"database/sql"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

type ReadinessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Database  string    `json:"database"`
}

const serviceName = "jobcard-api"

var dbConn *sql.DB

func SetDBConnection(conn *sql.DB) {
	dbConn = conn
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   serviceName,
	})
}

func HandleReadiness(w http.ResponseWriter, r *http.Request) {
	dbStatus := "unknown"
	if dbConn != nil {
		dbStatus = "connected"
		if err := dbConn.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{
				Status:    "not ready",
				Timestamp: time.Now(),
				Service:   serviceName,
				Database:  "disconnected",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, ReadinessResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Service:   serviceName,
		Database:  dbStatus,
	})
}

func HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Service:   serviceName,
	})
}
