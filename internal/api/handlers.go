package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fieldops/jobcard/internal/enhance"
	"github.com/fieldops/jobcard/internal/extract"
	"github.com/fieldops/jobcard/internal/jobs"
	"github.com/fieldops/jobcard/internal/logger"
	"github.com/fieldops/jobcard/internal/metrics"
	"github.com/fieldops/jobcard/internal/websocket"
)

const maxEvidenceUploadBytes = 32 << 20

type handlers struct {
	controller *jobs.Controller
	enhancer   enhance.Enhancer
	hub        *websocket.Hub
}

type createJobRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ClientName    string   `json:"client_name"`
	ClientContact string   `json:"client_contact"`
	ClientAddress string   `json:"client_address"`
	Attachments   []string `json:"attachments"`
	Enhance       bool     `json:"enhance"`
}

func (h *handlers) createJob(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))
	actor := getActor(r.Context())

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		http.Error(w, "Description is required", http.StatusBadRequest)
		return
	}

	text := req.Description
	if req.Enhance && h.enhancer != nil {
		structured, err := h.enhancer.Enhance(r.Context(), req.Description)
		if err != nil {
			// The enhancement call is best-effort; the raw text still parses.
			log.Warn().Err(err).Msg("Text enhancement failed, using raw description")
		} else {
			text = structured
		}
	}

	extractStart := time.Now()
	fields := extract.Extract(text)
	metrics.ExtractionDuration.Observe(time.Since(extractStart).Seconds())

	description := req.Description
	if fields.JobDescription != "" {
		description = fields.JobDescription
	}

	job := &jobs.Job{
		ID:            uuid.New().String(),
		Title:         deriveTitle(req.Title, description),
		Description:   description,
		ClientName:    firstNonEmpty(req.ClientName, fields.ClientName),
		ClientContact: firstNonEmpty(req.ClientContact, fields.ClientContact),
		ClientAddress: firstNonEmpty(req.ClientAddress, fields.ClientAddress),
		Attachments:   req.Attachments,
		UpdatedBy:     actor.Email,
	}

	created, err := h.controller.Create(r.Context(), job)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
	websocket.BroadcastJobUpdate(h.hub, created)
}

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	list, err := h.controller.List(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	job, err := h.controller.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

type transitionRequest struct {
	Status   string         `json:"status"`
	Evidence *jobs.Evidence `json:"evidence,omitempty"`
}

func (h *handlers) transition(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))
	actor := getActor(r.Context())
	jobID := mux.Vars(r)["id"]

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "Target status is required", http.StatusBadRequest)
		return
	}

	job, err := h.controller.RequestTransition(r.Context(), jobID, actor, req.Status, req.Evidence)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
	websocket.BroadcastJobUpdate(h.hub, job)
}

type assignRequest struct {
	Assignee string `json:"assignee"`
}

// assignJob sets the responsible party directly; the controller enforces
// that only administrators may do this.
func (h *handlers) assignJob(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))
	actor := getActor(r.Context())
	jobID := mux.Vars(r)["id"]

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Assignee) == "" {
		http.Error(w, "Assignee is required", http.StatusBadRequest)
		return
	}

	job, err := h.controller.Assign(r.Context(), jobID, actor, req.Assignee)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
	websocket.BroadcastJobUpdate(h.hub, job)
}

// complete accepts a multipart form with a "notes" field and one or more
// "files" parts, uploads every file and performs the completed transition
// in one request.
func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))
	actor := getActor(r.Context())
	jobID := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxEvidenceUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var files []jobs.EvidenceFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			http.Error(w, "Failed to read uploaded file: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		files = append(files, jobs.EvidenceFile{Name: header.Filename, Reader: f})
	}

	job, err := h.controller.Complete(r.Context(), jobID, actor, r.FormValue("notes"), files)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
	websocket.BroadcastJobUpdate(h.hub, job)
}

func (h *handlers) attachEvidence(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))
	actor := getActor(r.Context())
	jobID := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxEvidenceUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "A file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.controller.AttachEvidenceFile(r.Context(), jobID, actor, header.Filename, file)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func deriveTitle(title, description string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	firstLine, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	// Cut on a rune boundary so a multi-byte first line stays valid UTF-8.
	if runes := []rune(firstLine); len(runes) > 80 {
		firstLine = string(runes[:80])
	}
	return firstLine
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps typed controller errors to HTTP statuses. The body keeps
// the specific reason: "not assigned to you" and "missing completion
// evidence" must stay distinguishable for the user.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	var uploadErr *jobs.UploadError

	var code string
	var status int
	switch {
	case errors.Is(err, jobs.ErrForbidden):
		code, status = "forbidden", http.StatusForbidden
	case errors.Is(err, jobs.ErrInvalidTransition):
		code, status = "invalid_transition", http.StatusUnprocessableEntity
	case errors.Is(err, jobs.ErrPermissionDenied):
		code, status = "permission_denied", http.StatusForbidden
	case errors.Is(err, jobs.ErrConflict):
		code, status = "conflict", http.StatusConflict
	case errors.Is(err, jobs.ErrNotFound):
		code, status = "not_found", http.StatusNotFound
	case errors.As(err, &uploadErr):
		code, status = "upload_failed", http.StatusBadGateway
	default:
		code, status = "internal", http.StatusInternalServerError
	}

	log.Warn().Err(err).Msg("Request failed")
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}
