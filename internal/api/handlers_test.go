package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/fieldops/jobcard/internal/extract"
	"github.com/fieldops/jobcard/internal/identity"
	"github.com/fieldops/jobcard/internal/jobs"
)

type fakeProvider struct {
	actors map[string]identity.Actor
}

func (p *fakeProvider) Verify(_ context.Context, token string) (identity.Actor, error) {
	actor, ok := p.actors[token]
	if !ok {
		return identity.Actor{}, identity.ErrInvalidToken
	}
	return actor, nil
}

type stubStore struct {
	jobs map[string]*jobs.Job
}

func (s *stubStore) CreateJob(_ context.Context, job *jobs.Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *stubStore) GetJob(_ context.Context, id string) (*jobs.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jobs.ErrNotFound, id)
	}
	return job.Clone(), nil
}

func (s *stubStore) ListJobs(_ context.Context) ([]*jobs.Job, error) {
	var out []*jobs.Job
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	return out, nil
}

func (s *stubStore) UpdateJob(_ context.Context, job *jobs.Job, expected jobs.Status) (*jobs.Job, error) {
	current, ok := s.jobs[job.ID]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	if current.Status != expected {
		return nil, jobs.ErrConflict
	}
	updated := job.Clone()
	updated.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = updated.Clone()
	return updated, nil
}

type nullObjects struct{}

func (nullObjects) Put(_ context.Context, path string, _ io.Reader) (string, error) {
	return "https://files.test/" + path, nil
}

func newTestServer(t *testing.T, store *stubStore) *httptest.Server {
	t.Helper()

	provider := &fakeProvider{actors: map[string]identity.Actor{
		"worker-token": {ID: "u1", Email: "worker@example.com"},
		"admin-token":  {ID: "u2", Email: "admin@example.com", Role: identity.RoleAdmin},
	}}
	controller := jobs.NewController(store, nullObjects{}, nil)

	r := mux.NewRouter()
	AddRoutes(r, controller, provider, nil, nil)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func seededStore(status jobs.Status, assignedTo string) *stubStore {
	now := time.Now().UTC()
	return &stubStore{jobs: map[string]*jobs.Job{
		"job-1": {
			ID:            "job-1",
			Title:         "Fix faucet",
			Description:   "Fix the leaking faucet",
			ClientName:    "Alice Johnson",
			ClientContact: "555-1234",
			ClientAddress: extract.NoAddress,
			Status:        status,
			AssignedTo:    assignedTo,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}}
}

func TestTransitionRequiresAuth(t *testing.T) {
	srv := newTestServer(t, seededStore(jobs.StatusNew, ""))

	resp, _ := doJSON(t, http.MethodPatch, srv.URL+"/jobs/job-1/status", "", map[string]string{"status": "in progress"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestTransitionSelfAssign(t *testing.T) {
	srv := newTestServer(t, seededStore(jobs.StatusNew, ""))

	resp, body := doJSON(t, http.MethodPatch, srv.URL+"/jobs/job-1/status", "worker-token", map[string]string{"status": "In-Progress"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["status"] != "in progress" {
		t.Errorf("status = %v, want normalized \"in progress\"", body["status"])
	}
	if body["assigned_to"] != "worker@example.com" {
		t.Errorf("assigned_to = %v", body["assigned_to"])
	}
}

func TestTransitionErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		store      *stubStore
		token      string
		jobID      string
		payload    interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "forbidden for non-assignee",
			store:      seededStore(jobs.StatusAssigned, "other@example.com"),
			token:      "worker-token",
			jobID:      "job-1",
			payload:    map[string]string{"status": "in progress"},
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "completion without evidence",
			store:      seededStore(jobs.StatusInProgress, "worker@example.com"),
			token:      "worker-token",
			jobID:      "job-1",
			payload:    map[string]string{"status": "completed"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_transition",
		},
		{
			name:       "unknown job",
			store:      seededStore(jobs.StatusNew, ""),
			token:      "admin-token",
			jobID:      "nope",
			payload:    map[string]string{"status": "assigned"},
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.store)

			resp, body := doJSON(t, http.MethodPatch, srv.URL+"/jobs/"+tt.jobID+"/status", tt.token, tt.payload)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.wantStatus, body)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %q", body["code"], tt.wantCode)
			}
		})
	}
}

func TestAssignEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(jobs.StatusNew, ""))

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/jobs/job-1/assignee", "admin-token", map[string]string{"assignee": "Worker@Example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["assigned_to"] != "worker@example.com" {
		t.Errorf("assigned_to = %v, want normalized worker@example.com", body["assigned_to"])
	}
	if body["status"] != "assigned" {
		t.Errorf("status = %v, want assigned", body["status"])
	}
}

func TestAssignEndpointRejections(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		payload    interface{}
		wantStatus int
	}{
		{
			name:       "non-admin",
			token:      "worker-token",
			payload:    map[string]string{"assignee": "worker@example.com"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "blank assignee",
			token:      "admin-token",
			payload:    map[string]string{"assignee": "   "},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, seededStore(jobs.StatusNew, ""))

			resp, body := doJSON(t, http.MethodPut, srv.URL+"/jobs/job-1/assignee", tt.token, tt.payload)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.wantStatus, body)
			}
		})
	}
}

func TestCreateJobExtractsClientFields(t *testing.T) {
	store := &stubStore{jobs: map[string]*jobs.Job{}}
	srv := newTestServer(t, store)

	description := "### Client Details\n- Name: Alice Johnson\n- Phone: 555-1234\n### Job Description\nFix the leaking faucet"
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs", "worker-token", map[string]interface{}{
		"description": description,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["client_name"] != "Alice Johnson" {
		t.Errorf("client_name = %v", body["client_name"])
	}
	if body["client_contact"] != "555-1234" {
		t.Errorf("client_contact = %v", body["client_contact"])
	}
	if body["client_address"] != extract.NoAddress {
		t.Errorf("client_address = %v, want sentinel", body["client_address"])
	}
	if body["description"] != "Fix the leaking faucet" {
		t.Errorf("description = %v, want cleaned narrative", body["description"])
	}
	if body["title"] != "Fix the leaking faucet" {
		t.Errorf("title = %v, want derived from narrative", body["title"])
	}
	if body["status"] != "new" {
		t.Errorf("status = %v, want new", body["status"])
	}
}

func TestCreateJobObservesExtractionDuration(t *testing.T) {
	store := &stubStore{jobs: map[string]*jobs.Job{}}
	srv := newTestServer(t, store)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs", "worker-token", map[string]interface{}{
		"description": "### Job Description\nReplace the heater element",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}

	metricsResp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.HasPrefix(line, "jobcard_extraction_duration_seconds_count") {
			continue
		}
		found = true
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] == "0" {
			t.Errorf("unexpected sample %q, want a count of at least 1", line)
		}
	}
	if !found {
		t.Error("extraction duration histogram missing from /metrics")
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        string
	}{
		{
			name:        "explicit title wins",
			title:       "  Boiler service  ",
			description: "Anything at all",
			want:        "Boiler service",
		},
		{
			name:        "first line of the description",
			title:       "",
			description: "Replace the heater element\nBring a ladder",
			want:        "Replace the heater element",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveTitle(tt.title, tt.description); got != tt.want {
				t.Errorf("deriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("multi-byte first line truncates on rune boundaries", func(t *testing.T) {
		got := deriveTitle("", strings.Repeat("é", 100))
		if !utf8.ValidString(got) {
			t.Fatalf("deriveTitle() = %q, not valid UTF-8", got)
		}
		if n := utf8.RuneCountInString(got); n != 80 {
			t.Errorf("rune count = %d, want 80", n)
		}
	})
}
