package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/austindbirch/taskpulse/internal/feed"
	"github.com/austindbirch/taskpulse/internal/listener"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/pipeline"
	"github.com/austindbirch/taskpulse/internal/queue"
	"github.com/austindbirch/taskpulse/internal/store"
	"github.com/austindbirch/taskpulse/internal/template"
)

type stubFeed struct{ handler feed.Handler }

func (f *stubFeed) Subscribe(h feed.Handler) error { f.handler = h; return nil }
func (f *stubFeed) Unsubscribe()                   {}

type stubStore struct {
	tasks    map[string]store.Task
	profiles map[string]store.Profile
}

func (s *stubStore) GetTask(ctx context.Context, id string) (store.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return store.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (s *stubStore) GetProfiles(ctx context.Context, ids []string) ([]store.Profile, error) {
	var out []store.Profile
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubTransport struct{}

func (stubTransport) Probe(ctx context.Context) bool { return true }
func (stubTransport) Send(ctx context.Context, recipient, subject, html, text string) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *queue.Queue) {
	t.Helper()
	log := logging.NewWithCapacity("ops-test", 100)
	q := queue.New(stubTransport{}, log, queue.Config{})
	st := &stubStore{
		tasks: map[string]store.Task{
			"task-1": {
				ID:          "task-1",
				Title:       "Fix login timeout",
				ProjectName: "Orion",
				Status:      template.StatusInProgress,
				AssigneeID:  "u-1",
			},
		},
		profiles: map[string]store.Profile{
			"u-1": {ID: "u-1", Email: "riley@example.com", Name: "Riley"},
		},
	}
	lst := listener.New(&stubFeed{}, st, q, log, listener.Config{BaseURL: "https://app.example.com"})
	mgr := pipeline.New(q, lst, log, time.Hour)
	return NewServer(mgr, q, lst, log, nil, nil, nil), q
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validEnqueueBody() string {
	return `{
		"kind": "approved",
		"input": {
			"task_id": "task-1",
			"title": "Fix login timeout",
			"project_name": "Orion",
			"old_status": "WAITING_CONFIRM",
			"new_status": "APPROVED",
			"changed_by": "morgan",
			"changed_at": "2026-08-01T10:00:00Z",
			"task_url": "https://app.example.com/tasks/task-1"
		},
		"recipients": ["riley@example.com"],
		"priority": "high"
	}`
}

func TestEnqueueAndFetchJob(t *testing.T) {
	srv, q := newTestServer(t)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/v1/jobs", validEnqueueBody())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /v1/jobs = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.JobID == "" {
		t.Fatalf("bad enqueue response: %s", rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/jobs/"+created.JobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET job = %d", rec.Code)
	}
	var job queue.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("bad job response: %v", err)
	}
	if job.Kind != template.KindApproved || job.Priority != queue.PriorityHigh {
		t.Errorf("job = kind %q priority %q", job.Kind, job.Priority)
	}

	if got, _ := q.Job(created.JobID); got.Status != queue.StatusPending {
		t.Errorf("queue job status = %q, want pending", got.Status)
	}
}

func TestEnqueueValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "missing input fields", body: `{"kind":"assigned","input":{},"recipients":["a@x.com"]}`},
		{
			name: "no recipients",
			body: strings.Replace(validEnqueueBody(), `["riley@example.com"]`, `[]`, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/jobs", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestEnqueueValidationListsFields(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/v1/jobs",
		`{"kind":"assigned","input":{},"recipients":["a@x.com"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !strings.Contains(resp.Error, "task_id, title") {
		t.Errorf("error = %q, want comma-separated field list", resp.Error)
	}
}

func TestJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/v1/jobs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown job = %d, want 404", rec.Code)
	}
	rec = doRequest(t, router, http.MethodPost, "/v1/jobs/nope/cancel", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown job = %d, want 404", rec.Code)
	}
}

func TestJobCancel(t *testing.T) {
	srv, q := newTestServer(t)
	router := srv.Router()

	id := q.Enqueue(template.KindAssigned, template.Input{
		TaskID: "task-1", Title: "t", ProjectName: "p",
		OldStatus: "A", NewStatus: "B", ChangedBy: "c",
		ChangedAt: time.Now(), TaskURL: "https://x.com/t/1",
	}, []string{"a@x.com"}, queue.Options{})

	rec := doRequest(t, router, http.MethodPost, "/v1/jobs/"+id+"/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel = %d", rec.Code)
	}

	// Cancelling a job that is no longer pending conflicts.
	rec = doRequest(t, router, http.MethodPost, "/v1/jobs/"+id+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel = %d, want 409", rec.Code)
	}
}

func TestJobStats(t *testing.T) {
	srv, q := newTestServer(t)
	router := srv.Router()

	q.Enqueue(template.KindAssigned, template.Input{
		TaskID: "task-1", Title: "t", ProjectName: "p",
		OldStatus: "A", NewStatus: "B", ChangedBy: "c",
		ChangedAt: time.Now(), TaskURL: "https://x.com/t/1",
	}, []string{"a@x.com"}, queue.Options{})

	rec := doRequest(t, router, http.MethodGet, "/v1/jobs/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d", rec.Code)
	}
	var s queue.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("bad stats response: %v", err)
	}
	if s.Pending != 1 || s.Total != 1 {
		t.Errorf("stats = %+v, want pending=1 total=1", s)
	}
}

func TestPipelineStatusAndClear(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/v1/pipeline/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st pipeline.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("bad status response: %v", err)
	}
	if st.State != pipeline.StateUninitialized {
		t.Errorf("state = %q, want uninitialized", st.State)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/pipeline/errors/clear", "")
	if rec.Code != http.StatusOK {
		t.Errorf("clear = %d", rec.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv, q := newTestServer(t)
	router := srv.Router()

	// Generate a few entries through the queue.
	q.Enqueue(template.KindAssigned, template.Input{}, nil, queue.Options{}) // warns: no recipients

	rec := doRequest(t, router, http.MethodGet, "/v1/logs?level=warn&limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logs = %d", rec.Code)
	}
	var result struct {
		Entries []logging.Entry `json:"entries"`
		Stats   logging.Stats   `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad logs response: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Errorf("entries = %d, want the enqueue warning", len(result.Entries))
	}
}

func TestTransitionsEndpoint(t *testing.T) {
	srv, q := newTestServer(t)
	router := srv.Router()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "valid transition",
			body:     `{"task_id":"task-1","old_status":"IN_PROGRESS","new_status":"WAITING_CONFIRM","actor":"riley"}`,
			wantCode: http.StatusAccepted,
		},
		{
			name:     "unknown task",
			body:     `{"task_id":"ghost","old_status":"IN_PROGRESS","new_status":"DONE","actor":"riley"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "ineligible transition",
			body:     `{"task_id":"task-1","old_status":"OPEN","new_status":"ARCHIVED","actor":"riley"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing fields",
			body:     `{"task_id":"task-1"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed json",
			body:     `{`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/transitions", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	if got := q.Stats().Total; got != 1 {
		t.Errorf("queue total = %d, want 1 (only the valid transition)", got)
	}
}

func TestHealthzOpenWithoutDB(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
