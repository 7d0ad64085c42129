package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/kernelci"
	"github.com/poiesic/kernelci/core"
	"github.com/poiesic/kernelci/hooks"
	"github.com/poiesic/kernelci/ingestion"
	"github.com/poiesic/kernelci/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchCall struct {
	event   core.EventType
	payload string
}

type fakeBackend struct {
	importErr  error
	dispatched []dispatchCall
	jobs       map[string]*kernelci.JobView
}

func (f *fakeBackend) ImportJob(_ context.Context, job, kernel string, notify bool) (*kernelci.ImportReport, error) {
	if f.importErr != nil {
		return &kernelci.ImportReport{}, f.importErr
	}
	j := core.NewJob(job, kernel, time.Now())
	variants := []*core.Variant{{ID: "defconfig", JobID: j.ID}}
	report := &kernelci.ImportReport{
		Result: &ingestion.ImportResult{JobID: j.ID, Job: j, Variants: variants, Saved: 2},
	}
	if notify {
		report.Outcomes = []hooks.Outcome{{Subscriber: "a", Delivered: true, Attempts: 1}}
	}
	return report, nil
}

func (f *fakeBackend) Dispatch(_ context.Context, eventType core.EventType, payload any) []hooks.Outcome {
	raw, _ := payload.(json.RawMessage)
	f.dispatched = append(f.dispatched, dispatchCall{event: eventType, payload: string(raw)})
	return []hooks.Outcome{{Subscriber: "a", Delivered: true, Attempts: 1}}
}

func (f *fakeBackend) Lookup(_ context.Context, id string) (*kernelci.JobView, error) {
	if view, ok := f.jobs[id]; ok {
		return view, nil
	}
	return nil, storage.ErrNotFound
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestImport(t *testing.T) {
	s := New(&fakeBackend{}, nil)

	rec := do(t, s, http.MethodPost, "/v1/import", `{"job":"mainline","kernel":"v6.1","notify":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mainline-v6.1", resp.JobID)
	assert.Equal(t, 2, resp.Saved)
	require.Len(t, resp.Variants, 1)
	assert.Equal(t, "defconfig", resp.Variants[0].ID)
	assert.Contains(t, rec.Body.String(), `"hooks":[`)
}

func TestImport_BadRequests(t *testing.T) {
	s := New(&fakeBackend{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `job=mainline`},
		{"missing job", `{"kernel":"v6.1"}`},
		{"blank kernel", `{"job":"mainline","kernel":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/import", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestImport_PersistenceFailure(t *testing.T) {
	s := New(&fakeBackend{importErr: fmt.Errorf("saving mainline-v6.1: %w", storage.ErrStorageClosed)}, nil)

	rec := do(t, s, http.MethodPost, "/v1/import", `{"job":"mainline","kernel":"v6.1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage is closed")
}

func TestImport_InvalidJob(t *testing.T) {
	s := New(&fakeBackend{importErr: fmt.Errorf("%w: %w", core.ErrInvalidJob, core.ErrEmptyJobName)}, nil)

	rec := do(t, s, http.MethodPost, "/v1/import", `{"job":"mainline","kernel":"v6.1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHook(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend, nil)

	rec := do(t, s, http.MethodPost, "/v1/hooks/LAVA", `{"lab":"lab-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Event    string           `json:"event"`
		Outcomes []map[string]any `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "lava", resp.Event)
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, true, resp.Outcomes[0]["delivered"])

	require.Len(t, backend.dispatched, 1)
	assert.Equal(t, core.EventLava, backend.dispatched[0].event)
	assert.JSONEq(t, `{"lab":"lab-01"}`, backend.dispatched[0].payload)
}

func TestHook_BadRequests(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend, nil)

	rec := do(t, s, http.MethodPost, "/v1/hooks/deploy", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/hooks/build", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, backend.dispatched)
}

func TestGetJob(t *testing.T) {
	job := core.NewJob("mainline", "v6.1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(&fakeBackend{jobs: map[string]*kernelci.JobView{
		job.ID: {Job: job, Variants: []*core.Variant{}},
	}}, nil)

	rec := do(t, s, http.MethodGet, "/v1/jobs/mainline-v6.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"job": {"_id":"mainline-v6.1","job":"mainline","kernel":"v6.1","created":"2024-01-01T00:00:00Z"},
		"variants": []
	}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/v1/jobs/next-v1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJob_LookupFailure(t *testing.T) {
	s := New(&failingLookup{}, nil)

	rec := do(t, s, http.MethodGet, "/v1/jobs/x", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type failingLookup struct{ fakeBackend }

func (f *failingLookup) Lookup(context.Context, string) (*kernelci.JobView, error) {
	return nil, errors.New("disk on fire")
}

func TestMetricsAndHealth(t *testing.T) {
	s := New(&fakeBackend{}, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = do(t, s, http.MethodGet, "/v1/import", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := New(&fakeBackend{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
