package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediaflow/internal/domain/entity"
	"mediaflow/internal/domain/usecase"
	"mediaflow/internal/notify"
)

type stubOrchestrator struct {
	submitErr error
	lookupErr error
	lastReq   usecase.SubmitRequest
	job       *entity.ProcessingJob
	resultURL string
}

func (s *stubOrchestrator) Submit(_ context.Context, req usecase.SubmitRequest) (string, error) {
	s.lastReq = req
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return "job-42", nil
}

func (s *stubOrchestrator) lookup(jobID string) error {
	if s.lookupErr != nil {
		return s.lookupErr
	}
	if s.job == nil || s.job.JobID != jobID {
		return fmt.Errorf("get job %s: %w", jobID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *stubOrchestrator) GetJob(_ context.Context, jobID string) (*entity.ProcessingJob, string, error) {
	if err := s.lookup(jobID); err != nil {
		return nil, "", err
	}
	return s.job, s.resultURL, nil
}

func (s *stubOrchestrator) GetStatus(_ context.Context, jobID string) (string, int, error) {
	if err := s.lookup(jobID); err != nil {
		return "", 0, err
	}
	return string(s.job.Status), s.job.Progress, nil
}

func testRouter(o JobOrchestrator, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if authenticated {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", "user-1")
			c.Next()
		})
	}
	NewJobHandler(o, notify.NewHub()).Register(r.Group("/api/v1"))
	return r
}

func multipartSubmission(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("video", "clip.mp4")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("binary video bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	for k, v := range fields {
		_ = form.WriteField(k, v)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &body, form.FormDataContentType()
}

// TestSubmitJobAccepted verifies the 202 envelope and flag parsing.
func TestSubmitJobAccepted(t *testing.T) {
	stub := &stubOrchestrator{}
	r := testRouter(stub, true)

	body, contentType := multipartSubmission(t, map[string]string{
		"projectId":          "project-1",
		"transcription":      "true",
		"chapters":           "1",
		"speakerDiarization": "yes",
		"sentiment":          "false",
		"preferredProvider":  "openai",
		"language":           "en",
		"webhookUrl":         "https://example.test/hook",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Success   bool   `json:"success"`
		JobID     string `json:"jobId"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.JobID != "job-42" || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	caps := stub.lastReq.Capabilities
	if !caps.Transcription || !caps.Chapters || !caps.Diarization || caps.Sentiment {
		t.Fatalf("parsed capabilities = %+v", caps)
	}
	if stub.lastReq.PreferredProvider != "openai" || stub.lastReq.WebhookURL != "https://example.test/hook" {
		t.Fatalf("parsed request = %+v", stub.lastReq)
	}
	if stub.lastReq.UserID != "user-1" {
		t.Fatalf("userID = %s, want user-1 from auth context", stub.lastReq.UserID)
	}
}

// TestSubmitJobErrorEnvelope verifies error-to-status mapping and the
// uniform envelope shape.
func TestSubmitJobErrorEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid request", usecase.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{"insufficient quota", usecase.ErrInsufficientQuota, http.StatusPaymentRequired, "insufficient_quota"},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRouter(&stubOrchestrator{submitErr: tt.err}, true)

			body, contentType := multipartSubmission(t, map[string]string{"transcription": "true"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
				RequestID string `json:"requestId"`
				Timestamp string `json:"timestamp"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if resp.Error.Code != tt.wantCode || resp.Error.Message == "" {
				t.Fatalf("envelope error = %+v", resp.Error)
			}
			if resp.RequestID == "" || resp.Timestamp == "" {
				t.Fatalf("envelope missing requestId/timestamp: %s", w.Body.String())
			}
		})
	}
}

// TestSubmitJobUnauthorized verifies the 401 path when no identity is
// present.
func TestSubmitJobUnauthorized(t *testing.T) {
	r := testRouter(&stubOrchestrator{}, false)

	body, contentType := multipartSubmission(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

// TestSubmitJobMissingVideo verifies the 400 path for a request with
// no media part.
func TestSubmitJobMissingVideo(t *testing.T) {
	r := testRouter(&stubOrchestrator{}, true)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("transcription", "true")
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// TestGetStatusAndJob verifies the read endpoints.
func TestGetStatusAndJob(t *testing.T) {
	stub := &stubOrchestrator{
		job: &entity.ProcessingJob{
			JobID:    "job-42",
			Status:   entity.StatusCompleted,
			Progress: 100,
		},
		resultURL: "https://blobs.test/jobs/job-42/result.json?signed=1",
	}
	r := testRouter(stub, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-42/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", w.Code)
	}
	var status struct {
		JobID    string `json:"jobId"`
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != "completed" || status.Progress != 100 {
		t.Fatalf("status = %+v", status)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-42", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("job endpoint = %d, want 200", w.Code)
	}
	var doc struct {
		Job       *entity.ProcessingJob `json:"job"`
		ResultURL string                `json:"resultUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if doc.Job == nil || doc.Job.JobID != "job-42" || doc.ResultURL == "" {
		t.Fatalf("job doc = %+v", doc)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown/status", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown job = %d, want 404", w.Code)
	}
}

// TestGetJobLookupFailure verifies a store failure surfaces as 500,
// not as a 404 that would hide the outage from callers.
func TestGetJobLookupFailure(t *testing.T) {
	stub := &stubOrchestrator{lookupErr: errors.New("connection refused")}
	r := testRouter(stub, true)

	for _, path := range []string{"/api/v1/jobs/job-42", "/api/v1/jobs/job-42/status"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s = %d, want 500", path, w.Code)
		}

		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if resp.Error.Code != "internal_error" {
			t.Fatalf("%s error code = %q, want internal_error", path, resp.Error.Code)
		}
	}
}
