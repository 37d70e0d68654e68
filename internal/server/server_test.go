package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mediaplan-cli/internal/jobs"
	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/internal/projection"
	"github.com/sells-group/mediaplan-cli/pkg/optimizer"
)

// stubOptimizer implements optimizer.Client for handler tests.
type stubOptimizer struct {
	startErr error
	// started, when set, is closed once a start request arrives; the
	// request then blocks until its context is cancelled.
	started chan struct{}
	status  func(id string) (*optimizer.JobStatusResponse, error)
}

func (s *stubOptimizer) StartOptimization(ctx context.Context, _ optimizer.StartRequest) (*optimizer.StartResponse, error) {
	if s.started != nil {
		close(s.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &optimizer.StartResponse{JobID: "42"}, nil
}

func (s *stubOptimizer) GetJobStatus(_ context.Context, id string) (*optimizer.JobStatusResponse, error) {
	return s.status(id)
}

func runningStatus(string) (*optimizer.JobStatusResponse, error) {
	return &optimizer.JobStatusResponse{Status: "Running", Progress: 0.3}, nil
}

func completedStatus(string) (*optimizer.JobStatusResponse, error) {
	return &optimizer.JobStatusResponse{
		Status:   "Completed",
		Progress: 1,
		MainResult: &optimizer.Result{
			TotalCost: 45,
			Plan: []optimizer.PlanRecord{
				{Station: "A", Cost: 10},
				{Station: "B", Cost: 30},
				{Station: "C", Cost: 30},
				{Station: "D", Cost: 5},
			},
		},
		ReachCurve: []optimizer.ReachPoint{{Budget: 1000, Reach: 10}, {Budget: 5000, Reach: 40}},
	}, nil
}

func newTestServer(t *testing.T, stub *stubOptimizer) (*httptest.Server, *jobs.Controller) {
	t.Helper()
	ctrl := jobs.New(stub, jobs.WithPollInterval(5*time.Millisecond))
	srv := httptest.NewServer(New(ctrl).Handler())
	t.Cleanup(func() {
		srv.Close()
		ctrl.Dispose()
	})
	return srv, ctrl
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if file != nil {
		part, err := w.CreateFormFile("file", "stations.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"totalAudience": "250000",
		"budget":        "10000",
		"sheetName":     "Raleigh 7 day",
	}
}

func postOptimize(t *testing.T, srv *httptest.Server, fields map[string]string, file []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, fields, file)
	resp, err := http.Post(srv.URL+"/api/optimize", ct, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubOptimizer{status: runningStatus})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestOptimize_Accepted(t *testing.T) {
	srv, _ := newTestServer(t, &stubOptimizer{status: runningStatus})

	resp := postOptimize(t, srv, validFields(), []byte("PK"))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decode[projection.Report](t, resp)
	assert.Equal(t, "42", body.Job.JobID)
	assert.Equal(t, model.StatePolling, body.Job.State)
	assert.True(t, body.Job.IsActive)
	assert.Nil(t, body.Summary)
}

func TestOptimize_ValidationError(t *testing.T) {
	srv, ctrl := newTestServer(t, &stubOptimizer{status: runningStatus})

	fields := validFields()
	fields["budget"] = "abc"
	resp := postOptimize(t, srv, fields, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.ElementsMatch(t, []string{"budget", "file"}, body.Fields)
	assert.Equal(t, model.StateIdle, ctrl.View().State)
}

func TestOptimize_NotMultipart(t *testing.T) {
	srv, _ := newTestServer(t, &stubOptimizer{status: runningStatus})

	resp, err := http.Post(srv.URL+"/api/optimize", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOptimize_SubmissionError(t *testing.T) {
	srv, ctrl := newTestServer(t, &stubOptimizer{
		startErr: &optimizer.APIError{StatusCode: 400, Message: "No file part"},
		status:   runningStatus,
	})

	resp := postOptimize(t, srv, validFields(), []byte("PK"))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "No file part", decode[ErrorResponse](t, resp).Message)
	assert.Equal(t, "No file part", ctrl.View().ErrorMessage)
}

func TestGetJob_CompletedProjection(t *testing.T) {
	srv, ctrl := newTestServer(t, &stubOptimizer{status: completedStatus})

	postOptimize(t, srv, validFields(), []byte("PK"))
	_, err := ctrl.Wait(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/job")
	require.NoError(t, err)
	defer resp.Body.Close()

	body := decode[projection.Report](t, resp)
	assert.Equal(t, model.JobStatusCompleted, body.Job.Status)
	require.NotNil(t, body.Summary)
	assert.Equal(t, 4, body.Summary.SpotCount)
	require.Len(t, body.Table, 4)
	assert.Equal(t, []string{"B", "C", "A", "D"}, []string{
		body.Table[0].Station, body.Table[1].Station, body.Table[2].Station, body.Table[3].Station,
	})
	require.NotNil(t, body.Chart)
	assert.Equal(t, []string{"1,000", "5,000"}, body.Chart.XLabels)
	assert.Equal(t, []float64{10, 40}, body.Chart.YValues)
}

func TestStopJob(t *testing.T) {
	srv, _ := newTestServer(t, &stubOptimizer{status: runningStatus})
	postOptimize(t, srv, validFields(), []byte("PK"))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/job", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[projection.Report](t, resp)
	assert.False(t, body.Job.IsActive)
	assert.Equal(t, model.StateIdle, body.Job.State)
}

func TestStopJob_WhileSubmitting(t *testing.T) {
	stub := &stubOptimizer{started: make(chan struct{}), status: runningStatus}
	srv, ctrl := newTestServer(t, stub)

	type result struct {
		code int
		body ErrorResponse
	}
	body, ct := multipartBody(t, validFields(), []byte("PK"))
	posted := make(chan result, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/api/optimize", ct, body)
		if err != nil {
			posted <- result{}
			return
		}
		defer resp.Body.Close()
		var eb ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		posted <- result{code: resp.StatusCode, body: eb}
	}()

	select {
	case <-stub.started:
	case <-time.After(2 * time.Second):
		t.Fatal("submission never reached the optimizer")
	}
	ctrl.Stop()

	select {
	case r := <-posted:
		assert.Equal(t, http.StatusConflict, r.code)
		assert.Equal(t, "the submission was cancelled", r.body.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("optimize request did not return")
	}
	assert.Equal(t, model.StateIdle, ctrl.View().State)
}

func TestCORSPreflight(t *testing.T) {
	ctrl := jobs.New(&stubOptimizer{status: runningStatus})
	defer ctrl.Dispose()
	srv := httptest.NewServer(New(ctrl, WithAllowedOrigins([]string{"http://localhost:3000"})).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/optimize", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStream(t *testing.T) {
	srv, _ := newTestServer(t, &stubOptimizer{status: completedStatus})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/job/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "job_update", first.Type)
	assert.Equal(t, model.StateIdle, first.Job.State)

	postOptimize(t, srv, validFields(), []byte("PK"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Job.State == model.StateCompleted {
			require.NotNil(t, msg.Summary)
			assert.Equal(t, 4, msg.Summary.SpotCount)
			assert.False(t, msg.Job.IsActive)
			return
		}
	}
}

func TestCheckOrigin(t *testing.T) {
	s := New(nil, WithAllowedOrigins([]string{"http://app.local"}))

	r := httptest.NewRequest(http.MethodGet, "/api/job/stream", nil)
	assert.True(t, s.checkOrigin(r))

	r.Header.Set("Origin", "http://app.local")
	assert.True(t, s.checkOrigin(r))

	r.Header.Set("Origin", "http://evil.local")
	assert.False(t, s.checkOrigin(r))
}
