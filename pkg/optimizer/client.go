package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL of a locally running optimizer service.
const defaultBaseURL = "http://localhost:5001"

// Client defines the optimizer service operations.
type Client interface {
	StartOptimization(ctx context.Context, req StartRequest) (*StartResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error)
}

// StartRequest is the multipart body for POST /start-optimization.
type StartRequest struct {
	TotalAudience float64
	Budget        float64
	SheetName     string
	FileName      string
	File          []byte
}

// StartResponse is the response from POST /start-optimization.
type StartResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is the response from GET /job-status/{job_id}.
type JobStatusResponse struct {
	Status     string       `json:"status"`
	Progress   float64      `json:"progress"`
	Message    string       `json:"message,omitempty"`
	MainResult *Result      `json:"main_result,omitempty"`
	ReachCurve []ReachPoint `json:"reach_curve,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Result is the optimizer's main result for the full budget.
type Result struct {
	TotalCost          float64      `json:"total_cost"`
	NetReachPercentage float64      `json:"net_reach_percentage"`
	NetReachPeople     float64      `json:"net_reach_people"`
	AvgFrequency       float64      `json:"avg_frequency"`
	GRPs               float64      `json:"grps"`
	TotalGrossCume     float64      `json:"total_gross_cume"`
	Plan               []PlanRecord `json:"plan"`
}

// PlanRecord is one purchased station. The service emits spreadsheet
// column names as keys.
type PlanRecord struct {
	Station string  `json:"Station"`
	Cost    float64 `json:"Cost"`
	Cume    float64 `json:"Cume"`
}

// ReachPoint is one point of the reach curve.
type ReachPoint struct {
	Budget float64 `json:"budget"`
	Reach  float64 `json:"reach"`
}

// APIError is returned when the optimizer responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
	// Message is the service's "error" field, when the body carried one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("optimizer: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("optimizer: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets a per-request timeout on the default transport.
// Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new optimizer client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartOptimization(ctx context.Context, req StartRequest) (*StartResponse, error) {
	body, contentType, err := encodeStart(req)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: encode start request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/start-optimization", body)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: create request")
	}
	httpReq.Header.Set("Content-Type", contentType)

	var resp StartResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, eris.Wrap(err, "optimizer: start optimization")
	}
	if resp.JobID == "" {
		return nil, eris.New("optimizer: start optimization: response has no job_id")
	}
	return &resp, nil
}

func (c *httpClient) GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job-status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: create request")
	}

	var resp JobStatusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("optimizer: get job status %s", jobID))
	}
	return &resp, nil
}

func encodeStart(req StartRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := req.FileName
	if name == "" {
		name = "upload.xlsx"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", eris.Wrap(err, "create file part")
	}
	if _, err := part.Write(req.File); err != nil {
		return nil, "", eris.Wrap(err, "write file part")
	}

	fields := []struct{ key, value string }{
		{"totalAudience", formatNumber(req.TotalAudience)},
		{"budget", formatNumber(req.Budget)},
		{"sheetName", req.SheetName},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", eris.Wrapf(err, "write field %s", f.key)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "close multipart writer")
	}
	return &buf, w.FormDataContentType(), nil
}

// formatNumber renders whole numbers without a fraction; the service parses
// totalAudience as an integer.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
