package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/mediaplan-cli/internal/jobs"
	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/internal/projection"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form with a file")
		return
	}

	req := model.OptimizationRequest{
		TotalAudience: parseFloat(r.FormValue("totalAudience")),
		Budget:        parseFloat(r.FormValue("budget")),
		SheetName:     r.FormValue("sheetName"),
	}
	if f, hdr, err := r.FormFile("file"); err == nil {
		data, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}
		req.SourceFile = model.SourceFile{Name: hdr.Filename, Content: data}
	}

	err := s.ctrl.Submit(r.Context(), req)

	var ve *model.ValidationError
	var se *model.SubmissionError
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, projection.ForView(s.ctrl.View()))
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: ve.Error(),
			Fields:  ve.Fields,
		})
	case errors.As(err, &se):
		writeError(w, http.StatusBadGateway, se.Message)
	case errors.Is(err, jobs.ErrSuperseded):
		writeError(w, http.StatusConflict, "a newer submission replaced this one")
	case errors.Is(err, jobs.ErrStopped), errors.Is(err, jobs.ErrClosed):
		writeError(w, http.StatusConflict, "the submission was cancelled")
	default:
		zap.L().Error("submit optimization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not submit the optimization job")
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, projection.ForView(s.ctrl.View()))
}

func (s *Server) handleStopJob(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, projection.ForView(s.ctrl.View()))
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
