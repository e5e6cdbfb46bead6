package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/metrics"
	"github.com/bsaid97/go-overlap-checker/pipeline"
	"github.com/bsaid97/go-overlap-checker/report"
	"github.com/bsaid97/go-overlap-checker/utils"
)

// Analyzer is the part of pipeline.Analyzer the HTTP surface needs.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*report.FinalResult, error)
	AnalyzeParcel(ctx context.Context, number string) (*report.FinalResult, error)
	Screen(ctx context.Context, wkt string, kind layers.Kind) (float64, error)
}

type Server struct {
	Analyzer       Analyzer
	MaxUploadBytes int64
}

func NewServer(a Analyzer) *Server {
	return &Server{Analyzer: a, MaxUploadBytes: utils.DefaultMaxUploadBytes}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.recovered(s.analyzeHandler))
	mux.HandleFunc("GET /analyze/car/{number}", s.recovered(s.analyzeParcelHandler))
	mux.HandleFunc("POST /check-geometry", s.recovered(s.checkGeometryHandler))
	mux.HandleFunc("POST /screen", s.recovered(s.screenHandler))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// recovered turns a panic into a 500 so one bad request cannot take the
// server down.
func (s *Server) recovered(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.L().Error("panic recovered in handler",
					zap.String("path", r.URL.Path), zap.Any("panic", rec))
				sendError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		h(w, r)
		logger.L().Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	req, err := s.readAnalyzeRequest(w, r)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		sendAnalysisError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

// readAnalyzeRequest accepts a JSON body, or a multipart form carrying either
// a zipped shapefile under "file" or a "wkt" value.
func (s *Server) readAnalyzeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		body := http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		return req, nil
	}

	form, err := utils.ReadMultiPartForm(r, "file", s.MaxUploadBytes)
	if err != nil {
		return req, err
	}
	req.ExcludeParcel = form.Properties.ExcludeParcel
	if len(form.File) == 0 {
		req.WKT = form.Properties.WKT
		return req, nil
	}

	path, cleanup, err := utils.SaveUpload(form)
	if err != nil {
		return req, err
	}
	defer cleanup()
	req.WKT, err = DissolveShapefile(path)
	if err != nil {
		return req, fmt.Errorf("reading uploaded shapefile: %w", err)
	}
	return req, nil
}

func (s *Server) analyzeParcelHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.Analyzer.AnalyzeParcel(r.Context(), r.PathValue("number"))
	if err != nil {
		sendAnalysisError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

type checkGeometryResponse struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors"`
}

func (s *Server) checkGeometryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WKT string `json:"wkt"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	problems, err := CheckWKT(req.WKT)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, checkGeometryResponse{Valid: len(problems) == 0, Errors: problems})
}

type screenRequest struct {
	WKT   string `json:"wkt"`
	Layer string `json:"layer"`
}

type screenResponse struct {
	Layer        layers.Kind `json:"layer"`
	MaxOverlapHa float64     `json:"max_overlap_ha"`
}

func (s *Server) screenHandler(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := layers.ParseKind(req.Layer)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	ha, err := s.Analyzer.Screen(r.Context(), req.WKT, kind)
	if err != nil {
		sendAnalysisError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, screenResponse{Layer: kind, MaxOverlapHa: ha})
}

func sendAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyTarget), errors.Is(err, pipeline.ErrInvalidTarget):
		sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrParcelNotFound):
		sendError(w, http.StatusNotFound, err.Error())
	default:
		logger.L().Error("analysis failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("writing response", zap.Error(err))
	}
}
