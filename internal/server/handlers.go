package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tenderlab/clausematch/internal/ensemble"
	"github.com/tenderlab/clausematch/internal/pipeline"
	"github.com/tenderlab/clausematch/pkg/utils"
)

type retrieveRequest struct {
	Query  string `json:"query"`
	Method string `json:"method"`
	K      int    `json:"k,omitempty"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	ens, _ := s.ensemble()
	if ens == nil {
		s.respondError(w, http.StatusServiceUnavailable, "indexes not built yet")
		return
	}
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Method == "" {
		s.respondError(w, http.StatusBadRequest, "method is required")
		return
	}
	k := req.K
	if k <= 0 {
		k = s.cfg.Retrieval.K
	}
	s.logger.Debug("retrieve request",
		zap.String("method", req.Method),
		zap.String("query", utils.Truncate(req.Query, 80)),
		zap.Int("k", k))
	results, err := ens.Retrieve(r.Context(), req.Method, req.Query, k)
	if err != nil {
		var unknown *ensemble.UnknownMethodError
		if errors.As(err, &unknown) {
			s.respondError(w, http.StatusBadRequest, unknown.Error())
			return
		}
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"method":  req.Method,
		"results": results,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.cfg.Extraction.OutputDir, pipeline.ReportFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "no report generated yet")
			return
		}
		s.logger.Error("report read failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusNotImplemented, "run history not enabled")
		return
	}
	runs, err := s.store.Runs(r.Context(), 20)
	if err != nil {
		s.logger.Error("runs query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ens, corpusLen := s.ensemble()
	resp := map[string]interface{}{
		"paragraphs": corpusLen,
		"ready":      ens != nil,
	}
	if ens != nil {
		resp["methods"] = ens.Methods()
	}
	if s.store != nil {
		if last, err := s.store.LastRun(r.Context()); err == nil && last != nil {
			resp["last_run"] = map[string]interface{}{
				"id":          last.ID,
				"status":      last.Status,
				"finished_at": last.FinishedAt,
			}
		}
	}
	resp["config"] = map[string]interface{}{
		"source_dir":    s.cfg.Extraction.SourceDir,
		"k":             s.cfg.Retrieval.K,
		"min_threshold": s.cfg.Analysis.MinThreshold,
		"top_n_docs":    s.cfg.Analysis.TopNDocs,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
