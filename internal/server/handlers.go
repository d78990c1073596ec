package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/pipeline"
	"github.com/credlens/credcheck/internal/store"
)

// minTextLength is the shortest article accepted for analysis. Anything
// shorter carries too little signal to score.
const minTextLength = 50

// maxBodyBytes bounds request bodies well above the 50k-char text cap.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeRequest parses and validates the analysis request body. On
// failure it writes the 400 itself and returns ok=false.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (model.AnalysisRequest, bool) {
	var req model.AnalysisRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}

	trimmed := strings.TrimSpace(req.Text)
	if trimmed == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return req, false
	}
	if utf8.RuneCountInString(trimmed) < minTextLength {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("text must be at least %d characters", minTextLength))
		return req, false
	}

	return req, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cache_entries": s.cache.ItemCount(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	_, raw, cacheHit, err := s.pipeline.Analyze(r.Context(), req)
	if err != nil {
		zap.L().Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	// The marshaled bytes are canonical: cached responses stay
	// byte-identical across requests.
	if _, err := w.Write(raw); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func (s *Server) handlePredictStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := pipeline.NewEmitter()
	go s.pipeline.AnalyzeStream(r.Context(), req, emit)

	for {
		select {
		case ev, open := <-emit.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				zap.L().Warn("marshal stream event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			// Client disconnected; a shared computation keeps running.
			emit.Stop()
			return
		}
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}

	filter := store.RunFilter{
		Label:       model.Label(r.URL.Query().Get("label")),
		Fingerprint: r.URL.Query().Get("fingerprint"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}

	snap, err := s.collector.Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("collect stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collect stats failed")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}

	writeJSON(w, http.StatusOK, run)
}
