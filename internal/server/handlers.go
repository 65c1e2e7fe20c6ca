package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clinicore/medsearch/internal/models"
	"github.com/clinicore/medsearch/internal/search"
)

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := s.retriever.Retrieve(r.Context(), &req)
	if err != nil {
		s.respondRetrievalError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleContext runs a retrieval and applies the sufficiency gate. When the
// top fused score is below the threshold the context is empty and
// "sufficient" is false, signaling the caller to fall back to another source.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	threshold := req.Threshold
	if threshold == 0 {
		threshold = s.config.Search.SufficiencyThreshold
	}
	results, err := s.retriever.Retrieve(r.Context(), &req)
	if err != nil {
		s.respondRetrievalError(w, err)
		return
	}
	sufficient := search.IsSufficient(results, threshold)
	resp := map[string]interface{}{
		"sufficient": sufficient,
		"threshold":  threshold,
		"context":    "",
		"results":    results,
	}
	if sufficient {
		resp["context"] = search.SelectContext(results, req.K)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type ingestRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "path not accessible")
		return
	}
	s.logger.Info("ingest request", zap.String("path", req.Path))
	var count int
	if info.IsDir() {
		count, err = s.pipeline.IngestDirectory(r.Context(), req.Path)
	} else {
		_, err = s.pipeline.IngestFile(r.Context(), req.Path)
		count = 1
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondRetrievalError(w, err)
		return
	}
	s.retriever.SetSparse(s.pipeline.Sparse())
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ingested",
		"files":  count,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.ListDocuments(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sp := s.pipeline.Sparse()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":     docCount,
		"chunks":        chunkCount,
		"sparse_chunks": sp.Size(),
		"sparse_terms":  sp.Terms(),
		"config": map[string]interface{}{
			"chunk_size":            s.config.Ingest.ChunkSize,
			"chunk_overlap":         s.config.Ingest.ChunkOverlap,
			"dense_weight":          s.config.Search.DenseWeight,
			"sparse_weight":         s.config.Search.SparseWeight,
			"sufficiency_threshold": s.config.Search.SufficiencyThreshold,
			"embedding_dimensions":  s.config.Embedding.Dimensions,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondRetrievalError maps the error taxonomy onto HTTP status codes.
func (s *Server) respondRetrievalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidMethod),
		errors.Is(err, models.ErrInvalidConfiguration),
		errors.Is(err, models.ErrDocumentUnreadable):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrIndexNotReady):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, models.ErrEmbeddingService):
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
