package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/resolver"
	"github.com/hyperjump/kusuri/internal/storage"
	"github.com/hyperjump/kusuri/internal/vector"
)

// Thresholds are pointers so an explicit 0 is distinguishable from an absent
// field; absent means the resolver default.
type interactionSearchRequest struct {
	Drug1     string   `json:"drug1"`
	Drug2     string   `json:"drug2"`
	Resolve   bool     `json:"resolve"`
	Threshold *float64 `json:"threshold"`
}

type resolveRequest struct {
	Name      string   `json:"name"`
	Threshold *float64 `json:"threshold"`
	TopK      int      `json:"top_k"`
}

func thresholdOrDefault(t *float64, def float64) float64 {
	if t != nil {
		return *t
	}
	return def
}

type interactionSearchResponse struct {
	Drug1     string `json:"drug1"`
	Drug2     string `json:"drug2"`
	Found     bool   `json:"found"`
	Condition string `json:"condition,omitempty"`
}

// resolveOrEcho maps a name through the resolver when asked, falling back to
// the raw name when resolution is unavailable or finds nothing. Interaction
// search stays usable without embedding artifacts.
func (s *Server) resolveOrEcho(r *http.Request, name string, threshold float64) string {
	resolved, ok, err := s.resolver.Resolve(r.Context(), name, threshold)
	if err != nil || !ok {
		if err != nil && !errors.Is(err, resolver.ErrUnavailable) {
			s.logger.Debug("resolution failed, using raw name", zap.String("name", name), zap.Error(err))
		}
		return name
	}
	return resolved
}

func (s *Server) handleInteractionSearch(w http.ResponseWriter, r *http.Request) {
	var req interactionSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := models.InteractionQuery{Drug1: req.Drug1, Drug2: req.Drug2}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug1, drug2 := req.Drug1, req.Drug2
	if req.Resolve {
		threshold := thresholdOrDefault(req.Threshold, resolver.DefaultResolveThreshold)
		drug1 = s.resolveOrEcho(r, drug1, threshold)
		drug2 = s.resolveOrEcho(r, drug2, threshold)
	}

	condition, found := s.graph.Get(drug1, drug2)
	s.logger.Debug("interaction search",
		zap.String("drug1", drug1), zap.String("drug2", drug2), zap.Bool("found", found))
	s.respondJSON(w, http.StatusOK, interactionSearchResponse{
		Drug1:     drug1,
		Drug2:     drug2,
		Found:     found,
		Condition: condition,
	})
}

func (s *Server) handleAddInteraction(w http.ResponseWriter, r *http.Request) {
	var rec models.InteractionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.graph.Upsert(rec.Drug1, rec.Drug2, rec.Condition); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.store != nil {
		if err := s.store.Upsert(rec); err != nil {
			s.logger.Error("failed to persist interaction", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "interaction stored in memory but not persisted")
			return
		}
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

func (s *Server) handleDrugInteractions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "drug name is required")
		return
	}
	if r.URL.Query().Get("resolve") == "true" {
		name = s.resolveOrEcho(r, name, resolver.DefaultResolveThreshold)
	}
	interactions := s.graph.InteractionsFor(name)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"drug":         name,
		"interactions": interactions,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := models.ResolveQuery{
		Name:      req.Name,
		Threshold: thresholdOrDefault(req.Threshold, resolver.DefaultResolveThreshold),
	}

	resolved, matched, err := s.resolver.Resolve(r.Context(), query.Name, query.Threshold)
	if err != nil {
		if errors.Is(err, resolver.ErrUnavailable) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resolver.Resolution{
		Input:    query.Name,
		Resolved: resolved,
		Matched:  matched,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := models.ResolveQuery{
		Name:      req.Name,
		Threshold: thresholdOrDefault(req.Threshold, resolver.DefaultSuggestThreshold),
		TopK:      req.TopK,
	}
	if query.TopK == 0 {
		query.TopK = 5
	}

	matches, err := s.resolver.Suggest(r.Context(), query.Name, query.Threshold, query.TopK)
	if err != nil {
		if errors.Is(err, resolver.ErrUnavailable) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"input":   query.Name,
		"matches": matches,
	})
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":          name,
		"in_vocabulary": s.resolver.Known(name),
		"in_graph":      s.graph.Has(name),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.graph.Stats())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.graph.Stats()
	resp := map[string]interface{}{
		"drugs":              stats.Drugs,
		"interactions":       stats.Interactions,
		"resolver_available": s.resolver.IsAvailable(),
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"index_type":           s.config.Index.Type,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"embedding_model":      s.config.Embedding.ModelName,
			"database_path":        s.config.Storage.DatabasePath,
			"artifact_path":        s.config.Index.ArtifactPath,
		}
		diskBytes := storage.FileSizeBytes(s.config.Storage.DatabasePath) +
			storage.FileSizeBytes(vector.BundlePath(s.config.Index.ArtifactPath)) +
			storage.FileSizeBytes(vector.VectorsPath(s.config.Index.ArtifactPath)) +
			storage.FileSizeBytes(vector.MappingPath(s.config.Index.ArtifactPath))
		resp["disk_usage_bytes"] = diskBytes
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
