package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/domain"
	logpkg "github.com/kailas-cloud/hotspotd/internal/logger"
	"github.com/kailas-cloud/hotspotd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/hotspotd/internal/usecase/health"
)

// Catalog is the question catalog surface the HTTP layer exposes.
// Every method returns a ready-to-serialize response envelope.
type Catalog interface {
	AddOne(ctx context.Context, groupID string, in catalog.QuestionInput) catalog.Response
	AddBatch(ctx context.Context, groupID string, items []catalog.QuestionInput) catalog.Response
	UpdateOne(ctx context.Context, groupID, questionID string, upd domain.QuestionUpdate) catalog.Response
	QueryOne(ctx context.Context, groupID, queryText string, k int, minSimilarity float64) catalog.Response
	QueryBatch(ctx context.Context, groupID string, queryTexts []string, k int, minSimilarity float64) catalog.Response
	GetOne(ctx context.Context, groupID, questionID string) catalog.Response
	List(ctx context.Context, groupID string, offset, limit int) catalog.Response
	DeleteOne(ctx context.Context, groupID, questionID string) catalog.Response
	DeleteByCategory(ctx context.Context, groupID, category string) catalog.Response
	Stats(ctx context.Context, groupID string) catalog.Response
	RecreateIndex(ctx context.Context, groupID string) catalog.Response
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server registers the hotspot HTTP API on a chi router.
type Server struct {
	catalog Catalog
	health  HealthChecker
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(cat Catalog, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{catalog: cat, health: health, logger: logger}
}

// Routes mounts all endpoints on r. The hotspot API lives under /hotspot;
// Prometheus metrics are served at the root.
func (s *Server) Routes(r chi.Router) {
	r.Route("/hotspot", func(r chi.Router) {
		r.Post("/questions", s.addQuestion)
		r.Post("/questions/batch", s.addQuestionsBatch)
		r.Post("/questions/delete_by_category", s.deleteByCategory)
		r.Post("/questions/{question_id}/update", s.updateQuestion)
		r.Post("/questions/{question_id}/delete", s.deleteQuestion)
		r.Get("/questions/{question_id}", s.getQuestion)
		r.Get("/questions", s.listQuestions)
		r.Post("/query", s.query)
		r.Post("/query/batch", s.queryBatch)
		r.Get("/stats", s.stats)
		r.Get("/health", s.healthCheck)
		r.Post("/admin/index/{group_id}", s.recreateIndex)
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
}

type addQuestionRequest struct {
	QuestionInfo catalog.QuestionInput `json:"question_info"`
	GroupID      string                `json:"group_id"`
}

func (s *Server) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeEnvelope(w, s.catalog.AddOne(r.Context(), req.GroupID, req.QuestionInfo))
}

type addBatchRequest struct {
	QuestionInfoList []catalog.QuestionInput `json:"question_info_list"`
	GroupID          string                  `json:"group_id"`
}

func (s *Server) addQuestionsBatch(w http.ResponseWriter, r *http.Request) {
	var req addBatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeEnvelope(w, s.catalog.AddBatch(r.Context(), req.GroupID, req.QuestionInfoList))
}

type updateQuestionRequest struct {
	GroupID       string   `json:"group_id"`
	Question      *string  `json:"question"`
	StandardReply *string  `json:"standard_reply"`
	RelatedLinks  []string `json:"related_links"`
	Category      *string  `json:"category"`
}

func (s *Server) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req updateQuestionRequest
	if !s.decode(w, r, &req) {
		return
	}
	upd := domain.QuestionUpdate{
		Question:      req.Question,
		StandardReply: req.StandardReply,
		RelatedLinks:  req.RelatedLinks,
		Category:      req.Category,
	}
	writeEnvelope(w, s.catalog.UpdateOne(r.Context(), req.GroupID, chi.URLParam(r, "question_id"), upd))
}

type queryRequest struct {
	Query         string   `json:"query"`
	GroupID       string   `json:"group_id"`
	Limit         int      `json:"limit"`
	MinSimilarity *float64 `json:"min_similarity"`
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeEnvelope(w, s.catalog.QueryOne(
		r.Context(), req.GroupID, req.Query, req.Limit, minSimilarity(req.MinSimilarity)))
}

type batchQueryRequest struct {
	Queries       []string `json:"queries"`
	GroupID       string   `json:"group_id"`
	Limit         int      `json:"limit"`
	MinSimilarity *float64 `json:"min_similarity"`
}

func (s *Server) queryBatch(w http.ResponseWriter, r *http.Request) {
	var req batchQueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeEnvelope(w, s.catalog.QueryBatch(
		r.Context(), req.GroupID, req.Queries, req.Limit, minSimilarity(req.MinSimilarity)))
}

func (s *Server) getQuestion(w http.ResponseWriter, r *http.Request) {
	groupID := r.URL.Query().Get("group_id")
	writeEnvelope(w, s.catalog.GetOne(r.Context(), groupID, chi.URLParam(r, "question_id")))
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := queryInt(q.Get("offset"), 0)
	limit := queryInt(q.Get("limit"), 0)
	writeEnvelope(w, s.catalog.List(r.Context(), q.Get("group_id"), offset, limit))
}

type deleteQuestionRequest struct {
	GroupID string `json:"group_id"`
}

func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	var req deleteQuestionRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeEnvelope(w, s.catalog.DeleteOne(r.Context(), req.GroupID, chi.URLParam(r, "question_id")))
}

type deleteByCategoryRequest struct {
	GroupID  string `json:"group_id"`
	Category string `json:"category"`
}

func (s *Server) deleteByCategory(w http.ResponseWriter, r *http.Request) {
	var req deleteByCategoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeEnvelope(w, s.catalog.DeleteByCategory(r.Context(), req.GroupID, req.Category))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, s.catalog.Stats(r.Context(), r.URL.Query().Get("group_id")))
}

func (s *Server) recreateIndex(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, s.catalog.RecreateIndex(r.Context(), chi.URLParam(r, "group_id")))
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  report.Status,
		"service": "hotspot",
		"checks":  report.Checks,
	})
}

// decode parses the JSON body into v. On failure it writes a 400 envelope
// and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Prefer the request-scoped logger so the warning carries request_id.
		logpkg.FromContextOr(r.Context(), s.logger).Warn("malformed request body", zap.Error(err))
		writeEnvelope(w, catalog.Response{
			Code:    http.StatusBadRequest,
			Status:  "error",
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func minSimilarity(v *float64) float64 {
	if v == nil {
		return catalog.DefaultMinSimilarity
	}
	return *v
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// writeEnvelope serializes the envelope with its code as the HTTP status.
func writeEnvelope(w http.ResponseWriter, resp catalog.Response) {
	writeJSON(w, resp.Code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
