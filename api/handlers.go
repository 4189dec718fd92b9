package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
)

// InferResponse is the body returned for one scored listing.
type InferResponse struct {
	Score            float64               `json:"score"`
	Label            models.Label          `json:"label"`
	Explanation      []models.Contribution `json:"explanation"`
	ModelVersion     string                `json:"model_version"`
	Timestamp        time.Time             `json:"timestamp"`
	ProcessingTimeMs float64               `json:"processing_time_ms"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":       serviceName,
		"model_version": s.scorer.ModelVersion(),
		"endpoints":     []string{"GET /health", "POST /infer", "POST /batch-infer", "GET /api/verdicts", "GET /metrics"},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"model_loaded":  s.modelLoaded,
		"model_version": s.scorer.ModelVersion(),
	})
}

func (s *Server) infer(c *gin.Context) {
	var req models.ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid listing", "details": bindErrors(err, "")})
		return
	}

	scored, err := s.scorer.Score(c.Request.Context(), req.ToListing())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.metrics.ObserveVerdict(scored.Verdict)
	s.persist(scored)
	c.JSON(http.StatusOK, toResponse(scored))
}

func (s *Server) batchInfer(c *gin.Context) {
	var reqs []models.ListingRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&reqs); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid listing batch", "details": bindErrors(err, "")})
		return
	}
	if len(reqs) > maxBatchSize {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("batch exceeds %d listings", maxBatchSize)})
		return
	}

	listings := make([]*models.Listing, len(reqs))
	var details []FieldError
	for i := range reqs {
		if err := binding.Validator.ValidateStruct(&reqs[i]); err != nil {
			details = append(details, bindErrors(err, fmt.Sprintf("[%d].", i))...)
			continue
		}
		listings[i] = reqs[i].ToListing()
	}
	if len(details) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid listing batch", "details": details})
		return
	}

	scored, err := s.scorer.ScoreBatch(c.Request.Context(), listings)
	if err != nil {
		s.fail(c, err)
		return
	}

	results := make([]InferResponse, len(scored))
	for i, sl := range scored {
		s.metrics.ObserveVerdict(sl.Verdict)
		results[i] = toResponse(sl)
	}
	s.persist(scored...)
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (s *Server) recentVerdicts(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no verdict store configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be between 1 and 500"})
		return
	}

	records, err := s.store.FetchRecent(limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdicts": records, "count": len(records)})
}

func (s *Server) persist(scored ...*models.ScoredListing) {
	if s.store == nil || len(scored) == 0 {
		return
	}
	records := make([]*models.VerdictRecord, len(scored))
	for i, sl := range scored {
		records[i] = sl.Record()
	}
	if err := s.store.Write(records); err != nil {
		s.logger.Error("[api] Failed to persist %d verdicts: %v", len(records), err)
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "scoring failed"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func toResponse(sl *models.ScoredListing) InferResponse {
	return InferResponse{
		Score:            sl.Verdict.Score,
		Label:            sl.Verdict.Label,
		Explanation:      sl.Verdict.Explanation,
		ModelVersion:     sl.ModelVersion,
		Timestamp:        sl.CreatedAt,
		ProcessingTimeMs: float64(sl.ProcessingTime.Microseconds()) / 1000,
	}
}

// bindErrors flattens binding failures into field errors.
func bindErrors(err error, prefix string) []FieldError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]FieldError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, FieldError{
				Field:   prefix + jsonField(fe.Field()),
				Message: describe(fe),
			})
		}
		return out
	}

	return []FieldError{{Field: strings.TrimSuffix(prefix, "."), Message: err.Error()}}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func jsonField(name string) string {
	if name == "ReviewCount" {
		return "review_count"
	}
	return strings.ToLower(name)
}
