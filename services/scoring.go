package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
	"listing-fraud-detector/utils"
)

// VerdictCache stores verdicts by listing fingerprint.
type VerdictCache interface {
	GetVerdict(ctx context.Context, key string) (*models.Verdict, bool, error)
	SetVerdict(ctx context.Context, key string, v *models.Verdict) error
}

// Scorer runs the extract, classify, explain pipeline.
type Scorer struct {
	extractor  *Extractor
	classifier ScoreClassifier
	cache      VerdictCache
	logger     *utils.Logger
	workers    int
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithCache enables verdict caching.
func WithCache(c VerdictCache) ScorerOption {
	return func(s *Scorer) { s.cache = c }
}

// WithWorkers sets the parallelism of batch feature extraction.
func WithWorkers(n int) ScorerOption {
	return func(s *Scorer) { s.workers = n }
}

func NewScorer(extractor *Extractor, classifier ScoreClassifier, logger *utils.Logger, opts ...ScorerOption) *Scorer {
	s := &Scorer{extractor: extractor, classifier: classifier, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ModelVersion reports the version of the wrapped classifier.
func (s *Scorer) ModelVersion() string {
	return s.classifier.Version()
}

// Score produces the verdict for a single listing.
func (s *Scorer) Score(ctx context.Context, l *models.Listing) (*models.ScoredListing, error) {
	start := time.Now()

	fv, err := s.extractor.Extract(l)
	if err != nil {
		return nil, err
	}
	verdict, err := s.verdict(ctx, l, fv)
	if err != nil {
		return nil, err
	}
	return s.scored(l, fv, verdict, time.Since(start)), nil
}

// ScoreBatch scores listings in order. Features are extracted in parallel.
func (s *Scorer) ScoreBatch(ctx context.Context, listings []*models.Listing) ([]*models.ScoredListing, error) {
	start := time.Now()

	vectors, err := s.extractor.ExtractBatch(listings, s.workers)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ScoredListing, len(listings))
	for i, l := range listings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verdict, err := s.verdict(ctx, l, vectors[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = s.scored(l, vectors[i], verdict, 0)
	}

	elapsed := time.Since(start)
	if len(out) > 0 {
		per := elapsed / time.Duration(len(out))
		for _, sl := range out {
			sl.ProcessingTime = per
		}
	}
	s.logger.Debug("[scorer] Scored %d listings in %v", len(out), elapsed)
	return out, nil
}

func (s *Scorer) verdict(ctx context.Context, l *models.Listing, fv models.FeatureVector) (models.Verdict, error) {
	key := ""
	if s.cache != nil {
		key = s.cacheKey(l)
		cached, ok, err := s.cache.GetVerdict(ctx, key)
		if err != nil {
			s.logger.Warn("[scorer] Cache read failed: %v", err)
		} else if ok {
			return *cached, nil
		}
	}

	p, err := s.classifier.PredictProba(fv.Values())
	if err != nil {
		return models.Verdict{}, fmt.Errorf("scorer: predict: %w", err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return models.Verdict{}, apperrors.NewModelError("PROBABILITY_OUT_OF_RANGE",
			fmt.Sprintf("classifier returned %v", p))
	}

	var importances map[string]float64
	if src, ok := s.classifier.(ImportanceSource); ok {
		importances = src.Importances()
	}
	verdict := Explain(p, fv, importances)

	if s.cache != nil {
		if err := s.cache.SetVerdict(ctx, key, &verdict); err != nil {
			s.logger.Warn("[scorer] Cache write failed: %v", err)
		}
	}
	return verdict, nil
}

func (s *Scorer) scored(l *models.Listing, fv models.FeatureVector, v models.Verdict, took time.Duration) *models.ScoredListing {
	return &models.ScoredListing{
		ID:             uuid.New(),
		Listing:        l,
		Features:       fv,
		Verdict:        v,
		ModelVersion:   s.classifier.Version(),
		CreatedAt:      time.Now().UTC(),
		ProcessingTime: took,
	}
}

// cacheKey scopes a listing's fingerprint to the model and policy that
// produced the verdict.
func (s *Scorer) cacheKey(l *models.Listing) string {
	return s.classifier.Version() + ":" + s.extractor.PolicyID() + ":" + Fingerprint(l)
}

// Fingerprint identifies a listing by the hash of its JSON form.
func Fingerprint(l *models.Listing) string {
	data, _ := json.Marshal(l)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
