package services

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"slices"
	"sync"

	"listing-fraud-detector/apperrors"
)

// ScoreClassifier returns a fraud probability for a feature row given in
// canonical column order.
type ScoreClassifier interface {
	PredictProba(values []float64) (float64, error)
	Version() string
}

// ImportanceSource is implemented by classifiers that learned per-feature
// importances.
type ImportanceSource interface {
	Importances() map[string]float64
}

// MockClassifier stands in for a trained model. It returns pseudo-random
// probabilities and exposes no importances.
type MockClassifier struct {
	mu      sync.Mutex
	rng     *rand.Rand
	version string
}

// NewMockClassifier seeds the random source so runs can be reproduced.
func NewMockClassifier(seed int64, version string) *MockClassifier {
	return &MockClassifier{rng: rand.New(rand.NewSource(seed)), version: version}
}

func (m *MockClassifier) PredictProba(values []float64) (float64, error) {
	if len(values) != len(FeatureNames) {
		return 0, apperrors.NewModelError("FEATURE_COUNT_MISMATCH",
			fmt.Sprintf("expected %d features, got %d", len(FeatureNames), len(values)))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64(), nil
}

func (m *MockClassifier) Version() string { return m.version }

// LinearModel is a logistic regression over standardised features, loaded
// from a JSON artifact.
type LinearModel struct {
	ModelVersion string             `json:"version"`
	FeatureNames []string           `json:"feature_names"`
	Weights      []float64          `json:"weights"`
	Bias         float64            `json:"bias"`
	Mean         []float64          `json:"mean"`
	Scale        []float64          `json:"scale"`
	Weighting    map[string]float64 `json:"importances"`
}

// LoadLinearModel reads and checks a model artifact. The artifact's column
// order must equal FeatureNames exactly.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("MODEL_UNREADABLE", "cannot read model artifact").
			WithField(path).WithCause(err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewConfigurationError("MODEL_MALFORMED", "cannot parse model artifact").
			WithField(path).WithCause(err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LinearModel) check() error {
	if !slices.Equal(m.FeatureNames, FeatureNames) {
		return apperrors.NewConfigurationError("FEATURE_ORDER_MISMATCH",
			"model feature_names do not match the extractor's column order")
	}
	n := len(FeatureNames)
	if len(m.Weights) != n {
		return apperrors.NewConfigurationError("WEIGHT_COUNT_MISMATCH",
			fmt.Sprintf("expected %d weights, got %d", n, len(m.Weights)))
	}
	if m.Mean != nil && len(m.Mean) != n {
		return apperrors.NewConfigurationError("SCALER_MISMATCH", "mean has the wrong length")
	}
	if m.Scale != nil && len(m.Scale) != n {
		return apperrors.NewConfigurationError("SCALER_MISMATCH", "scale has the wrong length")
	}
	if m.ModelVersion == "" {
		m.ModelVersion = "linear"
	}
	return nil
}

func (m *LinearModel) PredictProba(values []float64) (float64, error) {
	if len(values) != len(m.Weights) {
		return 0, apperrors.NewModelError("FEATURE_COUNT_MISMATCH",
			fmt.Sprintf("expected %d features, got %d", len(m.Weights), len(values)))
	}

	z := m.Bias
	for i, x := range values {
		if m.Mean != nil {
			x -= m.Mean[i]
		}
		if m.Scale != nil && m.Scale[i] != 0 {
			x /= m.Scale[i]
		}
		z += m.Weights[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (m *LinearModel) Version() string { return m.ModelVersion }

// Importances returns the artifact's importances, or normalised absolute
// weights when the artifact has none.
func (m *LinearModel) Importances() map[string]float64 {
	if len(m.Weighting) > 0 {
		return m.Weighting
	}

	total := 0.0
	for _, w := range m.Weights {
		total += math.Abs(w)
	}
	out := make(map[string]float64, len(m.Weights))
	if total == 0 {
		return out
	}
	for i, name := range m.FeatureNames {
		out[name] = math.Abs(m.Weights[i]) / total
	}
	return out
}
