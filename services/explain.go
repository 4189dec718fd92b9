package services

import (
	"sort"

	"listing-fraud-detector/models"
)

const (
	suspiciousThreshold = 0.4
	highRiskThreshold   = 0.7
	maxExplanation      = 5
)

// Label maps a fraud probability to its risk band.
func Label(score float64) models.Label {
	switch {
	case score < suspiciousThreshold:
		return models.LabelSafe
	case score < highRiskThreshold:
		return models.LabelSuspicious
	default:
		return models.LabelHighRisk
	}
}

// UniformImportances weights every feature of fv equally.
func UniformImportances(fv models.FeatureVector) map[string]float64 {
	weights := make(map[string]float64, len(fv))
	if len(fv) == 0 {
		return weights
	}
	w := 1 / float64(len(fv))
	for name := range fv {
		weights[name] = w
	}
	return weights
}

// Explain builds the verdict for a probability. Each feature present in both
// fv and importances contributes value*weight; the five largest are kept,
// ties ordered by feature name. An empty importances map means uniform weights.
func Explain(score float64, fv models.FeatureVector, importances map[string]float64) models.Verdict {
	if len(importances) == 0 {
		importances = UniformImportances(fv)
	}

	contributions := make([]models.Contribution, 0, len(importances))
	for name, weight := range importances {
		value, ok := fv[name]
		if !ok {
			continue
		}
		contributions = append(contributions, models.Contribution{Feature: name, Contribution: value * weight})
	}

	sort.Slice(contributions, func(i, j int) bool {
		if contributions[i].Contribution != contributions[j].Contribution {
			return contributions[i].Contribution > contributions[j].Contribution
		}
		return contributions[i].Feature < contributions[j].Feature
	})
	if len(contributions) > maxExplanation {
		contributions = contributions[:maxExplanation]
	}
	for i := range contributions {
		contributions[i].Contribution = clamp01(contributions[i].Contribution)
	}

	return models.Verdict{
		Score:       score,
		Label:       Label(score),
		Explanation: contributions,
	}
}
