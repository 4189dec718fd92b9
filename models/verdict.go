package models

import (
	"time"

	"github.com/google/uuid"
)

// Label is the risk band a score falls into.
type Label string

const (
	LabelSafe       Label = "safe"
	LabelSuspicious Label = "suspicious"
	LabelHighRisk   Label = "high_risk"
)

// Flagged reports whether the label marks a listing for review.
func (l Label) Flagged() bool {
	return l == LabelSuspicious || l == LabelHighRisk
}

// Contribution is one entry of a verdict explanation.
type Contribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}

// Verdict is the explainable outcome for one listing.
type Verdict struct {
	Score       float64        `json:"score"`
	Label       Label          `json:"label"`
	Explanation []Contribution `json:"explanation"`
}

// ScoredListing is a listing together with its features and verdict.
type ScoredListing struct {
	ID             uuid.UUID
	Listing        *Listing
	Features       FeatureVector
	Verdict        Verdict
	ModelVersion   string
	IsFake         *bool
	CreatedAt      time.Time
	ProcessingTime time.Duration
}

// VerdictRecord is the persisted form of a ScoredListing.
type VerdictRecord struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	Seller       string         `json:"seller"`
	Category     string         `json:"category"`
	Country      string         `json:"country"`
	Price        float64        `json:"price"`
	Score        float64        `json:"score"`
	Label        Label          `json:"label"`
	Explanation  []Contribution `json:"explanation"`
	ModelVersion string         `json:"model_version"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Record flattens a ScoredListing for storage.
func (s *ScoredListing) Record() *VerdictRecord {
	return &VerdictRecord{
		ID:           s.ID,
		Title:        s.Listing.Title,
		Seller:       s.Listing.Seller,
		Category:     s.Listing.Category,
		Country:      s.Listing.Country,
		Price:        s.Listing.Price,
		Score:        s.Verdict.Score,
		Label:        s.Verdict.Label,
		Explanation:  s.Verdict.Explanation,
		ModelVersion: s.ModelVersion,
		CreatedAt:    s.CreatedAt,
	}
}

// RiskReport holds the computed analytics over a scored batch.
type RiskReport struct {
	TotalListings      int
	LabelCounts        map[Label]int
	AverageScore       float64
	MinScore           float64
	MaxScore           float64
	Riskiest           []*ScoredListing
	FlaggedByCategory  map[string]int
	LabeledFakes       int
	LabeledFakesCaught int
	LabeledGenuine     int
	LabeledGenuineSafe int
}
