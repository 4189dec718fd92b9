package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"listing-fraud-detector/apperrors"
)

// PriceRange is the expected (low, high) price band of a category.
type PriceRange struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Median is the midpoint of the band.
func (r PriceRange) Median() float64 {
	return (r.Low + r.High) / 2
}

// Policy holds the keyword lists and price profiles the feature engine reads.
// It is treated as immutable once validated.
type Policy struct {
	SuspiciousWords        []string              `yaml:"suspicious_words"`
	GenericSellerNames     []string              `yaml:"generic_seller_names"`
	OfficialSellerKeywords []string              `yaml:"official_seller_keywords"`
	CategoryPrices         map[string]PriceRange `yaml:"category_prices"`
	DefaultRange           PriceRange            `yaml:"default_range"`
}

// Default returns the built-in policy tables.
func Default() *Policy {
	return &Policy{
		SuspiciousWords: []string{
			"free", "wow", "amazing", "unbelievable", "guaranteed",
			"limited", "urgent", "act now", "exclusive", "secret",
			"fake", "replica", "copy", "counterfeit", "imitation",
		},
		// "store" appears in both seller lists.
		GenericSellerNames:     []string{"seller", "shop", "store", "mall", "market", "trader"},
		OfficialSellerKeywords: []string{"official", "authentic", "direct", "store", "brand"},
		CategoryPrices: map[string]PriceRange{
			"electronics": {Low: 200, High: 2000},
			"clothing":    {Low: 10, High: 200},
			"jewelry":     {Low: 50, High: 5000},
			"watches":     {Low: 100, High: 10000},
			"books":       {Low: 5, High: 50},
		},
		DefaultRange: PriceRange{Low: 1, High: 10000},
	}
}

// Load reads a YAML policy file. Tables missing from the file keep their
// defaults; the merged result is validated before it is returned.
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, p.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("POLICY_UNREADABLE", "cannot read policy file").
			WithField(path).WithCause(err)
	}

	var override Policy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, apperrors.NewConfigurationError("POLICY_MALFORMED", "cannot parse policy file").
			WithField(path).WithCause(err)
	}

	if override.SuspiciousWords != nil {
		p.SuspiciousWords = override.SuspiciousWords
	}
	if override.GenericSellerNames != nil {
		p.GenericSellerNames = override.GenericSellerNames
	}
	if override.OfficialSellerKeywords != nil {
		p.OfficialSellerKeywords = override.OfficialSellerKeywords
	}
	if override.CategoryPrices != nil {
		p.CategoryPrices = override.CategoryPrices
	}
	if override.DefaultRange != (PriceRange{}) {
		p.DefaultRange = override.DefaultRange
	}

	p.normalise()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects empty keyword lists and unusable price bands.
func (p *Policy) Validate() error {
	lists := []struct {
		name  string
		words []string
	}{
		{"suspicious_words", p.SuspiciousWords},
		{"generic_seller_names", p.GenericSellerNames},
		{"official_seller_keywords", p.OfficialSellerKeywords},
	}
	for _, l := range lists {
		if len(l.words) == 0 {
			return apperrors.NewConfigurationError("EMPTY_KEYWORD_LIST", "keyword list is empty").WithField(l.name)
		}
		for _, w := range l.words {
			if strings.TrimSpace(w) == "" {
				return apperrors.NewConfigurationError("BLANK_KEYWORD", "keyword list contains a blank entry").WithField(l.name)
			}
			// Keywords are matched against lower-cased listing text.
			if w != strings.ToLower(w) {
				return apperrors.NewConfigurationError("KEYWORD_NOT_LOWERCASE",
					fmt.Sprintf("keyword %q must be lower-case", w)).WithField(l.name)
			}
		}
	}

	if len(p.CategoryPrices) == 0 {
		return apperrors.NewConfigurationError("EMPTY_PRICE_TABLE", "category price table is empty").WithField("category_prices")
	}
	for category, r := range p.CategoryPrices {
		if category != strings.ToLower(strings.TrimSpace(category)) {
			return apperrors.NewConfigurationError("CATEGORY_NOT_NORMALISED",
				fmt.Sprintf("category %q must be lower-case without surrounding spaces", category)).
				WithField("category_prices")
		}
		if err := checkRange(r); err != nil {
			return err.WithField("category_prices." + category)
		}
	}
	if err := checkRange(p.DefaultRange); err != nil {
		return err.WithField("default_range")
	}
	return nil
}

// Range returns the band for a category, or the default band when unknown.
// The lookup is exact: "Electronics" is not "electronics".
func (p *Policy) Range(category string) PriceRange {
	if r, ok := p.CategoryPrices[category]; ok {
		return r
	}
	return p.DefaultRange
}

// Fingerprint identifies the policy's contents. Two policies with the same
// tables share a fingerprint.
func (p *Policy) Fingerprint() string {
	// yaml.v3 emits map keys in sorted order.
	data, err := yaml.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func checkRange(r PriceRange) *apperrors.AppError {
	if r.Low < 0 || r.High <= 0 || r.Low > r.High {
		return apperrors.NewConfigurationError("INVALID_PRICE_RANGE",
			fmt.Sprintf("price range (%.2f, %.2f) is invalid", r.Low, r.High))
	}
	return nil
}

// normalise lower-cases keywords and category names so lookups match the
// lower-cased listing text.
func (p *Policy) normalise() {
	lower := func(words []string) []string {
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = strings.ToLower(w)
		}
		return out
	}
	p.SuspiciousWords = lower(p.SuspiciousWords)
	p.GenericSellerNames = lower(p.GenericSellerNames)
	p.OfficialSellerKeywords = lower(p.OfficialSellerKeywords)

	prices := make(map[string]PriceRange, len(p.CategoryPrices))
	for k, v := range p.CategoryPrices {
		prices[strings.ToLower(strings.TrimSpace(k))] = v
	}
	p.CategoryPrices = prices
}
