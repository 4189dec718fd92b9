package services

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
	"listing-fraud-detector/utils"
)

var (
	// currencyRegexp matches a leading currency symbol or ISO code such as "$" or "USD "
	currencyRegexp = regexp.MustCompile(`^(?:\p{Sc}|[A-Z]{3}\s?)`)
	// amountRegexp matches a whole amount, with optional thousands separators
	amountRegexp = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?$`)
	// ratingRegexp captures a numeric rating in the 0.0–5.0 range
	ratingRegexp = regexp.MustCompile(`\b([0-5](?:\.\d{1,2})?)\b`)
	// countRegexp captures an integer such as "1,204 reviews"
	countRegexp = regexp.MustCompile(`\d[\d,]*`)
)

// Cleaner validates RawListings and turns them into Listings.
type Cleaner struct {
	logger   *utils.Logger
	validate *validator.Validate
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, validate: validator.New()}
}

// Clean parses every raw listing, dropping rows that fail validation and
// repeated URLs.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.LabeledListing {
	seen := utils.NewSeenSet()
	result := make([]*models.LabeledListing, 0, len(raw))

	for i, r := range raw {
		if url := strings.TrimSpace(r.URL); url != "" && !seen.Add(url) {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			continue
		}

		listing, err := c.Parse(r)
		if err != nil {
			c.logger.Warn("[cleaner] Dropping row %d (%q): %v", i, r.Title, err)
			continue
		}

		isFake, err := parseLabel(r.RawLabel)
		if err != nil {
			c.logger.Warn("[cleaner] Dropping row %d (%q): %v", i, r.Title, err)
			continue
		}

		result = append(result, &models.LabeledListing{Listing: listing, IsFake: isFake})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// Parse converts one raw listing, returning a validation error that names
// the first bad field. Text fields are kept verbatim so a row yields the same
// Listing the inference API would build from the equivalent JSON body.
func (c *Cleaner) Parse(r *models.RawListing) (*models.Listing, error) {
	if r == nil {
		return nil, apperrors.NewValidationError("EMPTY_ROW", "listing row is empty")
	}

	price, ok := parsePrice(r.RawPrice)
	if !ok {
		return nil, apperrors.NewValidationError("INVALID_PRICE", "price is missing or not a number").WithField("price")
	}
	rating, ok := parseRating(r.RawRating)
	if !ok {
		return nil, apperrors.NewValidationError("INVALID_RATING", "rating must be between 0 and 5").WithField("rating")
	}
	reviews, ok := parseCount(r.RawReviewCount)
	if !ok {
		return nil, apperrors.NewValidationError("INVALID_REVIEW_COUNT", "review count is not a whole number").WithField("review_count")
	}

	listing := &models.Listing{
		Title:       r.Title,
		Description: r.Description,
		Price:       price,
		Seller:      r.Seller,
		Rating:      rating,
		ReviewCount: reviews,
		Category:    r.Category,
		Country:     r.Country,
		Images:      r.Images,
		URL:         strings.TrimSpace(r.URL),
	}

	if err := c.Validate(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Validate checks the struct constraints of an already-typed listing.
func (c *Cleaner) Validate(l *models.Listing) error {
	err := c.validate.Struct(l)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError("INVALID_FIELD",
			"failed "+fe.Tag()+" check").WithField(jsonName(fe.Field())).WithCause(err)
	}
	return apperrors.NewValidationError("INVALID_LISTING", "listing failed validation").WithCause(err)
}

// parsePrice reads an amount such as "$1,299.99", "USD 45" or "฿3,500".
// Anything other than one optional currency prefix followed by a single
// positive number is rejected, signs included.
func parsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if strings.ContainsAny(s, "+-") {
		return 0, false
	}
	s = strings.TrimSpace(currencyRegexp.ReplaceAllString(s, ""))
	if !amountRegexp.MatchString(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	// strconv yields the same float64 the JSON decoder does.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseRating extracts a 0.0–5.0 rating. A blank value means unrated.
func parseRating(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, v >= 0 && v <= 5
	}
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0, false
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// parseCount extracts a non-negative integer. A blank value counts as zero.
func parseCount(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	if strings.HasPrefix(raw, "-") {
		return 0, false
	}
	match := countRegexp.FindString(raw)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseLabel reads the optional ground-truth column.
func parseLabel(raw string) (*bool, error) {
	var v bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "1", "true", "fake", "yes":
		v = true
	case "0", "false", "genuine", "real", "no":
		v = false
	default:
		return nil, apperrors.NewValidationError("INVALID_LABEL", "label must be 0/1 or true/false").WithField("is_fake")
	}
	return &v, nil
}

func jsonName(field string) string {
	switch field {
	case "ReviewCount":
		return "review_count"
	default:
		return strings.ToLower(field)
	}
}
