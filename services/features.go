package services

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
	"listing-fraud-detector/policy"
)

// Feature names. The canonical vector order is ascending by name.
const (
	FeatDescriptionHasURL        = "description_has_url"
	FeatDescriptionLength        = "description_length_normalized"
	FeatExclamationMarks         = "exclamation_marks"
	FeatGenericSellerName        = "generic_seller_name"
	FeatManyImages               = "many_images"
	FeatNoImages                 = "no_images"
	FeatOfficialSellerIndicator  = "official_seller_indicator"
	FeatPerfectRatingLowReviews  = "perfect_rating_low_reviews"
	FeatPriceDeviationFromMedian = "price_deviation_from_median"
	FeatPriceSuspiciouslyHigh    = "price_suspiciously_high"
	FeatPriceSuspiciouslyLow     = "price_suspiciously_low"
	FeatRatingNormalized         = "rating_normalized"
	FeatReviewRatingRatioAnomaly = "review_rating_ratio_anomaly"
	FeatSellerNameDigitRatio     = "seller_name_digit_ratio"
	FeatSuspiciousWordsInTitle   = "suspicious_words_in_title"
	FeatTitleCapsRatio           = "title_caps_ratio"
	FeatTitleLength              = "title_length_normalized"
	FeatTitleSpecialCharDensity  = "title_special_char_density"
	FeatVeryFewImages            = "very_few_images"
	FeatVeryLowRating            = "very_low_rating"
	FeatZeroReviews              = "zero_reviews"
)

// FeatureNames lists every feature in canonical order.
var FeatureNames = []string{
	FeatDescriptionHasURL,
	FeatDescriptionLength,
	FeatExclamationMarks,
	FeatGenericSellerName,
	FeatManyImages,
	FeatNoImages,
	FeatOfficialSellerIndicator,
	FeatPerfectRatingLowReviews,
	FeatPriceDeviationFromMedian,
	FeatPriceSuspiciouslyHigh,
	FeatPriceSuspiciouslyLow,
	FeatRatingNormalized,
	FeatReviewRatingRatioAnomaly,
	FeatSellerNameDigitRatio,
	FeatSuspiciousWordsInTitle,
	FeatTitleCapsRatio,
	FeatTitleLength,
	FeatTitleSpecialCharDensity,
	FeatVeryFewImages,
	FeatVeryLowRating,
	FeatZeroReviews,
}

const (
	suspiciousWordSaturation = 3.0
	specialCharSaturation    = 0.1
	exclamationSaturation    = 2.0
	titleLengthCap           = 100.0
	descriptionLengthCap     = 500.0

	lowPriceFactor  = 0.3
	highPriceFactor = 2.0

	perfectRating  = 4.9
	fewReviews     = 10
	veryLowRating  = 2.0
	reviewsPerStar = 1000.0
	maxRating      = 5.0
	fewImages      = 2
	manyImages     = 10
)

// Extractor turns a validated listing into a FeatureVector. It holds only
// read-only policy tables and is safe for concurrent use.
type Extractor struct {
	policy   *policy.Policy
	policyID string
}

// NewExtractor validates the policy tables and returns an Extractor.
func NewExtractor(p *policy.Policy) (*Extractor, error) {
	if p == nil {
		return nil, apperrors.NewConfigurationError("MISSING_POLICY", "policy tables are required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{policy: p, policyID: p.Fingerprint()}, nil
}

// PolicyID identifies the policy tables the extractor was built with.
func (e *Extractor) PolicyID() string {
	return e.policyID
}

// Extract computes the full feature vector for one listing.
func (e *Extractor) Extract(l *models.Listing) (models.FeatureVector, error) {
	if err := checkShape(l); err != nil {
		return nil, err
	}

	fv := make(models.FeatureVector, len(FeatureNames))
	e.textFeatures(l, fv)
	e.priceFeatures(l, fv)
	ratingFeatures(l, fv)
	e.sellerFeatures(l, fv)
	imageFeatures(l, fv)
	return fv, nil
}

func checkShape(l *models.Listing) error {
	if l == nil {
		return apperrors.NewInputShapeError("NIL_LISTING", "listing is nil")
	}
	if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
		return apperrors.NewInputShapeError("NON_FINITE_VALUE", "price is not a finite number").WithField("price")
	}
	if math.IsNaN(l.Rating) || math.IsInf(l.Rating, 0) {
		return apperrors.NewInputShapeError("NON_FINITE_VALUE", "rating is not a finite number").WithField("rating")
	}
	return nil
}

func (e *Extractor) textFeatures(l *models.Listing, fv models.FeatureVector) {
	title := strings.ToLower(l.Title)
	description := strings.ToLower(l.Description)
	titleLen := utf8.RuneCountInString(title)

	words := 0
	for _, w := range e.policy.SuspiciousWords {
		if strings.Contains(title, w) {
			words++
		}
	}
	fv[FeatSuspiciousWordsInTitle] = clamp01(float64(words) / suspiciousWordSaturation)

	// Like the rest of the text family, counted on the lower-cased title.
	upper, special := 0, 0
	for _, r := range title {
		if unicode.IsUpper(r) {
			upper++
		}
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != ' ' {
			special++
		}
	}
	fv[FeatTitleCapsRatio] = ratio(upper, titleLen)
	fv[FeatTitleSpecialCharDensity] = clamp01(float64(special) / float64(max(titleLen, 1)) / specialCharSaturation)

	fv[FeatExclamationMarks] = clamp01(float64(strings.Count(title, "!")) / exclamationSaturation)
	fv[FeatDescriptionHasURL] = flag(strings.Contains(description, "http"))
	fv[FeatTitleLength] = clamp01(float64(titleLen) / titleLengthCap)
	fv[FeatDescriptionLength] = clamp01(float64(utf8.RuneCountInString(description)) / descriptionLengthCap)
}

func (e *Extractor) priceFeatures(l *models.Listing, fv models.FeatureVector) {
	band := e.policy.Range(l.Category)
	median := band.Median()

	deviation := 0.0
	if median > 0 {
		deviation = clamp01(math.Abs(l.Price-median) / median)
	}
	fv[FeatPriceDeviationFromMedian] = deviation
	fv[FeatPriceSuspiciouslyLow] = flag(l.Price < band.Low*lowPriceFactor)
	fv[FeatPriceSuspiciouslyHigh] = flag(l.Price > band.High*highPriceFactor)
}

func ratingFeatures(l *models.Listing, fv models.FeatureVector) {
	fv[FeatPerfectRatingLowReviews] = flag(l.Rating >= perfectRating && l.ReviewCount < fewReviews)
	fv[FeatVeryLowRating] = flag(l.Rating < veryLowRating)

	anomaly := 0.0
	if l.ReviewCount > 0 {
		var r float64
		if l.Rating > 0 {
			r = float64(l.ReviewCount) / (l.Rating * reviewsPerStar)
		} else {
			r = float64(l.ReviewCount) / reviewsPerStar
		}
		anomaly = clamp01(math.Abs(1-r) / 2)
	}
	fv[FeatReviewRatingRatioAnomaly] = anomaly
	fv[FeatZeroReviews] = flag(l.ReviewCount == 0)
	fv[FeatRatingNormalized] = clamp01(l.Rating / maxRating)
}

func (e *Extractor) sellerFeatures(l *models.Listing, fv models.FeatureVector) {
	seller := strings.ToLower(l.Seller)

	fv[FeatGenericSellerName] = flag(containsAny(seller, e.policy.GenericSellerNames))
	fv[FeatOfficialSellerIndicator] = flag(containsAny(seller, e.policy.OfficialSellerKeywords))

	digits := 0
	for _, r := range seller {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	fv[FeatSellerNameDigitRatio] = ratio(digits, utf8.RuneCountInString(seller))
}

func imageFeatures(l *models.Listing, fv models.FeatureVector) {
	n := len(l.Images)
	fv[FeatNoImages] = flag(n == 0)
	fv[FeatVeryFewImages] = flag(n < fewImages)
	fv[FeatManyImages] = flag(n > manyImages)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ratio returns n/total clamped to [0, 1], with an empty total counting as 1.
func ratio(n, total int) float64 {
	return clamp01(float64(n) / float64(max(total, 1)))
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
