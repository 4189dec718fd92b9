package models

import "time"

// RawListing holds unprocessed listing data as read from a dataset CSV or
// collected from a product page. Every field is kept as text until the
// cleaner validates it.
type RawListing struct {
	Title          string
	Description    string
	RawPrice       string
	Seller         string
	RawRating      string
	RawReviewCount string
	Category       string
	Country        string
	Images         []string
	URL            string
	RawLabel       string
	ScrapedAt      time.Time
	Source         string
}

// Listing is a validated product listing, the only input the feature engine accepts.
type Listing struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gt=0"`
	Seller      string   `json:"seller" validate:"required"`
	Rating      float64  `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount int      `json:"review_count" validate:"gte=0"`
	Category    string   `json:"category" validate:"required"`
	Country     string   `json:"country" validate:"required"`
	Images      []string `json:"images"`
	URL         string   `json:"url,omitempty"`
}

// LabeledListing pairs a listing with its ground-truth label, when known.
type LabeledListing struct {
	Listing *Listing
	IsFake  *bool
}

// ListingRequest is the JSON body accepted by the inference API. Numeric
// fields are pointers so an absent value is distinguishable from zero.
type ListingRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required,gt=0"`
	Seller      string   `json:"seller" binding:"required"`
	Rating      *float64 `json:"rating" binding:"required,gte=0,lte=5"`
	ReviewCount *int     `json:"review_count" binding:"required,gte=0"`
	Category    string   `json:"category" binding:"required"`
	Country     string   `json:"country" binding:"required"`
	Images      []string `json:"images"`
}

// ToListing converts a bound request into a Listing.
func (r *ListingRequest) ToListing() *Listing {
	l := &Listing{
		Title:       r.Title,
		Description: r.Description,
		Seller:      r.Seller,
		Category:    r.Category,
		Country:     r.Country,
		Images:      r.Images,
	}
	if r.Price != nil {
		l.Price = *r.Price
	}
	if r.Rating != nil {
		l.Rating = *r.Rating
	}
	if r.ReviewCount != nil {
		l.ReviewCount = *r.ReviewCount
	}
	return l
}
