package rules

import (
	"fmt"
	"time"
)

type Category string

const (
	CategoryReview         Category = "review"
	CategoryCompanyContent Category = "company_content"
	CategorySocialPost     Category = "social_post"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryReview, CategoryCompanyContent, CategorySocialPost:
		return true
	}
	return false
}

// Tier is alert severity, 1 being the most severe.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

func (t Tier) Valid() bool {
	return t >= Tier1 && t <= Tier3
}

func (t Tier) String() string {
	return fmt.Sprintf("tier%d", int(t))
}

// Buckets route alerts downstream. They take no part in decisions.
const (
	BucketCustomerVoice   = "customer-voice"
	BucketMarketing       = "marketing"
	BucketProduct         = "product"
	BucketCompanyActivity = "company-activity"
)

// Item is one summarized content record.
type Item struct {
	ID          string            `json:"id"`
	CompanyID   string            `json:"company_id"`
	CompanyName string            `json:"company_name"`
	Category    Category          `json:"category"`
	SourceType  string            `json:"source_type"`
	Gist        string            `json:"gist"`
	Bullets     []string          `json:"bullets,omitempty"`
	Rating      *float64          `json:"rating,omitempty"`
	URL         string            `json:"url"`
	RawContent  string            `json:"raw_content,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Likes       int               `json:"likes"`
	Comments    int               `json:"comments"`
	Shares      int               `json:"shares"`
	ObservedAt  time.Time         `json:"observed_at"`
}

func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if i.CompanyID == "" {
		return fmt.Errorf("item %s: company id is required", i.ID)
	}
	if !i.Category.Valid() {
		return fmt.Errorf("item %s: unknown category %q", i.ID, i.Category)
	}
	if i.ObservedAt.IsZero() {
		return fmt.Errorf("item %s: observed_at is required", i.ID)
	}
	if i.Rating != nil && *i.Rating < 0 {
		return fmt.Errorf("item %s: rating must be non-negative", i.ID)
	}
	if i.Likes < 0 || i.Comments < 0 || i.Shares < 0 {
		return fmt.Errorf("item %s: engagement counts must be non-negative", i.ID)
	}
	return nil
}

// Candidate is one typed observation a rule proposes for an item.
type Candidate struct {
	Type       string  `json:"type"`
	Tier       Tier    `json:"tier"`
	Topic      string  `json:"topic"`
	Blurb      string  `json:"blurb"`
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence"`
}

type Alert struct {
	ID          string         `json:"id"`
	CompanyID   string         `json:"company_id"`
	CompanyName string         `json:"company_name"`
	Bucket      string         `json:"bucket"`
	Chip        string         `json:"chip"`
	Tier        Tier           `json:"tier"`
	Title       string         `json:"title"`
	SourceURL   string         `json:"source_url"`
	ObservedAt  time.Time      `json:"observed_at"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	ItemID      string         `json:"item_id"`
	Rule        string         `json:"rule"`
}
