package rules

import "strings"

// Observation types.
const (
	TypeComplaint      = "complaint"
	TypeFeatureRequest = "feature_request"
	TypePraise         = "praise"

	TypeStrategicMove = "strategic_move"
	TypeFeatureLaunch = "feature_launch"
	TypeRecognition   = "recognition"
)

type ObservationType struct {
	Name        string
	Polarity    Polarity
	Bucket      string
	Chip        string
	Description string
}

// Taxonomy is the closed set of observation types one rule asks the model
// for. Types are listed in priority order, most actionable first.
type Taxonomy struct {
	Rule       string
	Namespace  string
	Categories []Category
	Types      []ObservationType
	// Preemptible rules yield to the low rating rule on very low ratings.
	Preemptible bool
}

func ReviewTaxonomy() Taxonomy {
	return Taxonomy{
		Rule:        "review_observations",
		Namespace:   "review",
		Categories:  []Category{CategoryReview},
		Preemptible: true,
		Types: []ObservationType{
			{TypeComplaint, Negative, BucketCustomerVoice, "complaint", "a concrete problem or frustration customers report"},
			{TypeFeatureRequest, Neutral, BucketProduct, "feature-request", "a capability customers ask for or miss"},
			{TypePraise, Positive, BucketCustomerVoice, "praise", "something customers specifically value"},
		},
	}
}

func ContentTaxonomy() Taxonomy {
	return Taxonomy{
		Rule:       "content_observations",
		Namespace:  "content",
		Categories: []Category{CategoryCompanyContent, CategorySocialPost},
		Types: []ObservationType{
			{TypeStrategicMove, Neutral, BucketCompanyActivity, "strategic-move", "pricing changes, partnerships, acquisitions, new markets, leadership changes"},
			{TypeFeatureLaunch, Neutral, BucketProduct, "feature-launch", "a new product, feature or integration being released"},
			{TypeRecognition, Positive, BucketMarketing, "recognition", "awards, rankings, analyst or press recognition"},
		},
	}
}

// Lookup resolves a model supplied type name, tolerating case, spaces and dashes.
func (t Taxonomy) Lookup(name string) (ObservationType, int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	for i, ot := range t.Types {
		if ot.Name == name {
			return ot, i, true
		}
	}
	return ObservationType{}, 0, false
}

func (t Taxonomy) covers(c Category) bool {
	for _, cat := range t.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// SelectCandidate picks the candidate of the highest priority type, then
// the most severe declared tier, then the earliest in input order.
// Candidates of unknown types are ignored.
func SelectCandidate(t Taxonomy, candidates []Candidate) (Candidate, ObservationType, bool) {
	var (
		best         Candidate
		bestType     ObservationType
		bestPriority int
		found        bool
	)
	for _, c := range candidates {
		ot, priority, ok := t.Lookup(c.Type)
		if !ok {
			continue
		}
		tier := c.Tier
		if !tier.Valid() {
			tier = Tier3
		}
		bestTier := best.Tier
		if !bestTier.Valid() {
			bestTier = Tier3
		}
		if !found || priority < bestPriority || (priority == bestPriority && tier < bestTier) {
			best, bestType, bestPriority, found = c, ot, priority, true
		}
	}
	return best, bestType, found
}
