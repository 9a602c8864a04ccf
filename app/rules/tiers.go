package rules

type Polarity int

const (
	Neutral Polarity = iota
	Negative
	Positive
)

type RatingBucket int

const (
	RatingNone RatingBucket = iota
	RatingLow
	RatingMid
	RatingHigh
)

// Rating bucket bounds on a five star scale.
const (
	lowRatingMax  = 2.0
	highRatingMin = 4.0
)

func RatingBucketOf(rating *float64) RatingBucket {
	switch {
	case rating == nil:
		return RatingNone
	case *rating <= lowRatingMax:
		return RatingLow
	case *rating >= highRatingMin:
		return RatingHigh
	default:
		return RatingMid
	}
}

type ConfidenceBucket int

const (
	ConfidenceLow ConfidenceBucket = iota
	ConfidenceHigh
)

func ConfidenceBucketOf(confidence, highThreshold float64) ConfidenceBucket {
	if confidence >= highThreshold {
		return ConfidenceHigh
	}
	return ConfidenceLow
}

type adjustKey struct {
	polarity   Polarity
	rating     RatingBucket
	confidence ConfidenceBucket
}

// tierAdjustments maps a declared tier (index 0 for tier 1) to the adjusted
// one. Combinations not listed keep the declared tier.
var tierAdjustments = map[adjustKey][3]Tier{
	// low ratings promote negative observations
	{Negative, RatingLow, ConfidenceLow}:  {Tier1, Tier1, Tier2},
	{Negative, RatingLow, ConfidenceHigh}: {Tier1, Tier1, Tier1},
	{Negative, RatingMid, ConfidenceLow}:  {Tier1, Tier2, Tier3},
	{Negative, RatingMid, ConfidenceHigh}: {Tier1, Tier2, Tier3},
	// high ratings demote them unless the model is sure
	{Negative, RatingHigh, ConfidenceLow}:  {Tier2, Tier3, Tier3},
	{Negative, RatingHigh, ConfidenceHigh}: {Tier1, Tier2, Tier3},

	// low ratings demote positive observations
	{Positive, RatingLow, ConfidenceLow}:   {Tier2, Tier3, Tier3},
	{Positive, RatingLow, ConfidenceHigh}:  {Tier2, Tier3, Tier3},
	{Positive, RatingMid, ConfidenceLow}:   {Tier1, Tier2, Tier3},
	{Positive, RatingMid, ConfidenceHigh}:  {Tier1, Tier2, Tier3},
	{Positive, RatingHigh, ConfidenceLow}:  {Tier1, Tier2, Tier3},
	{Positive, RatingHigh, ConfidenceHigh}: {Tier1, Tier2, Tier3},
}

// AdjustTier applies the rating and confidence adjustment to a declared
// tier. Out of range tiers are treated as tier 3.
func AdjustTier(polarity Polarity, declared Tier, rating RatingBucket, confidence ConfidenceBucket) Tier {
	if !declared.Valid() {
		declared = Tier3
	}
	row, ok := tierAdjustments[adjustKey{polarity, rating, confidence}]
	if !ok {
		return declared
	}
	return row[declared-1]
}
