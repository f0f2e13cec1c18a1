package achievements

import "github.com/dmarcano/couponhive-backend/pkg/enums"

// Stat names a counter the evaluator watches for threshold crossings.
type Stat string

const (
	StatUploads Stat = "uploads"
	StatClaims  Stat = "claims"
	StatPoints  Stat = "points"
)

// Rule awards a one-time reward when a stat crosses its threshold.
// BonusPoints, when non-zero, is credited to the account on grant.
type Rule struct {
	Stat        Stat
	Threshold   int
	RewardID    string
	Kind        enums.RewardKind
	BonusPoints int
}

// DefaultRules is the production rule table. RewardIDs are stable identifiers
// surfaced to clients, never renamed once shipped.
var DefaultRules = []Rule{
	{Stat: StatUploads, Threshold: 1, RewardID: "first_upload", Kind: enums.RewardKindBadge, BonusPoints: 5},
	{Stat: StatUploads, Threshold: 10, RewardID: "prolific_poster", Kind: enums.RewardKindBadge, BonusPoints: 25},
	{Stat: StatUploads, Threshold: 50, RewardID: "deal_machine", Kind: enums.RewardKindAchievement, BonusPoints: 100},
	{Stat: StatClaims, Threshold: 1, RewardID: "first_claim", Kind: enums.RewardKindBadge},
	{Stat: StatClaims, Threshold: 10, RewardID: "bargain_hunter", Kind: enums.RewardKindBadge, BonusPoints: 20},
	{Stat: StatClaims, Threshold: 50, RewardID: "coupon_connoisseur", Kind: enums.RewardKindAchievement, BonusPoints: 75},
	{Stat: StatPoints, Threshold: 500, RewardID: "point_collector", Kind: enums.RewardKindAchievement},
	{Stat: StatPoints, Threshold: 1000, RewardID: "point_hoarder", Kind: enums.RewardKindAchievement},
}
