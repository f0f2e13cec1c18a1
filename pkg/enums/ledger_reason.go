package enums

import "fmt"

// LedgerReason maps to the ledger_reason_enum enum in Postgres.
type LedgerReason string

const (
	LedgerReasonUploadReward      LedgerReason = "upload_reward"
	LedgerReasonClaimCost         LedgerReason = "claim_cost"
	LedgerReasonBoostCost         LedgerReason = "boost_cost"
	LedgerReasonDailyBonus        LedgerReason = "daily_bonus"
	LedgerReasonAchievementReward LedgerReason = "achievement_reward"
	LedgerReasonAdjustment        LedgerReason = "adjustment"
)

var validLedgerReasons = []LedgerReason{
	LedgerReasonUploadReward,
	LedgerReasonClaimCost,
	LedgerReasonBoostCost,
	LedgerReasonDailyBonus,
	LedgerReasonAchievementReward,
	LedgerReasonAdjustment,
}

// IsValid reports whether the value matches the canonical ledger reason enum.
func (r LedgerReason) IsValid() bool {
	for _, candidate := range validLedgerReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseLedgerReason converts raw input into LedgerReason.
func ParseLedgerReason(value string) (LedgerReason, error) {
	for _, candidate := range validLedgerReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger reason %q", value)
}
