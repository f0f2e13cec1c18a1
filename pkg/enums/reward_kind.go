package enums

import "fmt"

// RewardKind distinguishes badges from achievements.
type RewardKind string

const (
	RewardKindBadge       RewardKind = "badge"
	RewardKindAchievement RewardKind = "achievement"
)

var validRewardKinds = []RewardKind{
	RewardKindBadge,
	RewardKindAchievement,
}

// IsValid reports whether the value is known.
func (k RewardKind) IsValid() bool {
	for _, candidate := range validRewardKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseRewardKind converts raw input into RewardKind.
func ParseRewardKind(value string) (RewardKind, error) {
	for _, candidate := range validRewardKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward kind %q", value)
}
