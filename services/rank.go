package services

import (
	"time"

	"ze-club/models"
)

// RankTier is one rung of the ladder.
type RankTier struct {
	Name      string
	Icon      string
	Threshold int64
}

// RankTiers is ordered ascending by Threshold.
var RankTiers = []RankTier{
	{Name: "Rookie", Icon: "/ranks/rookie.svg", Threshold: 0},
	{Name: "Contender", Icon: "/ranks/contender.svg", Threshold: 100},
	{Name: "Gladiator", Icon: "/ranks/gladiator.svg", Threshold: 250},
	{Name: "Vanguard", Icon: "/ranks/vanguard.svg", Threshold: 500},
	{Name: "Errorless Legend", Icon: "/ranks/errorless-legend.svg", Threshold: 1000},
}

const (
	RankRookie          = "Rookie"
	RankVanguard        = "Vanguard"
	RankErrorlessLegend = "Errorless Legend"
)

// Rank is the resolved position of an experience value on the ladder.
type Rank struct {
	Name            string `json:"name"`
	Icon            string `json:"icon"`
	Tier            int    `json:"tier"`
	ThresholdLow    int64  `json:"threshold_low"`
	ThresholdHigh   int64  `json:"threshold_high"`
	ProgressPercent int    `json:"progress_percent"`
}

// ResolveRank maps experience to its tier. Negative experience counts as 0.
func ResolveRank(experience int64) Rank {
	if experience < 0 {
		experience = 0
	}

	tier := 0
	for i := len(RankTiers) - 1; i >= 0; i-- {
		if experience >= RankTiers[i].Threshold {
			tier = i
			break
		}
	}

	t := RankTiers[tier]
	r := Rank{
		Name:         t.Name,
		Icon:         t.Icon,
		Tier:         tier,
		ThresholdLow: t.Threshold,
	}

	if tier == len(RankTiers)-1 {
		r.ThresholdHigh = t.Threshold
		r.ProgressPercent = 100
		return r
	}

	r.ThresholdHigh = RankTiers[tier+1].Threshold
	progress := (experience - r.ThresholdLow) * 100 / (r.ThresholdHigh - r.ThresholdLow)
	if progress > 100 {
		progress = 100
	}
	r.ProgressPercent = int(progress)
	return r
}

// RankTierIndex returns the ladder index of a tier name, or -1 when unknown.
func RankTierIndex(name string) int {
	for i, t := range RankTiers {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// applyRank writes the resolved rank fields onto m and returns the previous rank name.
func applyRank(m *models.Member, now time.Time) (oldRank string, current Rank) {
	oldRank = m.Rank
	current = ResolveRank(m.Experience)

	m.Rank = current.Name
	m.RankIcon = current.Icon
	m.ProgressToNextRank = current.ProgressPercent
	m.CurrentRankPoints = current.ThresholdLow
	m.NextRankPoints = current.ThresholdHigh

	if current.Tier > RankTierIndex(oldRank) {
		m.LastRankUpAt = &now
	}
	return oldRank, current
}
