package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ze-club/models"
)

func TestResolveRank_Boundaries(t *testing.T) {
	tests := []struct {
		experience int64
		name       string
		low, high  int64
		progress   int
	}{
		{experience: -5, name: "Rookie", low: 0, high: 100, progress: 0},
		{experience: 0, name: "Rookie", low: 0, high: 100, progress: 0},
		{experience: 99, name: "Rookie", low: 0, high: 100, progress: 99},
		{experience: 100, name: "Contender", low: 100, high: 250, progress: 0},
		{experience: 105, name: "Contender", low: 100, high: 250, progress: 3},
		{experience: 249, name: "Contender", low: 100, high: 250, progress: 99},
		{experience: 250, name: "Gladiator", low: 250, high: 500, progress: 0},
		{experience: 500, name: "Vanguard", low: 500, high: 1000, progress: 0},
		{experience: 999, name: "Vanguard", low: 500, high: 1000, progress: 99},
		{experience: 1000, name: "Errorless Legend", low: 1000, high: 1000, progress: 100},
		{experience: 1 << 40, name: "Errorless Legend", low: 1000, high: 1000, progress: 100},
	}
	for _, tt := range tests {
		r := ResolveRank(tt.experience)
		assert.Equal(t, tt.name, r.Name, "experience %d", tt.experience)
		assert.Equal(t, tt.low, r.ThresholdLow, "experience %d", tt.experience)
		assert.Equal(t, tt.high, r.ThresholdHigh, "experience %d", tt.experience)
		assert.Equal(t, tt.progress, r.ProgressPercent, "experience %d", tt.experience)
	}
}

func TestResolveRank_MonotonicAndClosed(t *testing.T) {
	names := map[string]bool{}
	for _, tier := range RankTiers {
		names[tier.Name] = true
	}

	prev := -1
	for e := int64(0); e <= 1500; e++ {
		r := ResolveRank(e)
		assert.True(t, names[r.Name])
		assert.GreaterOrEqual(t, r.Tier, prev)
		assert.GreaterOrEqual(t, r.ProgressPercent, 0)
		assert.LessOrEqual(t, r.ProgressPercent, 100)
		prev = r.Tier
	}
}

func TestRankTierIndex(t *testing.T) {
	assert.Equal(t, 0, RankTierIndex("Rookie"))
	assert.Equal(t, 3, RankTierIndex("Vanguard"))
	assert.Equal(t, 4, RankTierIndex("Errorless Legend"))
	assert.Equal(t, -1, RankTierIndex("Diamond"))
}

func TestApplyRank(t *testing.T) {
	now := time.Now()
	m := &models.Member{Rank: "Rookie", Experience: 105}

	old, cur := applyRank(m, now)
	assert.Equal(t, "Rookie", old)
	assert.Equal(t, "Contender", cur.Name)
	assert.Equal(t, "Contender", m.Rank)
	assert.Equal(t, 3, m.ProgressToNextRank)
	assert.EqualValues(t, 100, m.CurrentRankPoints)
	assert.EqualValues(t, 250, m.NextRankPoints)
	assert.NotNil(t, m.LastRankUpAt)

	m.LastRankUpAt = nil
	m.Experience = 90
	old, cur = applyRank(m, now)
	assert.Equal(t, "Contender", old)
	assert.Equal(t, "Rookie", cur.Name)
	assert.Nil(t, m.LastRankUpAt)
}
