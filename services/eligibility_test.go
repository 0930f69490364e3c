package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ze-club/models"
)

func TestEvaluateReward_LockOrder(t *testing.T) {
	legendOnly := models.Reward{Cost: 1000, RequiredRank: RankErrorlessLegend, ExclusiveToTop3: true}

	tests := []struct {
		name   string
		reward models.Reward
		viewer *Viewer
		locked bool
		reason string
	}{
		{name: "rank first", reward: legendOnly, viewer: &Viewer{Experience: 600}, locked: true, reason: "Requires Errorless Legend rank"},
		{name: "top3 second", reward: legendOnly, viewer: &Viewer{Experience: 1200}, locked: true, reason: "Exclusive to Top 3 Errorless Legends"},
		{name: "unlocked legend", reward: legendOnly, viewer: &Viewer{Experience: 1200, Top3: true}},
		{name: "anonymous hits rank first", reward: legendOnly, viewer: nil, locked: true, reason: "Requires Errorless Legend rank"},
		{name: "anonymous open reward", reward: models.Reward{Cost: 50}, viewer: nil, locked: true, reason: "Sign in to claim"},
		{name: "member open reward", reward: models.Reward{Cost: 50}, viewer: &Viewer{}},
		{name: "rookie requirement is no lock", reward: models.Reward{Cost: 50, RequiredRank: RankRookie}, viewer: &Viewer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := EvaluateReward(tt.reward, tt.viewer)
			assert.Equal(t, tt.locked, v.IsLocked)
			assert.Equal(t, tt.reason, v.LockedReason)
		})
	}
}

func TestEvaluateReward_Discount(t *testing.T) {
	discountable := models.Reward{Cost: 1005, Discountable: true}

	assert.Equal(t, int64(904), EvaluateReward(discountable, &Viewer{Experience: 500}).FinalCost)
	assert.Equal(t, int64(1005), EvaluateReward(discountable, &Viewer{Experience: 499}).FinalCost)
	assert.Equal(t, int64(1005), EvaluateReward(discountable, nil).FinalCost)
	assert.Equal(t, int64(1005), EvaluateReward(models.Reward{Cost: 1005}, &Viewer{Experience: 2000}).FinalCost)

	// discount is shown even while the reward is locked
	locked := EvaluateReward(models.Reward{Cost: 100, Discountable: true, ExclusiveToTop3: true}, &Viewer{Experience: 700})
	assert.True(t, locked.IsLocked)
	assert.Equal(t, int64(90), locked.FinalCost)
}

func TestListRewards_Top3AndOrdering(t *testing.T) {
	db := newTestDB(t)
	s := newTestLedger(t, db)
	ctx := context.Background()

	for _, exp := range []int64{5000, 4000, 3000} {
		seedMember(t, db, exp, 0)
	}
	fourth := seedMember(t, db, 2000, 0)
	tied := seedMember(t, db, 3000, 0)

	exclusive := seedReward(t, db, 900, 1, func(r *models.Reward) { r.ExclusiveToTop3 = true })
	seedReward(t, db, 100, 1)
	seedReward(t, db, 10, 1, func(r *models.Reward) { r.Active = false })

	views, err := s.ListRewards(ctx, fourth.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(100), views[0].Cost)
	assert.Equal(t, exclusive.ID, views[1].ID)
	assert.True(t, views[1].IsLocked)

	// fewer than three members strictly above 3000, so a tie at third place counts
	views, err = s.ListRewards(ctx, tied.ID)
	require.NoError(t, err)
	assert.False(t, views[1].IsLocked)

	anon, err := s.ListRewards(ctx, "")
	require.NoError(t, err)
	for _, v := range anon {
		assert.True(t, v.IsLocked)
	}
}
