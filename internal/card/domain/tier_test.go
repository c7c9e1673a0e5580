package domain

import (
	"testing"

	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"github.com/stretchr/testify/assert"
)

func TestDeriveTierState_SingleTier(t *testing.T) {
	cfg := TierConfig{Tier1Target: 8}

	tests := []struct {
		name     string
		stamps   int
		phase    TierPhase
		unlocked bool
		progress int
	}{
		{"empty card", 0, PhaseTier1Locked, false, 0},
		{"partial progress", 5, PhaseTier1Locked, false, 5},
		{"exactly at target", 8, PhaseTier1Unlocked, true, 8},
		{"over target", 11, PhaseTier1Unlocked, true, 11},
		{"negative balance clamps display only", -2, PhaseTier1Locked, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := DeriveTierState(tt.stamps, cfg, false)
			assert.Equal(t, tt.phase, state.Phase)
			assert.Equal(t, tt.unlocked, state.RewardUnlocked)
			assert.Equal(t, tt.progress, state.Progress)
			assert.Equal(t, 1, state.ActiveTier)
			assert.Equal(t, 8, state.ActiveTarget)
		})
	}
}

func TestDeriveTierState_TwoTiers(t *testing.T) {
	cfg := TierConfig{Tier1Target: 8, Tier2Enabled: true, Tier2Target: 15}

	tests := []struct {
		name          string
		stamps        int
		tier1Redeemed bool
		phase         TierPhase
		activeTier    int
		activeTarget  int
		unlocked      bool
	}{
		{"below tier 1", 7, false, PhaseTier1Locked, 1, 8, false},
		{"tier 1 reached", 8, false, PhaseTier1Unlocked, 1, 8, true},
		{"past tier 1, not yet redeemed", 12, false, PhaseTier1Unlocked, 1, 8, true},
		{"tier 1 redeemed, cumulative progress continues", 12, true, PhaseTier1RedeemedAwaitingTier2, 2, 15, false},
		{"tier 2 reached after redeeming tier 1", 15, true, PhaseTier2Unlocked, 2, 15, true},
		{"tier 2 threshold without redeeming tier 1", 15, false, PhaseTier1Unlocked, 1, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := DeriveTierState(tt.stamps, cfg, tt.tier1Redeemed)
			assert.Equal(t, tt.phase, state.Phase)
			assert.Equal(t, tt.activeTier, state.ActiveTier)
			assert.Equal(t, tt.activeTarget, state.ActiveTarget)
			assert.Equal(t, tt.unlocked, state.RewardUnlocked)
			assert.Equal(t, tt.tier1Redeemed, state.Tier1Redeemed)
		})
	}
}

func TestDeriveTierState_UnconfiguredTarget(t *testing.T) {
	state := DeriveTierState(5, TierConfig{}, false)
	assert.Equal(t, PhaseNoTier, state.Phase)
	assert.False(t, state.RewardUnlocked)
	assert.Equal(t, 0, state.ActiveTier)
}

func TestTierConfigFor_GrandfathersCardTarget(t *testing.T) {
	card := LoyaltyCard{StampsTarget: 8}

	merchant := merchantdomain.Merchant{
		StampsRequired:      10,
		Tier2Enabled:        true,
		Tier2StampsRequired: 20,
	}

	cfg := TierConfigFor(card, merchant)
	assert.Equal(t, 8, cfg.Tier1Target)
	assert.True(t, cfg.Tier2Enabled)
	assert.Equal(t, 20, cfg.Tier2Target)
}
