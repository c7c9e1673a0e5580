package domain

// TierConfig is the thresholds a card progresses against: the card's
// grandfathered tier-1 target and the merchant's live tier-2 settings.
type TierConfig struct {
	Tier1Target  int
	Tier2Enabled bool
	Tier2Target  int
}

type TierPhase string

const (
	PhaseNoTier                     TierPhase = "no_tier"
	PhaseTier1Locked                TierPhase = "tier1_locked"
	PhaseTier1Unlocked              TierPhase = "tier1_unlocked"
	PhaseTier1RedeemedAwaitingTier2 TierPhase = "tier1_redeemed_awaiting_tier2"
	PhaseTier2Unlocked              TierPhase = "tier2_unlocked"
)

// TierState is the derived progression for a card. ActiveTarget is the
// threshold shown to the customer: tier 2's once tier 1 has been redeemed in
// the current cycle, tier 1's otherwise. Progress clamps negative balances
// at zero for display; the stored counter is never clamped.
type TierState struct {
	Phase          TierPhase `json:"phase"`
	ActiveTier     int       `json:"active_tier"`
	ActiveTarget   int       `json:"active_target"`
	RewardUnlocked bool      `json:"reward_unlocked"`
	Tier1Redeemed  bool      `json:"tier1_redeemed"`
	Progress       int       `json:"progress"`
}

// DeriveTierState is the single tier-derivation function. Every consumer
// must go through it so server and client views can never diverge.
func DeriveTierState(stamps int, cfg TierConfig, tier1Redeemed bool) TierState {
	progress := stamps
	if progress < 0 {
		progress = 0
	}

	state := TierState{
		Phase:         PhaseNoTier,
		Tier1Redeemed: tier1Redeemed,
		Progress:      progress,
	}

	if cfg.Tier1Target <= 0 {
		return state
	}

	if tier1Redeemed && cfg.Tier2Enabled {
		state.ActiveTier = 2
		state.ActiveTarget = cfg.Tier2Target
		if stamps >= cfg.Tier2Target {
			state.Phase = PhaseTier2Unlocked
			state.RewardUnlocked = true
		} else {
			state.Phase = PhaseTier1RedeemedAwaitingTier2
		}
		return state
	}

	state.ActiveTier = 1
	state.ActiveTarget = cfg.Tier1Target
	if stamps >= cfg.Tier1Target && !tier1Redeemed {
		state.Phase = PhaseTier1Unlocked
		state.RewardUnlocked = true
	} else {
		state.Phase = PhaseTier1Locked
	}
	return state
}
