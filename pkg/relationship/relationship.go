package relationship

import (
	"time"
)

// State holds the five relationship dimensions the NPC tracks toward the
// player, plus meeting bookkeeping. The memory engine reads it to
// synthesize the protected header; it never mutates it directly.
type State struct {
	Trust       float64 `json:"trust"`
	Affection   float64 `json:"affection"`
	Fear        float64 `json:"fear"`
	Respect     float64 `json:"respect"`
	Familiarity float64 `json:"familiarity"`

	// FirstMet is when the NPC first met the player, nil if never
	FirstMet *time.Time `json:"first_met,omitempty"`

	// InteractionCount is the number of recorded conversation turns
	InteractionCount int `json:"interaction_count"`
}

// HasMet reports whether the NPC has met the player.
func (s State) HasMet() bool {
	return s.FirstMet != nil
}

// DaysKnown returns whole days since the first meeting, 0 if unknown.
func (s State) DaysKnown(now time.Time) int {
	if s.FirstMet == nil {
		return 0
	}
	d := int(now.Sub(*s.FirstMet).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Delta is a proposed per-turn change to the relationship dimensions.
// Deltas arrive from the dialogue model and must be clamped before they
// reach State.
type Delta struct {
	Trust       float64 `json:"trust"`
	Affection   float64 `json:"affection"`
	Fear        float64 `json:"fear"`
	Respect     float64 `json:"respect"`
	Familiarity float64 `json:"familiarity"`
}

// ClampConfig bounds per-turn dimension changes. Unclamped model output
// saturates the dimensions and with them every importance and status
// computation downstream.
type ClampConfig struct {
	// MaxDeltaPerTurn bounds the absolute change of any one dimension
	// in a single turn
	MaxDeltaPerTurn float64 `yaml:"max_delta_per_turn"`

	// DimensionMin and DimensionMax bound the dimensions themselves
	DimensionMin float64 `yaml:"dimension_min"`
	DimensionMax float64 `yaml:"dimension_max"`
}

// DefaultClampConfig returns the default delta bounds.
func DefaultClampConfig() ClampConfig {
	return ClampConfig{
		MaxDeltaPerTurn: 15,
		DimensionMin:    -100,
		DimensionMax:    100,
	}
}

// Clamp bounds every dimension change to the configured per-turn maximum.
func (d Delta) Clamp(cfg ClampConfig) Delta {
	return Delta{
		Trust:       clampAbs(d.Trust, cfg.MaxDeltaPerTurn),
		Affection:   clampAbs(d.Affection, cfg.MaxDeltaPerTurn),
		Fear:        clampAbs(d.Fear, cfg.MaxDeltaPerTurn),
		Respect:     clampAbs(d.Respect, cfg.MaxDeltaPerTurn),
		Familiarity: clampAbs(d.Familiarity, cfg.MaxDeltaPerTurn),
	}
}

// Apply returns the state after a clamped delta, with each dimension
// bounded to the configured range.
func (s State) Apply(d Delta, cfg ClampConfig) State {
	d = d.Clamp(cfg)
	out := s
	out.Trust = clampRange(s.Trust+d.Trust, cfg.DimensionMin, cfg.DimensionMax)
	out.Affection = clampRange(s.Affection+d.Affection, cfg.DimensionMin, cfg.DimensionMax)
	out.Fear = clampRange(s.Fear+d.Fear, cfg.DimensionMin, cfg.DimensionMax)
	out.Respect = clampRange(s.Respect+d.Respect, cfg.DimensionMin, cfg.DimensionMax)
	out.Familiarity = clampRange(s.Familiarity+d.Familiarity, cfg.DimensionMin, cfg.DimensionMax)
	return out
}

func clampAbs(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}

func clampRange(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
