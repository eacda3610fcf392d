package relationship

// Bands configures the trust/affection thresholds behind the derived
// status label. Seven labels cover the observed range; the edges are
// tunables, not constants.
type Bands struct {
	// WaryMin, NeutralMin, FriendlyMin, TrustedMin are the lower trust
	// edges of the successive bands. Below WaryMin the label splits on
	// affection sign.
	WaryMin     float64 `yaml:"wary_min"`
	NeutralMin  float64 `yaml:"neutral_min"`
	FriendlyMin float64 `yaml:"friendly_min"`
	TrustedMin  float64 `yaml:"trusted_min"`

	// AllyAffectionMin is the affection needed on top of TrustedMin
	// trust for the trusted_ally label
	AllyAffectionMin float64 `yaml:"ally_affection_min"`
}

// DefaultBands returns the default status label thresholds.
func DefaultBands() Bands {
	return Bands{
		WaryMin:          20,
		NeutralMin:       40,
		FriendlyMin:      60,
		TrustedMin:       80,
		AllyAffectionMin: 50,
	}
}

// Status labels, coldest to warmest.
const (
	StatusHostile     = "hostile"
	StatusDistrustful = "distrustful"
	StatusWary        = "wary"
	StatusNeutral     = "neutral"
	StatusFriendly    = "friendly"
	StatusTrusted     = "trusted"
	StatusTrustedAlly = "trusted_ally"
)

// StatusLabel derives the compact relationship label from the state.
func StatusLabel(s State, b Bands) string {
	switch {
	case s.Trust < b.WaryMin:
		if s.Affection < 0 {
			return StatusHostile
		}
		return StatusDistrustful
	case s.Trust < b.NeutralMin:
		return StatusWary
	case s.Trust < b.FriendlyMin:
		return StatusNeutral
	case s.Trust < b.TrustedMin:
		return StatusFriendly
	default:
		if s.Affection > b.AllyAffectionMin {
			return StatusTrustedAlly
		}
		return StatusTrusted
	}
}
