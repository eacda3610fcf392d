package relationship

import (
	"fmt"
	"time"
)

// HeaderConfig configures the protected header synthesis.
type HeaderConfig struct {
	Bands Bands `yaml:"bands"`
}

// DefaultHeaderConfig returns the default header configuration.
func DefaultHeaderConfig() HeaderConfig {
	return HeaderConfig{Bands: DefaultBands()}
}

// Header synthesizes the always-current protected summary of the
// relationship. It is a pure function of live state: regenerated on
// every selection call, never stored as a memory record, so it can
// never go stale independent of the underlying values.
func Header(s State, cfg HeaderConfig, now time.Time) string {
	met := "no"
	if s.HasMet() {
		met = "yes"
	}
	return fmt.Sprintf(
		"[relationship] met=%s days_known=%d trust=%.0f affection=%.0f fear=%.0f respect=%.0f familiarity=%.0f status=%s",
		met,
		s.DaysKnown(now),
		s.Trust,
		s.Affection,
		s.Fear,
		s.Respect,
		s.Familiarity,
		StatusLabel(s, cfg.Bands),
	)
}
