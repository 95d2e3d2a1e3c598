package agent

import (
	"fmt"
	"strings"
)

// Stats is the immutable movement profile of an agent.
type Stats struct {
	MaxSpeed           float64 `json:"max_speed" yaml:"max_speed"`
	Acceleration       float64 `json:"acceleration" yaml:"acceleration"`
	TurnResponsiveness float64 `json:"turn_responsiveness" yaml:"turn_responsiveness"`
	StaminaMax         float64 `json:"stamina_max" yaml:"stamina_max"`
	StaminaRegen       float64 `json:"stamina_regen" yaml:"stamina_regen"`
	SprintMultiplier   float64 `json:"sprint_multiplier" yaml:"sprint_multiplier"`
}

// HasStamina reports whether the profile uses the stamina/sprint mechanic.
func (s Stats) HasStamina() bool { return s.StaminaMax > 0 }

// Variant names one of the fixed monkey profiles.
type Variant uint8

const (
	Adamo Variant = iota
	ElGrande
	Jimi
)

// Variants lists every monkey variant in arena order.
var Variants = [...]Variant{Adamo, ElGrande, Jimi}

func (v Variant) String() string {
	switch v {
	case Adamo:
		return "Adamo"
	case ElGrande:
		return "El Grande"
	case Jimi:
		return "Jimi"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool { return v <= Jimi }

// ParseVariant accepts display names and their compact forms
// ("El Grande", "elgrande", "el_grande").
func ParseVariant(s string) (Variant, error) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(s))
	switch key {
	case "adamo":
		return Adamo, nil
	case "elgrande":
		return ElGrande, nil
	case "jimi":
		return Jimi, nil
	}
	return 0, fmt.Errorf("unknown variant %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Profiles is the built-in variant table.
// Jimi is the fastest with the deepest stamina pool, Adamo accelerates
// hardest but turns wide, El Grande is the deliberately weak baseline.
var Profiles = map[Variant]Stats{
	Jimi: {
		MaxSpeed:           190,
		Acceleration:       600,
		TurnResponsiveness: 1.12,
		StaminaMax:         5.0,
		StaminaRegen:       1.05,
		SprintMultiplier:   1.7,
	},
	Adamo: {
		MaxSpeed:           168,
		Acceleration:       640,
		TurnResponsiveness: 0.85,
		StaminaMax:         3.8,
		StaminaRegen:       0.95,
		SprintMultiplier:   1.52,
	},
	ElGrande: {
		MaxSpeed:           150,
		Acceleration:       520,
		TurnResponsiveness: 1.0,
		StaminaMax:         3.0,
		StaminaRegen:       0.85,
		SprintMultiplier:   1.45,
	},
}

// HunterStats is the hunter's fixed profile. A turn responsiveness of 2
// makes the steering blend factor exactly 1, so the hunter accelerates
// straight along its desired direction. It has no stamina pool.
var HunterStats = Stats{
	MaxSpeed:           175,
	Acceleration:       450,
	TurnResponsiveness: 2.0,
	SprintMultiplier:   1,
}

const (
	MonkeyRadius = 16.0
	HunterRadius = 18.0
)
