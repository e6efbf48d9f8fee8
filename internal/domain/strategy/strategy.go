package strategy

import "fmt"

// Mode es el perfil de riesgo elegido según la allowance que queda del día.
type Mode string

const (
	ModeConservative Mode = "conservative"
	ModeNormal       Mode = "normal"
	ModeAggressive   Mode = "aggressive"
)

// Config define los umbrales de cada modo.
type Config struct {
	// Por debajo de esta fracción de allowance restante → conservative.
	ConservativeThreshold float64
	// Por encima de esta fracción → aggressive.
	AggressiveThreshold float64

	ConservativeMinEdge float64
	NormalMinEdge       float64
	AggressiveMinEdge   float64
}

// DefaultConfig devuelve los umbrales por defecto (30% / 70%).
func DefaultConfig() Config {
	return Config{
		ConservativeThreshold: 0.30,
		AggressiveThreshold:   0.70,
		ConservativeMinEdge:   0.05,
		NormalMinEdge:         0.02,
		AggressiveMinEdge:     0.01,
	}
}

// Validate comprueba que los umbrales sean coherentes.
func (c Config) Validate() error {
	if c.ConservativeThreshold < 0 || c.AggressiveThreshold > 1 {
		return fmt.Errorf("strategy: thresholds must be within [0,1]")
	}
	if c.ConservativeThreshold > c.AggressiveThreshold {
		return fmt.Errorf("strategy: conservative_threshold %.2f above aggressive_threshold %.2f",
			c.ConservativeThreshold, c.AggressiveThreshold)
	}
	return nil
}

// Select elige el modo para la fracción de allowance restante (0..1).
func (c Config) Select(remaining float64) Mode {
	switch {
	case remaining < c.ConservativeThreshold:
		return ModeConservative
	case remaining > c.AggressiveThreshold:
		return ModeAggressive
	default:
		return ModeNormal
	}
}

// MinEdge devuelve el edge mínimo exigido en el modo dado.
func (c Config) MinEdge(m Mode) float64 {
	switch m {
	case ModeConservative:
		return c.ConservativeMinEdge
	case ModeAggressive:
		return c.AggressiveMinEdge
	default:
		return c.NormalMinEdge
	}
}
