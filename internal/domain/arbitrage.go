package domain

import (
	"math"
	"time"
)

// Side es la dirección de una operación o señal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal es un bundle mal valorado detectado en un snapshot.
// Se consume en el mismo ciclo y no se persiste.
type Signal struct {
	MarketID   string
	Spread     float64 // |suma - 1|
	Edge       float64 // beneficio bruto por bundle, antes de costes
	Side       Side
	PriceSum   float64
	DetectedAt time.Time
}

// Detector decide si el bundle de un mercado está lo bastante mal valorado.
type Detector struct {
	Threshold float64
}

// priceEpsilon absorbe el error de redondeo al sumar precios.
const priceEpsilon = 1e-9

// Check evalúa un único mercado contra threshold.
//
// Un bundle por debajo de $1 paga $1 seguro si se compran todos los outcomes (Buy).
// Por encima de $1 la señal es Sell; quién la consuma decide si la soporta.
func (d Detector) Check(m Market, threshold float64) (Signal, bool) {
	if !m.Hydrated() {
		return Signal{}, false
	}

	sum := m.PriceSum()
	spread := math.Abs(sum - 1)
	// precios en ticks de centavo: 0.49+0.49 da 0.0200000000000000178
	if spread-threshold <= priceEpsilon {
		return Signal{}, false
	}

	side := SideSell
	if sum < 1 {
		side = SideBuy
	}

	return Signal{
		MarketID:   m.ID,
		Spread:     spread,
		Edge:       spread,
		Side:       side,
		PriceSum:   sum,
		DetectedAt: time.Now(),
	}, true
}

// Scan aplica Check con el threshold configurado a todo el snapshot,
// conservando el orden de entrada.
func (d Detector) Scan(markets []Market) []Signal {
	var signals []Signal
	for _, m := range markets {
		if s, ok := d.Check(m, d.Threshold); ok {
			signals = append(signals, s)
		}
	}
	return signals
}

// --- Funciones de cálculo ---

// WalkLevels recorre los niveles en orden consumiendo hasta size shares.
// Devuelve lo que se pudo llenar, el precio medio ponderado por tamaño
// y cuántos niveles se tocaron.
func WalkLevels(levels []BookEntry, size float64) (filled, avgPrice float64, used int) {
	if size <= 0 {
		return 0, 0, 0
	}

	remaining := size
	var cost float64
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if lvl.Size <= 0 {
			continue
		}
		take := math.Min(lvl.Size, remaining)
		filled += take
		cost += take * lvl.Price
		remaining -= take
		used++
	}

	if filled == 0 {
		return 0, 0, 0
	}
	return filled, cost / filled, used
}
