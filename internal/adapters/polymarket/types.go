package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// orderBookRequest es el body del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es la respuesta de GET /book y de cada item de POST /books.
type orderBookResponse struct {
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Bids      []bookEntryRaw `json:"bids"`
	Asks      []bookEntryRaw `json:"asks"`
	Timestamp string         `json:"timestamp"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- Gamma API ---

// gammaEvent es un item de GET /events. Cada evento agrupa uno o más mercados.
type gammaEvent struct {
	ID      string        `json:"id"`
	Slug    string        `json:"slug"`
	Title   string        `json:"title"`
	Markets []gammaMarket `json:"markets"`
}

// gammaMarket es un mercado dentro de un evento.
// Gamma devuelve las listas como strings JSON ("[\"Yes\",\"No\"]") y los números como strings.
type gammaMarket struct {
	ID              string     `json:"id"`
	ConditionID     string     `json:"conditionId"`
	Question        string     `json:"question"`
	Slug            string     `json:"slug"`
	Outcomes        stringList `json:"outcomes"`
	OutcomePrices   stringList `json:"outcomePrices"`
	ClobTokenIDs    stringList `json:"clobTokenIds"`
	Liquidity       flexFloat  `json:"liquidity"`
	Volume24h       flexFloat  `json:"volume24hr"`
	TakerBaseFee    flexFloat  `json:"takerBaseFee"`
	Active          bool       `json:"active"`
	Closed          bool       `json:"closed"`
	AcceptingOrders bool       `json:"acceptingOrders"`
}

// stringList acepta tanto un array JSON como un string que contiene un array JSON.
// Los elementos pueden ser strings o números.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}

	var encoded string
	if err := json.Unmarshal(b, &encoded); err == nil {
		if strings.TrimSpace(encoded) == "" {
			*l = nil
			return nil
		}
		b = []byte(encoded)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, strings.TrimSpace(string(r)))
	}
	*l = out
	return nil
}

// flexFloat acepta un número JSON o un string numérico. Valores no numéricos → 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}
