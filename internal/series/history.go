package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/simplesdash/simplesdash/internal/filing"
)

// ErrInvalidHistory is returned for history payloads in no known shape.
var ErrInvalidHistory = errors.New("series: invalid history payload")

// HistoryPoint is one prior-revenue entry from the history collaborator.
type HistoryPoint struct {
	Label  string `json:"label"`
	Amount any    `json:"amount"`
}

type historyEntry struct {
	Mes     any `json:"mes"`
	Periodo any `json:"periodo"`
	Period  any `json:"period"`
	Label   any `json:"label"`
	Valor   any `json:"valor"`
	Amount  any `json:"amount"`
	Value   any `json:"value"`
}

func (e historyEntry) point() HistoryPoint {
	return HistoryPoint{
		Label:  firstLabel(e.Mes, e.Periodo, e.Period, e.Label),
		Amount: firstNonNil(e.Valor, e.Amount, e.Value),
	}
}

type marketHistory struct {
	MercadoInterno []historyEntry `json:"mercadoInterno"`
	MercadoExterno []historyEntry `json:"mercadoExterno"`
}

// DecodeHistory reads either the snake_case list [{mes, valor}] (bare or
// under "historico") or the camelCase market split
// {historico: {mercadoInterno: [...], mercadoExterno: [...]}}. Domestic and
// foreign amounts for the same label are summed.
func DecodeHistory(raw []byte) ([]HistoryPoint, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}
	if doc == nil {
		return nil, nil
	}
	switch v := doc.(type) {
	case []any:
		return decodeList(raw)
	case map[string]any:
		inner, ok := v["historico"]
		if !ok {
			if _, split := v["mercadoInterno"]; split {
				return decodeMarkets(raw)
			}
			if _, split := v["mercadoExterno"]; split {
				return decodeMarkets(raw)
			}
			return nil, ErrInvalidHistory
		}
		body, err := json.Marshal(inner)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
		}
		switch inner.(type) {
		case []any:
			return decodeList(body)
		case map[string]any:
			return decodeMarkets(body)
		case nil:
			return nil, nil
		}
	}
	return nil, ErrInvalidHistory
}

func decodeList(raw []byte) ([]HistoryPoint, error) {
	var entries []historyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}
	points := make([]HistoryPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, e.point())
	}
	return points, nil
}

func decodeMarkets(raw []byte) ([]HistoryPoint, error) {
	var markets marketHistory
	if err := json.Unmarshal(raw, &markets); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}
	var (
		order  []string
		merged = map[string]HistoryPoint{}
	)
	add := func(entries []historyEntry) {
		for _, e := range entries {
			p := e.point()
			existing, ok := merged[p.Label]
			if !ok {
				order = append(order, p.Label)
				merged[p.Label] = p
				continue
			}
			existing.Amount = filing.ParseAmount(existing.Amount) + filing.ParseAmount(p.Amount)
			merged[p.Label] = existing
		}
	}
	add(markets.MercadoInterno)
	add(markets.MercadoExterno)
	points := make([]HistoryPoint, 0, len(order))
	for _, label := range order {
		points = append(points, merged[label])
	}
	return points, nil
}

func firstLabel(values ...any) string {
	for _, v := range values {
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

func firstNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
