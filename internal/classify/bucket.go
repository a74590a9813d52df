// Package classify attributes filing revenue and taxes to activity kinds
// (merchandise, services, industry) and markets (domestic, foreign).
package classify

import "fmt"

// Kind is an activity category.
type Kind string

const (
	Merchandise Kind = "merchandise"
	Services    Kind = "services"
	Industry    Kind = "industry"
)

// ParseKind accepts the English and pt-BR spellings.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "merchandise", "mercadorias":
		return Merchandise, nil
	case "services", "servicos", "serviços":
		return Services, nil
	case "industry", "industria", "indústria":
		return Industry, nil
	}
	return "", fmt.Errorf("classify: unknown activity kind %q", s)
}

// Market is where revenue was earned.
type Market string

const (
	Domestic Market = "domestic"
	Foreign  Market = "foreign"
)

// Split holds one value per market.
type Split struct {
	Domestic float64 `json:"domestic"`
	Foreign  float64 `json:"foreign"`
}

// Total returns Domestic + Foreign.
func (s Split) Total() float64 { return s.Domestic + s.Foreign }

// Bucket is the attribution of an amount across kinds and markets.
type Bucket struct {
	Merchandise Split `json:"merchandise"`
	Services    Split `json:"services"`
	Industry    Split `json:"industry"`
}

// Total sums every cell.
func (b Bucket) Total() float64 {
	return b.Merchandise.Total() + b.Services.Total() + b.Industry.Total()
}

// Kind returns the split for k.
func (b Bucket) Kind(k Kind) Split {
	switch k {
	case Merchandise:
		return b.Merchandise
	case Industry:
		return b.Industry
	default:
		return b.Services
	}
}

// Add returns the cell-wise sum of b and o.
func (b Bucket) Add(o Bucket) Bucket {
	return Bucket{
		Merchandise: Split{b.Merchandise.Domestic + o.Merchandise.Domestic, b.Merchandise.Foreign + o.Merchandise.Foreign},
		Services:    Split{b.Services.Domestic + o.Services.Domestic, b.Services.Foreign + o.Services.Foreign},
		Industry:    Split{b.Industry.Domestic + o.Industry.Domestic, b.Industry.Foreign + o.Industry.Foreign},
	}
}

// Scale multiplies every cell by factor.
func (b Bucket) Scale(factor float64) Bucket {
	return Bucket{
		Merchandise: Split{b.Merchandise.Domestic * factor, b.Merchandise.Foreign * factor},
		Services:    Split{b.Services.Domestic * factor, b.Services.Foreign * factor},
		Industry:    Split{b.Industry.Domestic * factor, b.Industry.Foreign * factor},
	}
}

func (b *Bucket) add(k Kind, m Market, v float64) {
	if v <= 0 {
		return
	}
	var cell *Split
	switch k {
	case Merchandise:
		cell = &b.Merchandise
	case Industry:
		cell = &b.Industry
	default:
		cell = &b.Services
	}
	if m == Foreign {
		cell.Foreign += v
		return
	}
	cell.Domestic += v
}
