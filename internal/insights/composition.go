package insights

import (
	"github.com/simplesdash/simplesdash/internal/classify"
	"github.com/simplesdash/simplesdash/internal/filing"
)

// TaxComposition returns each category's share of the DAS total. The
// category sum stands in for Total when Total is missing.
func TaxComposition(t filing.TaxSet) []Share {
	total := t.Amount()
	items := []Share{
		{Key: "IRPJ", Label: "IRPJ", Amount: t.IRPJ},
		{Key: "CSLL", Label: "CSLL", Amount: t.CSLL},
		{Key: "COFINS", Label: "COFINS", Amount: t.COFINS},
		{Key: "PIS", Label: "PIS/Pasep", Amount: t.PIS},
		{Key: "INSS_CPP", Label: "INSS/CPP", Amount: t.INSSCPP},
		{Key: "ICMS", Label: "ICMS", Amount: t.ICMS},
		{Key: "IPI", Label: "IPI", Amount: t.IPI},
		{Key: "ISS", Label: "ISS", Amount: t.ISS},
	}
	return shares(items, total)
}

// ActivityMix returns the revenue share of each activity and market.
func ActivityMix(b classify.Bucket) []Share {
	items := []Share{
		{Key: "merchandise.domestic", Label: "Mercadorias (interno)", Amount: b.Merchandise.Domestic},
		{Key: "merchandise.foreign", Label: "Mercadorias (externo)", Amount: b.Merchandise.Foreign},
		{Key: "services.domestic", Label: "Serviços (interno)", Amount: b.Services.Domestic},
		{Key: "services.foreign", Label: "Serviços (externo)", Amount: b.Services.Foreign},
		{Key: "industry.domestic", Label: "Indústria (interno)", Amount: b.Industry.Domestic},
		{Key: "industry.foreign", Label: "Indústria (externo)", Amount: b.Industry.Foreign},
	}
	return shares(items, b.Total())
}

func shares(items []Share, total float64) []Share {
	out := make([]Share, 0, len(items))
	for _, item := range items {
		if almostZero(item.Amount) {
			continue
		}
		item.Percent = safePercent(item.Amount, total)
		out = append(out, item)
	}
	return out
}
