package filing

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Normalize maps a raw filing object onto MonthlyFiling. It never panics;
// missing sections become zero values.
func Normalize(raw map[string]any) MonthlyFiling {
	root, ok := newObject(raw)
	if !ok {
		root = object{}
	}
	f := MonthlyFiling{
		Filename:       root.str("filename", "arquivo", "nomeArquivo"),
		Identification: normalizeIdentification(root),
		Revenue:        revenueSection(root),
		Taxes:          normalizeTaxes(root.child(taxesAliases...)),
	}
	if root.has(taxesByActivityAliases...) {
		tba := normalizeTaxesByActivity(root.child(taxesByActivityAliases...))
		f.TaxesByActivity = &tba
	}
	f.ActivityDetail = normalizeActivityDetail(root.list(activityDetailAliases...))
	if v, ok := root.get(rawActivitiesAliases...); ok {
		f.RawActivities = normalizeRawActivities(v)
	}
	return f
}

func normalizeIdentification(root object) Identification {
	id := root.child(identificationAliases...)
	pick := func(aliases []string) string {
		if v := id.str(aliases...); v != "" {
			return v
		}
		return root.str(aliases...)
	}
	return Identification{
		CNPJ:         DigitsOnly(pick(cnpjAliases)),
		LegalName:    pick(legalNameAliases),
		Period:       pick(periodAliases),
		Municipality: pick(municipalityAliases),
		State:        pick(stateAliases),
	}
}

// revenueSection reads the revenue block. A bare amount under a revenue
// alias is the domestic current-period figure.
func revenueSection(root object) Revenue {
	v, ok := root.get(revenueAliases...)
	if !ok {
		return normalizeRevenue(object{})
	}
	switch v.(type) {
	case string, float64, float32, int, int32, int64, json.Number:
		return Revenue{CurrentPeriod: nonNegative(ParseAmount(v)), CurrentPeriodReported: true}
	}
	return normalizeRevenue(root.child(revenueAliases...))
}

func normalizeRevenue(o object) Revenue {
	rev := Revenue{
		CurrentPeriod:         nonNegative(o.amount(currentPeriodAliases...)),
		Trailing12Months:      nonNegative(o.amount(rbt12Aliases...)),
		YearToDate:            nonNegative(o.amount(rbaAliases...)),
		PriorYearToDate:       nonNegative(o.amount(rbaaAliases...)),
		CurrentPeriodReported: o.has(currentPeriodAliases...),
	}
	foreign := o.child(foreignAliases...)
	rev.ForeignMarket = MarketRevenue{
		CurrentPeriod:    nonNegative(foreign.amount(currentPeriodAliases...)),
		Trailing12Months: nonNegative(foreign.amount(rbt12Aliases...)),
		YearToDate:       nonNegative(foreign.amount(rbaAliases...)),
		PriorYearToDate:  nonNegative(foreign.amount(rbaaAliases...)),

		CurrentPeriodReported: foreign.has(currentPeriodAliases...),
	}
	return rev
}

func normalizeTaxes(o object) TaxSet {
	get := func(name string) float64 {
		return nonNegative(o.amount(taxAliases[name]...))
	}
	return TaxSet{
		IRPJ:    get("IRPJ"),
		CSLL:    get("CSLL"),
		COFINS:  get("COFINS"),
		PIS:     get("PIS"),
		INSSCPP: get("INSS_CPP"),
		ICMS:    get("ICMS"),
		IPI:     get("IPI"),
		ISS:     get("ISS"),
		Total:   get("Total"),
	}
}

func normalizeTaxesByActivity(o object) TaxesByActivity {
	cell := func(name string) TaxSet {
		return normalizeTaxes(o.child(activityCellAliases[name]...))
	}
	return TaxesByActivity{
		MerchandiseDomestic: cell("merchandiseDomestic"),
		MerchandiseForeign:  cell("merchandiseForeign"),
		ServiceDomestic:     cell("serviceDomestic"),
		ServiceForeign:      cell("serviceForeign"),
		IndustryDomestic:    cell("industryDomestic"),
		IndustryForeign:     cell("industryForeign"),
	}
}

func normalizeActivityDetail(items []any) []ActivityDetail {
	if len(items) == 0 {
		return nil
	}
	details := make([]ActivityDetail, 0, len(items))
	for _, item := range items {
		o, ok := newObject(item)
		if !ok {
			continue
		}
		annex, _ := o.get("annexCode", "anexo", "codigoAnexo", "annex")
		detail := ActivityDetail{
			AnnexCode:     parseInt(annex),
			Description:   o.str("description", "descricao", "atividade"),
			RevenueAmount: nonNegative(o.amount("revenueAmount", "receita", "valorReceita", "receitaBruta")),
		}
		for _, inst := range o.list("installments", "parcelas", "faixas") {
			io, ok := newObject(inst)
			if !ok {
				continue
			}
			detail.Installments = append(detail.Installments, Installment{
				Value:         nonNegative(io.amount("value", "valor", "baseCalculo")),
				EffectiveRate: nonNegative(io.amount("effectiveRate", "aliquotaEfetiva", "aliquota")),
			})
		}
		details = append(details, detail)
	}
	return details
}

// normalizeRawActivities accepts either an id-keyed object or a list, in
// which case the list index becomes the id.
func normalizeRawActivities(v any) map[string]RawActivity {
	entries := map[string]any{}
	switch raw := v.(type) {
	case map[string]any:
		entries = raw
	case []any:
		for i, item := range raw {
			entries[strconv.Itoa(i)] = item
		}
	default:
		return nil
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(map[string]RawActivity, len(entries))
	for _, id := range ids {
		o, ok := newObject(entries[id])
		if !ok {
			continue
		}
		annex, _ := o.get("annexCode", "anexo", "codigoAnexo")
		out[id] = RawActivity{
			Description: o.str("description", "descricao", "nome", "atividade"),
			Total:       nonNegative(o.amount("total", "valor", "receita", "revenue")),
			AnnexCode:   parseInt(annex),
			Taxes:       normalizeTaxes(o.child(taxesAliases...)),
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
