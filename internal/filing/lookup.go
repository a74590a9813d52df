package filing

import (
	"sort"
	"strconv"
	"strings"

	"github.com/simplesdash/simplesdash/internal/platform/textnorm"
)

// object is a raw JSON object indexed by folded key.
type object struct {
	index map[string]any
}

func newObject(v any) (object, bool) {
	raw, ok := v.(map[string]any)
	if !ok {
		return object{}, false
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// Sorted so that colliding spellings resolve deterministically.
	sort.Strings(keys)
	index := make(map[string]any, len(raw))
	for _, k := range keys {
		folded := textnorm.Key(k)
		if _, seen := index[folded]; seen {
			continue
		}
		index[folded] = raw[k]
	}
	return object{index: index}, true
}

// get returns the first alias present with a non-null value.
func (o object) get(aliases ...string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := o.index[textnorm.Key(alias)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (o object) child(aliases ...string) object {
	v, ok := o.get(aliases...)
	if !ok {
		return object{}
	}
	child, _ := newObject(v)
	return child
}

func (o object) has(aliases ...string) bool {
	_, ok := o.get(aliases...)
	return ok
}

func (o object) amount(aliases ...string) float64 {
	v, _ := o.get(aliases...)
	return ParseAmount(v)
}

func (o object) str(aliases ...string) string {
	v, ok := o.get(aliases...)
	if !ok {
		return ""
	}
	return stringify(v)
}

func (o object) list(aliases ...string) []any {
	v, _ := o.get(aliases...)
	items, _ := v.([]any)
	return items
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// DigitsOnly strips CNPJ punctuation.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	identificationAliases = []string{"identificacao", "identification", "contribuinte", "cabecalho"}
	cnpjAliases           = []string{"cnpj", "cnpjMatriz", "cnpjBasico"}
	legalNameAliases      = []string{"razaoSocial", "nomeEmpresarial", "legalName", "companyName", "nome"}
	periodAliases         = []string{"periodoApuracao", "periodo", "pa", "period", "competencia"}
	municipalityAliases   = []string{"municipio", "municipality", "cidade"}
	stateAliases          = []string{"uf", "estado", "state"}

	revenueAliases       = []string{"receitas", "revenue", "receitaBruta", "receita"}
	currentPeriodAliases = []string{"receitaPA", "rpa", "currentPeriod", "receitaBrutaPA", "receitaPeriodo", "receitaMes"}
	rbt12Aliases         = []string{"rbt12", "trailing12Months", "receitaBrutaAcumulada12Meses", "receita12Meses"}
	rbaAliases           = []string{"rba", "yearToDate", "receitaBrutaAno", "receitaAno"}
	rbaaAliases          = []string{"rbaa", "priorYearToDate", "receitaBrutaAnoAnterior", "receitaAnoAnterior"}
	foreignAliases       = []string{"mercadoExterno", "foreignMarket", "externo", "exportacao"}

	taxesAliases           = []string{"tributos", "taxes", "impostos"}
	taxesByActivityAliases = []string{"tributosPorAtividade", "taxesByActivity", "tributosAtividade"}
	activityDetailAliases  = []string{"activityDetail", "detalheAtividades", "atividadesDetalhadas", "anexos"}
	rawActivitiesAliases   = []string{"rawActivities", "atividadesBrutas", "atividades", "activities"}
)

var taxAliases = map[string][]string{
	"IRPJ":     {"IRPJ"},
	"CSLL":     {"CSLL"},
	"COFINS":   {"COFINS"},
	"PIS":      {"PIS", "PIS/Pasep", "pis_pasep", "PASEP"},
	"INSS_CPP": {"INSS_CPP", "INSS/CPP", "CPP", "INSS"},
	"ICMS":     {"ICMS"},
	"IPI":      {"IPI"},
	"ISS":      {"ISS", "ISSQN"},
	"Total":    {"Total", "totalGeral", "valorTotal", "totalDAS"},
}

var activityCellAliases = map[string][]string{
	"merchandiseDomestic": {"merchandiseDomestic", "mercadoriasInterno", "mercadoriasMercadoInterno"},
	"merchandiseForeign":  {"merchandiseForeign", "mercadoriasExterno", "mercadoriasMercadoExterno"},
	"serviceDomestic":     {"serviceDomestic", "servicosInterno", "servicosMercadoInterno"},
	"serviceForeign":      {"serviceForeign", "servicosExterno", "servicosMercadoExterno"},
	"industryDomestic":    {"industryDomestic", "industriaInterno", "industriaMercadoInterno"},
	"industryForeign":     {"industryForeign", "industriaExterno", "industriaMercadoExterno"},
}
