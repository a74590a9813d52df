package filing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeObject(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestNormalizeFullFiling(t *testing.T) {
	raw := decodeObject(t, `{
		"filename": "das-2024-01.pdf",
		"identificacao": {"CNPJ": "12.345.678/0001-90", "razaoSocial": "ACME LTDA", "periodoApuracao": "01/01/2024 a 31/01/2024", "municipio": "Recife", "UF": "PE"},
		"receitas": {"receitaPA": "10.000,00", "rbt12": 120000, "rba": "10000", "rbaa": "0", "mercadoExterno": {"receitaPA": "500,00"}},
		"tributos": {"IRPJ": "40,00", "PIS/Pasep": "8,50", "INSS/CPP": "300", "ISS": 200, "Total": "800,00", "Desconhecido": 99},
		"tributosPorAtividade": {"servicosInterno": {"ISS": 200, "Total": 300}},
		"activityDetail": [{"anexo": "III", "descricao": "Prestação de serviços", "installments": [{"valor": "10.000,00", "aliquotaEfetiva": "6,00"}]}],
		"atividades": {"a1": {"descricao": "Serviços de TI", "total": "10000"}}
	}`)
	f := Normalize(raw)
	require.Equal(t, "das-2024-01.pdf", f.Filename)
	require.Equal(t, "12345678000190", f.Identification.CNPJ)
	require.Equal(t, "ACME LTDA", f.Identification.LegalName)
	require.Equal(t, "PE", f.Identification.State)
	require.InDelta(t, 10000, f.Revenue.CurrentPeriod, 1e-9)
	require.True(t, f.Revenue.CurrentPeriodReported)
	require.InDelta(t, 500, f.Revenue.ForeignMarket.CurrentPeriod, 1e-9)
	require.InDelta(t, 10500, f.Revenue.Total(), 1e-9)
	require.InDelta(t, 8.5, f.Taxes.PIS, 1e-9)
	require.InDelta(t, 300, f.Taxes.INSSCPP, 1e-9)
	require.InDelta(t, 800, f.Taxes.Total, 1e-9)
	require.InDelta(t, 548.5, f.Taxes.Sum(), 1e-9)
	require.NotNil(t, f.TaxesByActivity)
	require.InDelta(t, 300, f.TaxesByActivity.ServiceDomestic.Total, 1e-9)
	require.Len(t, f.ActivityDetail, 1)
	require.Equal(t, 3, f.ActivityDetail[0].AnnexCode)
	require.InDelta(t, 10000, f.ActivityDetail[0].Revenue(), 1e-9)
	require.Contains(t, f.RawActivities, "a1")

	key, ok := f.PeriodKey()
	require.True(t, ok)
	require.Equal(t, 2024, key.Year)
	require.Equal(t, 1, key.Month)
}

func TestNormalizeTaxAliases(t *testing.T) {
	for _, alias := range []string{"PIS/Pasep", "pis_pasep", "PIS_PASEP"} {
		f := Normalize(map[string]any{"tributos": map[string]any{alias: "12,34"}})
		require.InDelta(t, 12.34, f.Taxes.PIS, 1e-9, alias)
	}
	f := Normalize(map[string]any{"taxes": map[string]any{"cpp": 10.0}})
	require.InDelta(t, 10, f.Taxes.INSSCPP, 1e-9)
}

func TestNormalizeMissingSections(t *testing.T) {
	f := Normalize(map[string]any{"identificacao": map[string]any{"cnpj": "1"}})
	require.Equal(t, "1", f.Identification.CNPJ)
	require.False(t, f.Revenue.CurrentPeriodReported)
	require.Zero(t, f.Revenue.ForeignMarket.CurrentPeriod)
	require.Nil(t, f.TaxesByActivity)
	require.Nil(t, f.ActivityDetail)
	require.Nil(t, f.RawActivities)

	empty := Normalize(nil)
	require.Equal(t, MonthlyFiling{}, empty)
}

func TestNormalizeClampsNegatives(t *testing.T) {
	f := Normalize(map[string]any{
		"receitas": map[string]any{"rpa": "(1.000,00)"},
		"tributos": map[string]any{"ICMS": -5.0},
	})
	require.Zero(t, f.Revenue.CurrentPeriod)
	require.True(t, f.Revenue.CurrentPeriodReported)
	require.Zero(t, f.Taxes.ICMS)
}

func TestNormalizeRawActivitiesList(t *testing.T) {
	f := Normalize(map[string]any{
		"rawActivities": []any{
			map[string]any{"description": "Revenda de mercadorias", "total": "1.000,00"},
			"not an object",
		},
	})
	require.Len(t, f.RawActivities, 1)
	require.InDelta(t, 1000, f.RawActivities["0"].Total, 1e-9)
}

func TestNormalizeForeignOnlyRevenueIsReported(t *testing.T) {
	f := Normalize(map[string]any{
		"receitas": map[string]any{"mercadoExterno": map[string]any{"rpa": 3000.0}},
	})
	require.False(t, f.Revenue.CurrentPeriodReported)
	require.True(t, f.Revenue.ForeignMarket.CurrentPeriodReported)
	require.True(t, f.Revenue.Reported())
	require.InDelta(t, 3000, f.Revenue.Total(), 1e-9)
}

func TestNormalizeScalarRevenueAlias(t *testing.T) {
	f := Normalize(map[string]any{"receitaBruta": 10000.0})
	require.InDelta(t, 10000, f.Revenue.CurrentPeriod, 1e-9)
	require.True(t, f.Revenue.Reported())

	f = Normalize(map[string]any{"receita": "1.234,50"})
	require.InDelta(t, 1234.5, f.Revenue.CurrentPeriod, 1e-9)
}
