package classify

import (
	"math"
	"testing"

	"github.com/simplesdash/simplesdash/internal/filing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestProportionalFallbackFromTaxRatios(t *testing.T) {
	f := filing.MonthlyFiling{
		Revenue: filing.Revenue{CurrentPeriod: 10000, CurrentPeriodReported: true},
		TaxesByActivity: &filing.TaxesByActivity{
			ServiceDomestic:     filing.TaxSet{Total: 300},
			MerchandiseDomestic: filing.TaxSet{Total: 700},
		},
	}
	res := Classify(f)
	if res.RevenueSource != SourceProportional {
		t.Fatalf("expected proportional source, got %s", res.RevenueSource)
	}
	if !near(res.Revenue.Services.Domestic, 3000) || !near(res.Revenue.Merchandise.Domestic, 7000) {
		t.Fatalf("unexpected split %+v", res.Revenue)
	}
	if res.TaxSource != SourceTaxesByActivity || !near(res.Tax.Services.Domestic, 300) {
		t.Fatalf("unexpected tax attribution %+v (%s)", res.Tax, res.TaxSource)
	}
}

func TestActivityDetailWinsOverOtherTiers(t *testing.T) {
	f := filing.MonthlyFiling{
		Revenue: filing.Revenue{CurrentPeriod: 9999},
		ActivityDetail: []filing.ActivityDetail{
			{AnnexCode: 1, Description: "Revenda de mercadorias", Installments: []filing.Installment{{Value: 4000, EffectiveRate: 4}}},
			{AnnexCode: 2, Description: "Industrialização para o exterior", Installments: []filing.Installment{{Value: 1000, EffectiveRate: 5}}},
			{AnnexCode: 3, Description: "Serviços", RevenueAmount: 2500},
		},
		RawActivities: map[string]filing.RawActivity{"x": {Description: "Serviços", Total: 123}},
	}
	res := Classify(f)
	if res.RevenueSource != SourceActivityDetail {
		t.Fatalf("expected detail source, got %s", res.RevenueSource)
	}
	if !near(res.Revenue.Merchandise.Domestic, 4000) || !near(res.Revenue.Industry.Foreign, 1000) || !near(res.Revenue.Services.Domestic, 2500) {
		t.Fatalf("unexpected revenue %+v", res.Revenue)
	}
	if res.TaxSource != SourceActivityDetail {
		t.Fatalf("expected installments tax source, got %s", res.TaxSource)
	}
	if !near(res.Tax.Merchandise.Domestic, 160) || !near(res.Tax.Industry.Foreign, 50) {
		t.Fatalf("unexpected tax %+v", res.Tax)
	}
}

func TestRawActivitiesTextAndMarketNegation(t *testing.T) {
	f := filing.MonthlyFiling{
		RawActivities: map[string]filing.RawActivity{
			"1": {Description: "Prestação de SERVIÇOS para o exterior", Total: 100},
			"2": {Description: "Revenda de mercadorias, exceto para o exterior", Total: 200},
			"3": {Description: "Vendas no mercado interno, não exportação", Total: 50},
			"4": {Description: "Exportação de mercadorias", Total: 25},
		},
	}
	res := Classify(f)
	if res.RevenueSource != SourceRawActivities {
		t.Fatalf("expected raw source, got %s", res.RevenueSource)
	}
	if !near(res.Revenue.Services.Foreign, 100) {
		t.Fatalf("expected foreign services, got %+v", res.Revenue.Services)
	}
	if !near(res.Revenue.Merchandise.Domestic, 250) || !near(res.Revenue.Merchandise.Foreign, 25) {
		t.Fatalf("unexpected merchandise %+v", res.Revenue.Merchandise)
	}
}

func TestTaxSignalDisambiguation(t *testing.T) {
	f := filing.MonthlyFiling{
		RawActivities: map[string]filing.RawActivity{
			"a": {Description: "Atividade 1", Total: 10, Taxes: filing.TaxSet{ISS: 5}},
			"b": {Description: "Atividade 2", Total: 10, Taxes: filing.TaxSet{IPI: 3, ICMS: 1}},
			"c": {Description: "Atividade 3", Total: 10, Taxes: filing.TaxSet{ICMS: 2}},
			"d": {Description: "Atividade 4", Total: 10, AnnexCode: 3, Taxes: filing.TaxSet{ICMS: 7}},
		},
	}
	res := Classify(f)
	if res.TaxSource != SourceRawActivities {
		t.Fatalf("expected raw tax source, got %s", res.TaxSource)
	}
	if !near(res.Tax.Services.Domestic, 12) || !near(res.Tax.Industry.Domestic, 4) || !near(res.Tax.Merchandise.Domestic, 2) {
		t.Fatalf("unexpected tax %+v", res.Tax)
	}
}

func TestDefaultKindAndRevenueShare(t *testing.T) {
	f := filing.MonthlyFiling{
		Revenue: filing.Revenue{CurrentPeriod: 1000, ForeignMarket: filing.MarketRevenue{CurrentPeriod: 500}},
		Taxes:   filing.TaxSet{Total: 150},
	}
	res := Classify(f)
	if res.RevenueSource != SourceDefault || !near(res.Revenue.Services.Domestic, 1000) || !near(res.Revenue.Services.Foreign, 500) {
		t.Fatalf("unexpected default attribution %+v (%s)", res.Revenue, res.RevenueSource)
	}
	if res.TaxSource != SourceRevenueShare || !near(res.Tax.Services.Domestic, 100) || !near(res.Tax.Services.Foreign, 50) {
		t.Fatalf("unexpected tax share %+v", res.Tax)
	}

	merch := New(Options{DefaultKind: Merchandise}).Classify(f)
	if !near(merch.Revenue.Merchandise.Total(), 1500) || merch.Revenue.Services.Total() != 0 {
		t.Fatalf("expected merchandise default, got %+v", merch.Revenue)
	}
}

func TestEmptyFilingYieldsZeroBuckets(t *testing.T) {
	res := Classify(filing.MonthlyFiling{})
	if res.Revenue.Total() != 0 || res.Tax.Total() != 0 {
		t.Fatalf("expected zero buckets, got %+v", res)
	}
	if res.TaxSource != SourceNone {
		t.Fatalf("expected no tax source, got %s", res.TaxSource)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("servicos"); err != nil || k != Services {
		t.Fatalf("unexpected %v %v", k, err)
	}
	if _, err := ParseKind("agro"); err == nil {
		t.Fatalf("expected error")
	}
}
