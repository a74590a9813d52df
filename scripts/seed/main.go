package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/simplesdash/simplesdash/internal/app"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/filingstore"
)

type company struct {
	cnpj    string
	name    string
	base    float64
	growth  float64
	taxRate float64
	service bool
}

var companies = []company{
	{cnpj: "11222333000181", name: "Padaria Pão Quente LTDA", base: 38000, growth: 0.012, taxRate: 0.06},
	{cnpj: "44555666000172", name: "Consultoria Horizonte ME", base: 21000, growth: 0.025, taxRate: 0.112, service: true},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	months := 24
	if v := os.Getenv("SEED_MONTHS"); v != "" {
		if months, err = strconv.Atoi(v); err != nil || months <= 0 {
			log.Fatalf("SEED_MONTHS must be a positive integer, got %q", v)
		}
	}

	ctx := context.Background()
	store, closeStore, err := filingstore.Open(ctx, cfg.StoreConfig(), nil)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	var filings []filing.MonthlyFiling
	for _, c := range companies {
		filings = append(filings, monthlyFilings(c, 2023, months)...)
	}
	fmt.Printf("→ Seeding %d filings for %d companies into %s store...\n", len(filings), len(companies), cfg.StoreDriver)
	doc, err := filingstore.Create(ctx, store, filing.FromFilings(filings))
	if err != nil {
		log.Fatalf("create file set: %v", err)
	}
	fmt.Printf("✓ File set %s\n", doc.ID)
}

// monthlyFilings produces a seasonal revenue curve starting in January of
// startYear. Trailing revenue is left out so the engine derives it.
func monthlyFilings(c company, startYear, months int) []filing.MonthlyFiling {
	out := make([]filing.MonthlyFiling, 0, months)
	for i := 0; i < months; i++ {
		month := i%12 + 1
		year := startYear + i/12
		season := 1 + 0.15*math.Sin(float64(month)/12*2*math.Pi)
		revenue := math.Round(c.base*math.Pow(1+c.growth, float64(i))*season*100) / 100
		tax := math.Round(revenue*c.taxRate*100) / 100

		taxes := filing.TaxSet{Total: tax}
		if c.service {
			taxes.ISS = math.Round(tax*0.33*100) / 100
			taxes.INSSCPP = math.Round(tax*0.43*100) / 100
			taxes.IRPJ = math.Round((tax-taxes.ISS-taxes.INSSCPP)*100) / 100
		} else {
			taxes.ICMS = math.Round(tax*0.34*100) / 100
			taxes.INSSCPP = math.Round(tax*0.415*100) / 100
			taxes.COFINS = math.Round((tax-taxes.ICMS-taxes.INSSCPP)*100) / 100
		}

		label := fmt.Sprintf("%02d/%d", month, year)
		out = append(out, filing.MonthlyFiling{
			Filename: fmt.Sprintf("%s-%d%02d.json", c.cnpj, year, month),
			Identification: filing.Identification{
				CNPJ:      c.cnpj,
				LegalName: c.name,
				Period:    label,
				State:     "SP",
			},
			Revenue: filing.Revenue{CurrentPeriod: revenue, CurrentPeriodReported: true},
			Taxes:   taxes,
		})
	}
	return out
}
