package classify

import (
	"strings"

	"github.com/simplesdash/simplesdash/internal/platform/textnorm"
)

var (
	foreignPatterns = []string{"para o exterior", "mercado externo", "exportacao", "exterior", "export"}
	// Negations are checked first and always win.
	domesticPatterns = []string{"mercado interno", "exceto exterior", "exceto para o exterior", "nao exportacao", "sem exportacao"}
	industryPatterns = []string{"industrializ", "industria", "fabricacao"}
	goodsPatterns    = []string{"mercador", "revenda", "comercio"}
)

// MarketOf infers the market from an activity description.
func MarketOf(description string) Market {
	text := textnorm.Fold(description)
	if text == "" {
		return Domestic
	}
	for _, p := range domesticPatterns {
		if strings.Contains(text, p) {
			return Domestic
		}
	}
	for _, p := range foreignPatterns {
		if strings.Contains(text, p) {
			return Foreign
		}
	}
	return Domestic
}

// kindFromText returns false when the description names no activity.
func kindFromText(description string) (Kind, bool) {
	text := textnorm.Fold(description)
	if text == "" {
		return "", false
	}
	if strings.Contains(text, "servi") {
		return Services, true
	}
	for _, p := range industryPatterns {
		if strings.Contains(text, p) {
			return Industry, true
		}
	}
	for _, p := range goodsPatterns {
		if strings.Contains(text, p) {
			return Merchandise, true
		}
	}
	return "", false
}

// KindOfAnnex maps a Simples Nacional annex to its activity kind.
func KindOfAnnex(annex int) (Kind, bool) {
	switch annex {
	case 1:
		return Merchandise, true
	case 2:
		return Industry, true
	case 3, 4, 5:
		return Services, true
	}
	return "", false
}
