package risktables

import (
	"strings"
	"unicode"
)

// keywordFamily classifies free text. A family matches when the lower-cased
// text contains one of its substrings or one of its whole words.
type keywordFamily struct {
	name       string
	score      int
	substrings []string
	words      []string
}

func (f keywordFamily) matches(text string, tokens map[string]bool) bool {
	for _, s := range f.substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	for _, w := range f.words {
		if tokens[w] {
			return true
		}
	}
	return false
}

// classify returns the first family that matches text. Order matters:
// "sehr hoch" must be checked before "hoch".
func classify(text string, families []keywordFamily) (keywordFamily, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return keywordFamily{}, false
	}
	tokens := tokenize(t)
	for _, f := range families {
		if f.matches(t, tokens) {
			return f, true
		}
	}
	return keywordFamily{}, false
}

func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

// Transaction volume buckets.
const (
	VolumeVeryHigh = "very_high"
	VolumeHigh     = "high"
	VolumeMedium   = "medium"
	VolumeLow      = "low"
)

var volumeFamilies = []keywordFamily{
	{
		name:       VolumeVeryHigh,
		score:      80,
		substrings: []string{"sehr hoch", "very high", "> 10 mio", ">10 mio", "über 10 mio", "10+ mio", "50 mio", "100 mio"},
	},
	{
		name:       VolumeHigh,
		score:      60,
		substrings: []string{"hoch", "high", "5-10 mio", "5 - 10 mio"},
	},
	{
		name:       VolumeMedium,
		score:      40,
		substrings: []string{"mittel", "medium", "moderat", "1-5 mio", "1 - 5 mio"},
	},
	{
		name:       VolumeLow,
		score:      15,
		substrings: []string{"gering", "niedrig", "tief", "klein", "< 1 mio", "<1 mio", "unter 1 mio", "0-1 mio"},
		words:      []string{"low"},
	},
}

// VolumeRisk classifies a free-text transaction volume description.
// Empty or unmatched text returns DefaultScore.
func VolumeRisk(text string) int {
	if f, ok := classify(text, volumeFamilies); ok {
		return f.score
	}
	return DefaultScore
}

// VolumeBucket returns the bucket name a description falls into, or "" when
// it matches none.
func VolumeBucket(text string) string {
	f, _ := classify(text, volumeFamilies)
	return f.name
}

// Source-of-funds families.
const (
	FundsInheritance = "inheritance"
	FundsGift        = "gift"
	FundsCrypto      = "crypto"
	FundsGambling    = "gambling"
	FundsCash        = "cash"
	FundsSalary      = "salary"
	FundsBusiness    = "business"
	FundsInvestment  = "investment"
	FundsAssetSale   = "asset_sale"
)

// fundsFamilies are checked in order; the first match wins.
var fundsFamilies = []keywordFamily{
	{
		name:       FundsInheritance,
		score:      40,
		substrings: []string{"erbschaft", "erbteil", "nachlass", "vererb", "inherit"},
	},
	{
		name:       FundsGift,
		score:      50,
		substrings: []string{"schenkung", "geschenk", "donation"},
		words:      []string{"gift"},
	},
	{
		name:       FundsCrypto,
		score:      70,
		substrings: []string{"krypto", "crypto", "bitcoin", "mining", "staking"},
	},
	{
		name:       FundsGambling,
		score:      65,
		substrings: []string{"glücksspiel", "lotterie", "lotto", "casino", "spielgewinn", "wettgewinn", "gambling", "lottery"},
	},
	{
		name:       FundsCash,
		score:      75,
		substrings: []string{"bargeld", "barmittel", "bareinzahlung", "cash"},
		words:      []string{"bar"},
	},
	{
		name:       FundsSalary,
		score:      10,
		substrings: []string{"lohn", "gehalt", "salär", "salair", "salary", "erwerbseinkommen", "rente", "pension"},
	},
	{
		name:       FundsBusiness,
		score:      25,
		substrings: []string{"geschäft", "umsatz", "unternehm", "firma", "gewerbe", "dividende", "betrieb", "business", "revenue"},
	},
	{
		name:       FundsInvestment,
		score:      35,
		substrings: []string{"investition", "investment", "kapitalertr", "wertschrift", "wertpapier", "anlage", "zinsen", "rendite"},
	},
	{
		name:       FundsAssetSale,
		score:      20,
		substrings: []string{"verkauf", "veräusserung", "veräußerung", "liegenschaft", "sale"},
	},
}

// SourceOfFundsRisk classifies a free-text source-of-funds description.
// Empty or unmatched text returns DefaultScore.
func SourceOfFundsRisk(text string) int {
	if f, ok := classify(text, fundsFamilies); ok {
		return f.score
	}
	return DefaultScore
}

// SourceOfFundsFamily returns the family a description falls into, or ""
// when it matches none.
func SourceOfFundsFamily(text string) string {
	f, _ := classify(text, fundsFamilies)
	return f.name
}
