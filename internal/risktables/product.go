package risktables

import "sort"

// Product is a product or service a customer uses.
type Product string

const (
	ProductCryptoTrading   Product = "Crypto Trading"
	ProductCryptoCustody   Product = "Krypto-Verwahrung"
	ProductCashHandling    Product = "Bargeldtransaktionen"
	ProductMoneyExchange   Product = "Geldwechsel"
	ProductMoneyTransfer   Product = "Money Transmitting"
	ProductPreciousMetals  Product = "Edelmetallhandel"
	ProductTrustAccount    Product = "Treuhandkonto"
	ProductCrossBorder     Product = "Internationale Zahlungen"
	ProductForex           Product = "Devisenhandel"
	ProductPayments        Product = "Zahlungsverkehr"
	ProductAssetManagement Product = "Vermögensverwaltung"
	ProductLifeInsurance   Product = "Lebensversicherung"
	ProductInvestAdvice    Product = "Anlageberatung"
	ProductLending         Product = "Kredite / Leasing"
	ProductSavings         Product = "Sparkonto"
	ProductOther           Product = "Andere"
)

var productRisk = map[Product]int{
	ProductCryptoTrading:   80,
	ProductCryptoCustody:   75,
	ProductCashHandling:    80,
	ProductMoneyExchange:   70,
	ProductMoneyTransfer:   70,
	ProductPreciousMetals:  65,
	ProductTrustAccount:    60,
	ProductCrossBorder:     55,
	ProductForex:           50,
	ProductPayments:        40,
	ProductAssetManagement: 40,
	ProductLifeInsurance:   35,
	ProductInvestAdvice:    30,
	ProductLending:         25,
	ProductSavings:         15,
	ProductOther:           30,
}

// Score returns the product risk, DefaultScore when unknown.
func (p Product) Score() int {
	if score, ok := productRisk[p]; ok {
		return score
	}
	return DefaultScore
}

// Known reports whether the label is part of the product taxonomy.
func (p Product) Known() bool {
	_, ok := productRisk[p]
	return ok
}

// ProductRisk looks up a product label by exact match.
func ProductRisk(label string) int {
	return Product(label).Score()
}

// MaxProductRisk returns the highest risk among products, DefaultScore when
// none are given.
func MaxProductRisk(products []string) int {
	if len(products) == 0 {
		return DefaultScore
	}
	highest := 0
	for _, p := range products {
		if score := ProductRisk(p); score > highest {
			highest = score
		}
	}
	return highest
}

// Products returns the known product labels with their scores, sorted by
// label.
func Products() []Entry {
	out := make([]Entry, 0, len(productRisk))
	for k, v := range productRisk {
		out = append(out, Entry{Label: string(k), Score: v, Category: Category(v)})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Label < out[b].Label })
	return out
}
