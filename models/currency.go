package models

import "strings"

// Currency is an ISO code from the closed set the business invoices in.
type Currency string

const (
	CurrencyEGP Currency = "EGP"
	CurrencySAR Currency = "SAR"
	CurrencyAED Currency = "AED"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrency is used whenever a payload omits its currency
const DefaultCurrency = CurrencyEGP

// Currencies lists every supported currency in display order
var Currencies = []Currency{CurrencyEGP, CurrencySAR, CurrencyAED, CurrencyUSD, CurrencyEUR}

// Valid reports whether c is one of the supported currencies
func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCurrency normalizes a user supplied code ("usd", " Usd ") to a Currency
func ParseCurrency(value string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// OrDefault returns c, or DefaultCurrency when c is empty
func (c Currency) OrDefault() Currency {
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// ConvertedAmounts holds a monetary value expressed in every supported
// currency. Values are whole units; nil means the value was never computed.
type ConvertedAmounts struct {
	EGP *int64 `json:"EGP"`
	SAR *int64 `json:"SAR"`
	AED *int64 `json:"AED"`
	USD *int64 `json:"USD"`
	EUR *int64 `json:"EUR"`
}

// Get returns the stored value for c and whether one is present
func (m ConvertedAmounts) Get(c Currency) (int64, bool) {
	p := m.field(c)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Set stores v as the value for c. Unknown currencies are ignored.
func (m *ConvertedAmounts) Set(c Currency, v int64) {
	p := m.field(c)
	if p == nil {
		return
	}
	*p = &v
}

// Complete reports whether every supported currency has a value
func (m ConvertedAmounts) Complete() bool {
	for _, c := range Currencies {
		if _, ok := m.Get(c); !ok {
			return false
		}
	}
	return true
}

// ScanTargets returns destinations for the five converted columns, in
// Currencies order, for use with sql.Row.Scan.
func (m *ConvertedAmounts) ScanTargets() []any {
	return []any{&m.EGP, &m.SAR, &m.AED, &m.USD, &m.EUR}
}

// Values returns the five converted values, in Currencies order, as SQL
// arguments.
func (m ConvertedAmounts) Values() []any {
	return []any{m.EGP, m.SAR, m.AED, m.USD, m.EUR}
}

func (m *ConvertedAmounts) field(c Currency) **int64 {
	switch c {
	case CurrencyEGP:
		return &m.EGP
	case CurrencySAR:
		return &m.SAR
	case CurrencyAED:
		return &m.AED
	case CurrencyUSD:
		return &m.USD
	case CurrencyEUR:
		return &m.EUR
	}
	return nil
}
