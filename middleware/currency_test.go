package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"agencyops/backend/models"
)

type fakePreferences map[string]models.Currency

func (f fakePreferences) PreferredCurrency(_ context.Context, userID string) (models.Currency, error) {
	if userID == "broken" {
		return "", errors.New("database is locked")
	}
	return f[userID].OrDefault(), nil
}

func TestResolveCurrency(t *testing.T) {
	prefs := fakePreferences{"u-sar": models.CurrencySAR}

	testCases := []struct {
		name     string
		userID   string
		header   string
		query    string
		expected models.Currency
	}{
		{"Header wins", "u-sar", "usd", "eur", models.CurrencyUSD},
		{"Query beats preference", "u-sar", "", "eur", models.CurrencyEUR},
		{"Invalid header falls through", "u-sar", "GBP", "aed", models.CurrencyAED},
		{"Preference", "u-sar", "", "", models.CurrencySAR},
		{"Invalid query falls through to preference", "u-sar", "", "btc", models.CurrencySAR},
		{"No preference", "u-none", "", "", models.CurrencyEGP},
		{"Anonymous", "", "", "", models.CurrencyEGP},
		{"Lookup failure", "broken", "", "", models.CurrencyEGP},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got models.Currency
			handler := ResolveCurrency(prefs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetCurrencyFromContext(r)
			}))

			req := requestAs(tc.userID, models.RoleAdmin)
			if tc.query != "" {
				req.URL.RawQuery = "currency=" + tc.query
			}
			if tc.header != "" {
				req.Header.Set("X-Currency", tc.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestGetCurrencyFromContextDefault(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/test", nil)
	if c := GetCurrencyFromContext(req); c != models.DefaultCurrency {
		t.Errorf("Expected default currency, got %s", c)
	}
}
