package middleware

import (
	"context"
	"log"
	"net/http"

	"agencyops/backend/models"
)

const CurrencyKey contextKey = "currency"

// CurrencyPreferences returns a user's stored display currency
type CurrencyPreferences interface {
	PreferredCurrency(ctx context.Context, userID string) (models.Currency, error)
}

// ResolveCurrency picks the display currency for the request. The
// X-Currency header wins over the currency query parameter, which wins over
// the caller's stored preference. Unsupported values are skipped.
func ResolveCurrency(prefs CurrencyPreferences) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			currency := resolveCurrency(r, prefs)
			ctx := context.WithValue(r.Context(), CurrencyKey, currency)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveCurrency(r *http.Request, prefs CurrencyPreferences) models.Currency {
	if c, ok := models.ParseCurrency(r.Header.Get("X-Currency")); ok {
		return c
	}
	if c, ok := models.ParseCurrency(r.URL.Query().Get("currency")); ok {
		return c
	}

	userID := GetUserIDFromContext(r)
	if userID == "" || prefs == nil {
		return models.DefaultCurrency
	}
	c, err := prefs.PreferredCurrency(r.Context(), userID)
	if err != nil {
		log.Printf("Error loading currency preference for user %s: %v", userID, err)
		return models.DefaultCurrency
	}
	return c.OrDefault()
}

// GetCurrencyFromContext returns the display currency chosen by
// ResolveCurrency, or the default one
func GetCurrencyFromContext(r *http.Request) models.Currency {
	c, ok := r.Context().Value(CurrencyKey).(models.Currency)
	if !ok {
		return models.DefaultCurrency
	}
	return c
}
