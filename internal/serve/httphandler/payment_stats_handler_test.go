package httphandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/db/dbtest"
	"github.com/ninjapay/payments-reconciler/internal/data"
)

func Test_PaymentStatsHandler_GetPaymentStats(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	r := chi.NewRouter()
	r.Get("/stats/payments", PaymentStatsHandler{Models: models}.GetPaymentStats)

	t.Run("returns zeroed stats for an empty ledger", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats/payments", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var gotStats data.PaymentStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotStats))
		assert.Equal(t, int64(0), gotStats.TotalPayments)
		assert.Equal(t, int64(0), gotStats.AuthorizedPayments)
		assert.Equal(t, "0", gotStats.TotalAmountMinor.String())
		assert.Nil(t, gotStats.TotalAmountCurrency)
		assert.Nil(t, gotStats.LastPaymentAt)
	})

	t.Run("🎉 aggregates the ledger", func(t *testing.T) {
		data.CreatePaymentFixture(t, ctx, models.DBConnectionPool, models.Payments, &data.Payment{
			Status:      data.AuthorizedPaymentStatus,
			AmountMinor: 5000,
			Context:     data.JSONMap{"currency": "CLP"},
		})
		data.CreatePaymentFixture(t, ctx, models.DBConnectionPool, models.Payments, &data.Payment{
			AmountMinor: 250000,
			Context:     data.JSONMap{"currency": "CLP"},
		})

		req := httptest.NewRequest(http.MethodGet, "/stats/payments", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var gotStats data.PaymentStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gotStats))
		assert.Equal(t, int64(2), gotStats.TotalPayments)
		assert.Equal(t, int64(1), gotStats.AuthorizedPayments)
		assert.Equal(t, "255000", gotStats.TotalAmountMinor.String())
		require.NotNil(t, gotStats.TotalAmountCurrency)
		assert.Equal(t, "CLP", *gotStats.TotalAmountCurrency)
		assert.NotNil(t, gotStats.LastPaymentAt)
	})

	t.Run("returns a 500 when the database is unreachable", func(t *testing.T) {
		dbt := dbtest.OpenWithoutMigrations(t)
		closedConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
		require.NoError(t, err)
		require.NoError(t, closedConnectionPool.Close())
		dbt.Close()

		brokenModels, err := data.NewModels(closedConnectionPool)
		require.NoError(t, err)

		brokenRouter := chi.NewRouter()
		brokenRouter.Get("/stats/payments", PaymentStatsHandler{Models: brokenModels}.GetPaymentStats)

		req := httptest.NewRequest(http.MethodGet, "/stats/payments", nil)
		w := httptest.NewRecorder()
		brokenRouter.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error": "Cannot calculate payment stats"}`, w.Body.String())
	})
}
