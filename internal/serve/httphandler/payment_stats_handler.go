package httphandler

import (
	"net/http"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/serve/httperror"
	"github.com/ninjapay/payments-reconciler/internal/serve/httpjson"
)

type PaymentStatsHandler struct {
	Models *data.Models
}

func (h PaymentStatsHandler) GetPaymentStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.Models.Payments.Stats(ctx, h.Models.DBConnectionPool)
	if err != nil {
		httperror.InternalError(ctx, "Cannot calculate payment stats", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, stats, httpjson.JSON)
}
